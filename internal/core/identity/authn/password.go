package authn

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leadflow/leadflow/pkg/model"
)

var validate = validator.New()

// CredentialsValidator checks register payloads.
type CredentialsValidator struct {
	minLength int
}

// NewCredentialsValidator creates a validator requiring passwords of at least minLength characters.
func NewCredentialsValidator(minLength int) *CredentialsValidator {
	return &CredentialsValidator{minLength: minLength}
}

// Validate normalizes the email in place and checks both fields.
func (v *CredentialsValidator) Validate(c *Credentials) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" || c.Password == "" {
		return model.NewValidationError("Email and password are required")
	}
	if err := validate.Var(c.Email, "email,max=254"); err != nil {
		return model.NewValidationError("Please provide a valid email",
			model.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len([]rune(c.Password)) < v.minLength {
		msg := fmt.Sprintf("Password must be at least %d characters", v.minLength)
		return model.NewValidationError(msg,
			model.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", v.minLength)})
	}
	return nil
}
