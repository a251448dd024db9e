package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/leadflow/leadflow/internal/core/identity"
	"github.com/leadflow/leadflow/internal/server"
	"github.com/leadflow/leadflow/pkg/model"
)

// userView is the public shape of an account.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(u *identity.User) *userView {
	if u == nil {
		return nil
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return &userView{ID: u.ID, Email: u.Email, Roles: roles, CreatedAt: u.CreatedAt}
}

type authResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	User    *userView `json:"user"`
}

// writeAuthError maps authentication failures; every credential problem is a
// 401 so the response does not reveal which part was wrong.
func writeAuthError(w http.ResponseWriter, err error, fallback string) {
	var ve *model.ValidationError
	switch {
	case model.IsCanceled(err):
		w.WriteHeader(server.StatusClientClosedRequest)
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, identity.ErrUserExists):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, identity.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "Account is disabled")
	case errors.Is(err, identity.ErrAccountLocked):
		writeError(w, http.StatusUnauthorized, "Account is locked, try again later")
	default:
		writeInternalError(w, err, fallback)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	session, err := h.auth.Register(r.Context(), creds)
	if err != nil {
		writeAuthError(w, err, "Registration failed")
		return
	}

	h.auth.SetSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Message: "Registration successful", User: newUserView(session.User)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds identity.Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	session, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		writeAuthError(w, err, "Login failed")
		return
	}

	h.auth.SetSessionCookie(w, session)
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Login successful", User: newUserView(session.User)})
}

// handleLogout succeeds without a session so clients can always clear state.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), h.auth.TokenFromRequest(r)); err != nil {
		writeInternalError(w, err, "Logout failed")
		return
	}
	h.auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := h.auth.Me(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		writeInternalError(w, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: newUserView(user)})
}
