package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Source is the acquisition channel of a lead.
type Source string

const (
	SourceWebsite     Source = "website"
	SourceFacebookAds Source = "facebook_ads"
	SourceGoogleAds   Source = "google_ads"
	SourceReferral    Source = "referral"
	SourceEvents      Source = "events"
	SourceOther       Source = "other"
)

// Sources returns every accepted lead source.
func Sources() []Source {
	return []Source{SourceWebsite, SourceFacebookAds, SourceGoogleAds, SourceReferral, SourceEvents, SourceOther}
}

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusWon       Status = "won"
)

// Statuses returns every accepted lead status.
func Statuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon}
}

// Lead is the client-facing representation of a stored lead.
type Lead struct {
	ID             string     `json:"_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Company        string     `json:"company"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Source         Source     `json:"source"`
	Status         Status     `json:"status"`
	Score          int        `json:"score"`
	LeadValue      float64    `json:"lead_value"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	IsQualified    bool       `json:"is_qualified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LeadInput is a create or partial-update payload. Nil fields were not supplied.
// created_at and updated_at are not part of the payload and cannot be written by clients.
type LeadInput struct {
	FirstName      *string      `json:"first_name" validate:"omitempty,max=100"`
	LastName       *string      `json:"last_name" validate:"omitempty,max=100"`
	Email          *string      `json:"email" validate:"omitempty,email,max=254"`
	Phone          *string      `json:"phone" validate:"omitempty,max=50"`
	Company        *string      `json:"company" validate:"omitempty,max=200"`
	City           *string      `json:"city" validate:"omitempty,max=100"`
	State          *string      `json:"state" validate:"omitempty,max=100"`
	Source         *Source      `json:"source" validate:"omitempty,oneof=website facebook_ads google_ads referral events other"`
	Status         *Status      `json:"status" validate:"omitempty,oneof=new contacted qualified lost won"`
	Score          *int         `json:"score" validate:"omitempty,gte=0,lte=100"`
	LeadValue      *float64     `json:"lead_value" validate:"omitempty,gte=0"`
	LastActivityAt OptionalTime `json:"last_activity_at"`
	IsQualified    *bool        `json:"is_qualified"`
}

// Normalize trims every supplied string and lowercases the email.
func (in *LeadInput) Normalize() {
	for _, s := range []*string{in.FirstName, in.LastName, in.Email, in.Phone, in.Company, in.City, in.State} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if in.Email != nil {
		*in.Email = strings.ToLower(*in.Email)
	}
}

// HasRequired reports whether first name, last name and email are all present and non-blank.
func (in *LeadInput) HasRequired() bool {
	return nonBlank(in.FirstName) && nonBlank(in.LastName) && nonBlank(in.Email)
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// NewLead builds a lead from a create payload, applying defaults for absent fields.
func NewLead(in LeadInput, now time.Time) *Lead {
	l := &Lead{
		Source:    SourceOther,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.apply(in)
	return l
}

// Apply copies the supplied fields of in onto the lead.
func (l *Lead) Apply(in LeadInput) {
	l.apply(in)
}

func (l *Lead) apply(in LeadInput) {
	setString(&l.FirstName, in.FirstName)
	setString(&l.LastName, in.LastName)
	setString(&l.Email, in.Email)
	setString(&l.Phone, in.Phone)
	setString(&l.Company, in.Company)
	setString(&l.City, in.City)
	setString(&l.State, in.State)
	if in.Source != nil {
		l.Source = *in.Source
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.Score != nil {
		l.Score = *in.Score
	}
	if in.LeadValue != nil {
		l.LeadValue = *in.LeadValue
	}
	if in.LastActivityAt.Set {
		l.LastActivityAt = in.LastActivityAt.Value
	}
	if in.IsQualified != nil {
		l.IsQualified = *in.IsQualified
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Changes returns the supplied fields keyed by their stored field name.
func (in LeadInput) Changes() map[string]any {
	out := make(map[string]any)
	put := func(name string, present bool, v any) {
		if present {
			out[name] = v
		}
	}
	put("first_name", in.FirstName != nil, deref(in.FirstName))
	put("last_name", in.LastName != nil, deref(in.LastName))
	put("email", in.Email != nil, deref(in.Email))
	put("phone", in.Phone != nil, deref(in.Phone))
	put("company", in.Company != nil, deref(in.Company))
	put("city", in.City != nil, deref(in.City))
	put("state", in.State != nil, deref(in.State))
	if in.Source != nil {
		out["source"] = string(*in.Source)
	}
	if in.Status != nil {
		out["status"] = string(*in.Status)
	}
	if in.Score != nil {
		out["score"] = *in.Score
	}
	if in.LeadValue != nil {
		out["lead_value"] = *in.LeadValue
	}
	if in.LastActivityAt.Set {
		if in.LastActivityAt.Value == nil {
			out["last_activity_at"] = nil
		} else {
			out["last_activity_at"] = *in.LastActivityAt.Value
		}
	}
	if in.IsQualified != nil {
		out["is_qualified"] = *in.IsQualified
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalTime distinguishes an absent timestamp from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON accepts null, RFC 3339 and the zone-less date forms understood by ParseTime.
func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return NewValidationError("last_activity_at must be a date string or null",
			FieldError{Field: "last_activity_at", Message: "must be a date string or null"})
	}
	if strings.TrimSpace(s) == "" {
		o.Value = nil
		return nil
	}
	t, err := ParseTime(s, time.UTC)
	if err != nil {
		return NewValidationError("last_activity_at is not a valid date",
			FieldError{Field: "last_activity_at", Message: "is not a valid date"})
	}
	o.Value = &t
	return nil
}

// MarshalJSON writes the value or null.
func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
