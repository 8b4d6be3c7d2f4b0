package compose

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shineum/mailform/internal/recipient"
)

const (
	minNameLen    = 2
	minSubjectLen = 3
	minMessageLen = 10
)

// Form holds the author-entered fields of a message.
type Form struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

// ValidationError lists every field that failed validation, keyed by the
// field's form name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Subject: strings.TrimSpace(f.Subject),
		Message: strings.TrimSpace(f.Message),
	}
}

// Validate checks every field and returns a *ValidationError naming all of
// the failures, or nil. Lengths are counted in characters.
func (f Form) Validate() error {
	f = f.Normalize()
	fields := make(map[string]string)

	if utf8.RuneCountInString(f.Name) < minNameLen {
		fields["name"] = "name must be at least 2 characters"
	}
	switch {
	case f.Email == "":
		fields["email"] = "email is required"
	case !recipient.Valid(f.Email):
		fields["email"] = "please enter a valid email address"
	}
	if utf8.RuneCountInString(f.Subject) < minSubjectLen {
		fields["subject"] = "subject must be at least 3 characters"
	}
	if utf8.RuneCountInString(f.Message) < minMessageLen {
		fields["message"] = "message must be at least 10 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
