// Package draft persists the per-browser state of the form between
// requests: the recipient list and the staged attachments.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/shineum/mailform/internal/attachment"
)

// ErrNotFound is returned when a draft does not exist or has expired.
var ErrNotFound = errors.New("draft not found")

// Draft is the server-held state of one browser's form.
type Draft struct {
	ID          string            `json:"id"`
	Recipients  []string          `json:"recipients"`
	Attachments []attachment.File `json:"attachments"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store loads and saves drafts by ID.
type Store interface {
	Load(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id string) error
}

// New returns an empty draft with a fresh ID.
func New() (*Draft, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	return &Draft{ID: id}, nil
}

// NewID returns a random draft ID.
func NewID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating draft id: %w", err)
	}
	return id.String(), nil
}

// ValidID reports whether id looks like an ID produced by NewID.
func ValidID(id string) bool {
	u, err := uuid.FromString(id)
	return err == nil && u.Version() == uuid.V4
}

// Clone returns a deep copy of d. Attachment contents are shared since they
// are never modified in place.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Recipients = append([]string(nil), d.Recipients...)
	c.Attachments = append([]attachment.File(nil), d.Attachments...)
	return &c
}
