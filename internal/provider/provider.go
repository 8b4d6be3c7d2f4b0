// Package provider defines the boundary between the compose form and the
// service that actually delivers a message.
package provider

import (
	"context"

	"github.com/shineum/mailform/internal/email"
)

// Provider is implemented by every delivery backend. The default backend
// only simulates delivery; the others hand the payload to an external
// service.
type Provider interface {
	// Send hands msg to the backend. It returns an error if the hand-off
	// fails.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this provider.
	Name() string
}
