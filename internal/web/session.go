package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shineum/mailform/internal/draft"
)

const draftIDKey = "draft_id"

// session resolves the draft ID from the cookie, issuing a new one when the
// cookie is missing or malformed.
func (s *Server) session(c *fiber.Ctx) error {
	id := c.Cookies(s.cfg.CookieName)
	if !draft.ValidID(id) {
		var err error
		id, err = draft.NewID()
		if err != nil {
			return err
		}
	}

	cookie := &fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.cfg.DraftTTL > 0 {
		cookie.Expires = time.Now().Add(s.cfg.DraftTTL)
	}
	c.Cookie(cookie)

	c.Locals(draftIDKey, id)
	return c.Next()
}

func draftID(c *fiber.Ctx) string {
	id, _ := c.Locals(draftIDKey).(string)
	return id
}

// load returns the stored draft, or an empty one when none exists yet.
func (s *Server) load(ctx context.Context, id string) (*draft.Draft, error) {
	d, err := s.store.Load(ctx, id)
	if errors.Is(err, draft.ErrNotFound) {
		return &draft.Draft{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStorage, err)
	}
	return d, nil
}

// update runs fn on the request's draft under its lock and saves the result
// when fn succeeds.
func (s *Server) update(c *fiber.Ctx, fn func(d *draft.Draft) error) (*draft.Draft, error) {
	id := draftID(c)
	unlock := s.locks.Lock(id)
	defer unlock()

	ctx := c.UserContext()
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return d, err
	}
	if err := s.store.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: %v", errStorage, err)
	}
	return d, nil
}

// snapshot loads the draft under its lock without saving it.
func (s *Server) snapshot(c *fiber.Ctx) (*draft.Draft, error) {
	id := draftID(c)
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.load(c.UserContext(), id)
}
