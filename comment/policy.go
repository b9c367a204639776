package comment

import (
	"fmt"

	"goflare.io/storefront/models"
)

// Policy decides whether actor may edit or delete c.
type Policy interface {
	Allow(actor *models.Session, c *models.Comment) error
}

// AuthorOrAdmin lets the comment's author and administrators mutate it.
type AuthorOrAdmin struct{}

func (AuthorOrAdmin) Allow(actor *models.Session, c *models.Comment) error {
	if actor == nil {
		return fmt.Errorf("comment %s: %w", c.ID, models.ErrAuth)
	}
	if actor.IsAdmin || actor.UID == c.AuthorID {
		return nil
	}
	return fmt.Errorf("comment %s belongs to another user: %w", c.ID, models.ErrForbidden)
}

// AllowAll performs no check. Use it for trusted callers such as admin tooling.
type AllowAll struct{}

func (AllowAll) Allow(*models.Session, *models.Comment) error {
	return nil
}
