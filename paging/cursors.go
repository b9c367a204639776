// Package paging keeps the cursor history of a paginated listing.
package paging

import (
	"goflare.io/storefront/docstore"
	"goflare.io/storefront/models"
)

// Cursors is an ordered, contiguous history of page cursors. The cursor at
// position n references the last document of page n, starting at page 1.
type Cursors struct {
	list []docstore.Cursor
}

// After returns the cursor to resume from when loading page. Page 1 starts at
// the beginning and needs no cursor.
func (c *Cursors) After(page int) (docstore.Cursor, error) {
	if page < 1 {
		return "", models.Invalid("page must be at least 1, got %d", page)
	}
	if page == 1 {
		return "", nil
	}
	cur, ok := c.Get(page - 1)
	if !ok {
		return "", models.ErrMissingCursor
	}
	return cur, nil
}

func (c *Cursors) Get(page int) (docstore.Cursor, bool) {
	if page < 1 || page > len(c.list) {
		return "", false
	}
	return c.list[page-1], true
}

// Record stores cur as the cursor of page. It only extends the history: a page
// that is already recorded, a gap, or an empty cursor is ignored.
func (c *Cursors) Record(page int, cur docstore.Cursor) bool {
	if cur.IsZero() || page != len(c.list)+1 {
		return false
	}
	c.list = append(c.list, cur)
	return true
}

func (c *Cursors) Len() int {
	return len(c.list)
}
