// Package docstore is the gateway to the remote document database. Every backend
// exposes the same small set of operations: create, get, update, delete and an
// ordered, cursor-paginated query.
package docstore

import (
	"context"
)

// Direction is the sort direction of a query.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Document is a single stored document. Data holds top-level fields only.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

type Query struct {
	Collection string
	Filters    []Filter
	// OrderBy is the sort field. Ties, and an empty OrderBy, are ordered by document id.
	OrderBy   string
	Direction Direction
	Limit     int
	// After resumes the query strictly after the document the cursor references.
	After Cursor
}

// Page is one query result. LastCursor is empty iff Docs is empty.
type Page struct {
	Docs       []Document
	LastCursor Cursor
}

var _ Gateway = (*MemoryGateway)(nil)

type Gateway interface {
	// Create stores a new document and returns its id. A provider id is generated when doc.ID is empty;
	// an explicit id that is taken fails with models.ErrAlreadyExists.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Get returns models.ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) (Page, error)
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
