package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway keeps documents in process memory. It is safe for concurrent use
// and is used for local development and tests.
type MemoryGateway struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	newID       func() string
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		collections: make(map[string]map[string]map[string]any),
		newID:       uuid.NewString,
	}
}

func (g *MemoryGateway) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", writeError("create", collection, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	col, ok := g.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		g.collections[collection] = col
	}

	id := doc.ID
	if id == "" {
		id = g.newID()
	}
	if _, exists := col[id]; exists {
		return "", alreadyExists(collection, id)
	}

	col[id] = copyData(doc.Data)
	return id, nil
}

func (g *MemoryGateway) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, queryError("get", collection, err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	data, ok := g.collections[collection][id]
	if !ok {
		return Document{}, notFound(collection, id)
	}
	return Document{ID: id, Data: copyData(data)}, nil
}

func (g *MemoryGateway) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return writeError("update", collection, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	data, ok := g.collections[collection][id]
	if !ok {
		return notFound(collection, id)
	}
	for k, v := range fields {
		data[k] = v
	}
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return writeError("delete", collection, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	col := g.collections[collection]
	if _, ok := col[id]; !ok {
		return notFound(collection, id)
	}
	delete(col, id)
	return nil
}

func (g *MemoryGateway) Query(ctx context.Context, q Query) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, queryError("query", q.Collection, err)
	}

	var (
		afterValue any
		afterID    string
	)
	if !q.After.IsZero() {
		v, id, err := q.After.Decode()
		if err != nil {
			return Page{}, err
		}
		afterValue, afterID = v, id
	}

	g.mu.RLock()
	docs := make([]Document, 0)
	for id, data := range g.collections[q.Collection] {
		if matches(data, q.Filters) {
			docs = append(docs, Document{ID: id, Data: copyData(data)})
		}
	}
	g.mu.RUnlock()

	less := func(av any, aid string, bv any, bid string) bool {
		c := 0
		if q.OrderBy != "" {
			c = compareValues(av, bv)
		}
		if c == 0 {
			c = strings.Compare(aid, bid)
		}
		if q.Direction == Desc {
			return c > 0
		}
		return c < 0
	}

	sort.Slice(docs, func(i, j int) bool {
		return less(docs[i].Data[q.OrderBy], docs[i].ID, docs[j].Data[q.OrderBy], docs[j].ID)
	})

	if afterID != "" {
		start := len(docs)
		for i, d := range docs {
			if less(afterValue, afterID, d.Data[q.OrderBy], d.ID) {
				start = i
				break
			}
		}
		docs = docs[start:]
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}

	page := Page{Docs: docs}
	if len(docs) > 0 {
		last := docs[len(docs)-1]
		var v any
		if q.OrderBy != "" {
			v = last.Data[q.OrderBy]
		}
		page.LastCursor = NewCursor(v, last.ID)
	}
	return page, nil
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || compareValues(v, f.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues orders nil < numbers < strings < everything else.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 1:
		fa, fb := toFloat(a), toFloat(b)
		ia, aInt := toInt(a)
		ib, bInt := toInt(b)
		if aInt && bInt {
			switch {
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			}
			return 0
		}
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64:
		return 1
	case string:
		return 2
	default:
		return 3
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
