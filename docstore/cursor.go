package docstore

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"goflare.io/storefront/models"
)

// Cursor is an opaque pagination token. It references the last document of a
// page by its sort value and id.
type Cursor string

type cursorPayload struct {
	Value any    `json:"v,omitempty"`
	ID    string `json:"id"`
}

func NewCursor(value any, id string) Cursor {
	b, err := json.Marshal(cursorPayload{Value: value, ID: id})
	if err != nil {
		// sort values are always JSON scalars
		b, _ = json.Marshal(cursorPayload{ID: id})
	}
	return Cursor(base64.RawURLEncoding.EncodeToString(b))
}

func (c Cursor) IsZero() bool {
	return c == ""
}

// Decode returns the sort value and document id the cursor references.
func (c Cursor) Decode() (any, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, "", models.Invalid("malformed cursor")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var p cursorPayload
	if err = dec.Decode(&p); err != nil || p.ID == "" {
		return nil, "", models.Invalid("malformed cursor")
	}

	return normalizeNumber(p.Value), p.ID, nil
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}
