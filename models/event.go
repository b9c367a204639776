package models

import (
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Event records a payment provider event that has been handled.
type Event struct {
	ID          string           `json:"id"`
	Type        stripe.EventType `json:"type"`
	ProcessedAt time.Time        `json:"processed_at"`
}

func (e *Event) ToDocument() map[string]any {
	return map[string]any{
		"type":        string(e.Type),
		"processedAt": e.ProcessedAt.UnixMilli(),
	}
}

func (e *Event) ConvertDocument(id string, data map[string]any) *Event {
	e.ID = id
	e.Type = stripe.EventType(stringField(data, "type"))
	e.ProcessedAt = time.UnixMilli(int64Field(data, "processedAt")).UTC()
	return e
}
