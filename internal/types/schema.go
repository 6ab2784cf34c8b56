package types

import (
	"encoding/json"
	"time"
)

// Schema is a named JSON object describing the expected extraction output.
// Content is kept raw; the coordinator only validates that it is an object.
type Schema struct {
	Name      string          `json:"name"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// SchemaSummary is the list-view projection (content omitted).
type SchemaSummary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
