package types

import (
	"time"
)

// Document is one unit of work: a file path plus an optional schema name.
// It lives in the pending queue from enqueue until a worker claims it, then
// in the processing list until completion.
type Document struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	SchemaName string    `json:"schema_name,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
