package types

import (
	"time"
)

// WorkerState values travel over the wire and are stored verbatim in the
// worker hash, so they stay lowercase.
type WorkerState string

const (
	WorkerIdle       WorkerState = "idle"
	WorkerProcessing WorkerState = "processing"
	WorkerStopped    WorkerState = "stopped"
	WorkerError      WorkerState = "error"
	WorkerRemoving   WorkerState = "removing"
)

func (s WorkerState) Valid() bool {
	switch s {
	case WorkerIdle, WorkerProcessing, WorkerStopped, WorkerError, WorkerRemoving:
		return true
	}
	return false
}

// Active reports whether the worker may claim documents in this state.
func (s WorkerState) Active() bool {
	switch s {
	case WorkerStopped, WorkerError, WorkerRemoving:
		return false
	}
	return true
}

// Worker is the coordinator-side record for a registered worker. The
// coordinator is the sole mutator; workers only see it through reads.
type Worker struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	APIURL             string      `json:"api_url"`
	Model              string      `json:"model"`
	APIKey             string      `json:"-"`
	Status             WorkerState `json:"status"`
	RegisteredAt       time.Time   `json:"registered_at"`
	LastHeartbeat      time.Time   `json:"last_heartbeat"`
	CurrentDocument    string      `json:"current_document,omitempty"`
	ProcessedDocuments int64       `json:"processed_documents"`
	Errors             int64       `json:"errors"`
	ProcessID          string      `json:"process_id,omitempty"`
}

// Stale reports whether the worker has not heartbeated within timeout.
// Staleness is observational only; nothing evicts on it.
func (w *Worker) Stale(now time.Time, timeout time.Duration) bool {
	return now.Sub(w.LastHeartbeat) > timeout
}

// WorkerCommand is the imperative piggy-backed on heartbeat responses.
type WorkerCommand string

const (
	CommandNone     WorkerCommand = ""
	CommandStop     WorkerCommand = "stop"
	CommandShutdown WorkerCommand = "shutdown"
)
