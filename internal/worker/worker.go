package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/extractor"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

// ErrShutdown is returned by Run when the coordinator ordered the worker
// to terminate.
var ErrShutdown = errors.New("shutdown ordered by coordinator")

const (
	defaultHeartbeatInterval = 10 * time.Second
	defaultPollInterval      = time.Second
	// Consecutive transient failures before the worker declares itself in
	// error state.
	transientFailureLimit = 3
)

type Config struct {
	CoordinatorURL string
	Name           string
	APIURL         string
	Model          string
	APIKey         string
	// WorkerID enables resume mode: registration is skipped and the
	// coordinator must already hold this record in stopped/error state.
	WorkerID          string
	ProcessID         string
	SchemaDir         string
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
}

// Worker drives the single-threaded control loop against one coordinator.
type Worker struct {
	cfg       Config
	client    *Client
	extractor extractor.Extractor
	log       *logger.Logger

	workerID        string
	state           types.WorkerState
	currentDocument string
	lastHeartbeat   time.Time
	transientFails  int
}

func New(cfg Config, client *Client, ex extractor.Extractor, log *logger.Logger) *Worker {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.SchemaDir == "" {
		cfg.SchemaDir = "./schemas"
	}
	return &Worker{
		cfg:       cfg,
		client:    client,
		extractor: ex,
		log:       log.With("worker_name", cfg.Name),
		state:     types.WorkerIdle,
	}
}

// Run executes the control loop until ctx is cancelled or the coordinator
// orders a shutdown. Cancellation performs the clean-stop sequence: state
// goes to stopped and one final heartbeat is attempted.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.register(ctx); err != nil {
		return err
	}
	w.log.Info("Worker started", "worker_id", w.workerID, "model", w.cfg.Model)

	for {
		select {
		case <-ctx.Done():
			w.shutdownCleanly()
			return nil
		default:
		}

		if err := w.maybeHeartbeat(ctx, false); err != nil {
			if errors.Is(err, ErrShutdown) {
				w.log.Info("Received shutdown command from coordinator")
				return ErrShutdown
			}
		}

		if !w.state.Active() {
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}

		doc, err := w.client.NextDocument(ctx, w.workerID)
		if err != nil {
			w.noteFailure(err)
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}
		w.noteSuccess()
		if doc == nil {
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}

		if err := w.processDocument(ctx, doc); errors.Is(err, ErrShutdown) {
			w.log.Info("Received shutdown command from coordinator")
			return ErrShutdown
		}
	}
}

func (w *Worker) register(ctx context.Context) error {
	if w.cfg.WorkerID != "" {
		// Resume mode: adopt the pre-assigned id and skip registration.
		w.workerID = w.cfg.WorkerID
		w.log.Info("Using existing worker ID", "worker_id", w.workerID)
		return nil
	}
	workerID, warning, err := w.client.Register(ctx, w.cfg.Name, w.cfg.APIURL, w.cfg.Model, w.cfg.APIKey, w.cfg.ProcessID)
	if err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	if warning != "" {
		w.log.Warn(warning)
	}
	w.workerID = workerID
	return nil
}

// maybeHeartbeat sends a heartbeat when the interval elapsed, or always
// when force is set. Commands from the coordinator are applied before
// returning.
func (w *Worker) maybeHeartbeat(ctx context.Context, force bool) error {
	if !force && time.Since(w.lastHeartbeat) < w.cfg.HeartbeatInterval {
		return nil
	}

	command, err := w.client.Heartbeat(ctx, w.workerID, w.state, w.currentDocument)
	if err != nil {
		w.noteFailure(err)
		return err
	}
	w.lastHeartbeat = time.Now()
	w.noteSuccess()

	switch command {
	case types.CommandShutdown:
		return ErrShutdown
	case types.CommandStop:
		w.log.Info("Received stop command from coordinator")
		w.state = types.WorkerStopped
	case types.CommandNone:
		// The stop command stops arriving once an operator starts the
		// worker again; resume claiming on the next cycle.
		if w.state == types.WorkerStopped {
			w.log.Info("Stop lifted by coordinator, resuming")
			w.state = types.WorkerIdle
		}
	}
	return nil
}

func (w *Worker) processDocument(ctx context.Context, doc *types.Document) error {
	w.state = types.WorkerProcessing
	w.currentDocument = doc.ID
	defer func() {
		w.currentDocument = ""
	}()

	if err := w.maybeHeartbeat(ctx, true); err != nil && errors.Is(err, ErrShutdown) {
		return ErrShutdown
	}

	result, isError := w.extract(ctx, doc)

	body := CompleteBody{
		IsError:    isError,
		FilePath:   doc.Path,
		SchemaName: doc.SchemaName,
		Result:     result,
	}
	if err := w.client.Complete(ctx, w.workerID, doc.ID, body); err != nil {
		w.log.Error("Failed to report completion", "document_id", doc.ID, "error", err)
		w.noteFailure(err)
		return nil
	}

	w.log.Info("Document processed", "document_id", doc.ID, "path", doc.Path, "is_error", isError)
	w.state = types.WorkerIdle
	return nil
}

// extract resolves the schema, runs the extractor and classifies the
// outcome. Failures never escape; they become error results.
func (w *Worker) extract(ctx context.Context, doc *types.Document) (json.RawMessage, bool) {
	schemaContent, err := w.resolveSchema(ctx, doc.SchemaName)
	if err != nil {
		w.log.Warn("Schema resolution failed", "document_id", doc.ID, "schema", doc.SchemaName, "error", err)
		return errorResult(err), true
	}

	result, err := w.extractor.Extract(ctx, doc.Path, schemaContent, extractor.ModelConfig{
		APIURL: w.cfg.APIURL,
		Model:  w.cfg.Model,
		APIKey: w.cfg.APIKey,
	})
	if err != nil {
		w.log.Warn("Extraction failed", "document_id", doc.ID, "error", err)
		return errorResult(apperr.Wrap(apperr.KindUpstream, err)), true
	}
	return result, extractor.IsErrorResult(result)
}

func errorResult(err error) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return raw
}

// noteFailure counts consecutive transient failures and flips the worker
// into error state once the streak reaches the limit.
func (w *Worker) noteFailure(err error) {
	if !apperr.Is(err, apperr.KindTransient) {
		return
	}
	w.transientFails++
	if w.transientFails >= transientFailureLimit && w.state != types.WorkerStopped {
		if w.state != types.WorkerError {
			w.log.Error("Entering error state after repeated transient failures", "failures", w.transientFails)
		}
		w.state = types.WorkerError
	}
}

// noteSuccess resets the failure streak; a worker that erred only because
// the coordinator was unreachable recovers once connectivity returns.
func (w *Worker) noteSuccess() {
	w.transientFails = 0
	if w.state == types.WorkerError {
		w.state = types.WorkerIdle
	}
}

// shutdownCleanly runs on interrupt: flip to stopped and push one last
// heartbeat so the coordinator records the state before the process exits.
func (w *Worker) shutdownCleanly() {
	w.state = types.WorkerStopped
	w.currentDocument = ""

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := w.client.Heartbeat(ctx, w.workerID, w.state, ""); err != nil {
		w.log.Warn("Final heartbeat failed", "error", err)
	}
	w.log.Info("Worker stopped")
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// State exposes the in-memory state for tests and diagnostics.
func (w *Worker) State() types.WorkerState { return w.state }

// WorkerID is empty until registration succeeds.
func (w *Worker) WorkerID() string { return w.workerID }
