package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/docproc-backend/internal/extractor"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

type fakeExtractor struct {
	result json.RawMessage
	err    error

	mu           sync.Mutex
	calls        int
	gotSchema    json.RawMessage
	gotModel     string
	gotFilePaths []string
}

func (f *fakeExtractor) Extract(ctx context.Context, filePath string, schemaContent json.RawMessage, cfg extractor.ModelConfig) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotSchema = schemaContent
	f.gotModel = cfg.Model
	f.gotFilePaths = append(f.gotFilePaths, filePath)
	return f.result, f.err
}

// stubCoordinator is a minimal coordinator that hands out one document and
// records the completion.
type stubCoordinator struct {
	mu           sync.Mutex
	document     *types.Document
	claimed      bool
	completes    []CompleteBody
	heartbeats   []string
	heartbeatIDs []string
	command      string

	completed chan struct{}
}

func newStubCoordinator(doc *types.Document) *stubCoordinator {
	return &stubCoordinator{document: doc, completed: make(chan struct{}, 8)}
}

func (s *stubCoordinator) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/register-worker", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "Worker registered",
			"worker_id": "w-test",
		})
	})
	mux.HandleFunc("/api/worker-heartbeat", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		s.mu.Lock()
		status, _ := payload["status"].(string)
		workerID, _ := payload["worker_id"].(string)
		s.heartbeats = append(s.heartbeats, status)
		s.heartbeatIDs = append(s.heartbeatIDs, workerID)
		command := s.command
		s.mu.Unlock()
		if command != "" {
			json.NewEncoder(w).Encode(map[string]any{"command": command})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "Heartbeat received"})
	})
	mux.HandleFunc("/api/next-document/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.document != nil && !s.claimed {
			s.claimed = true
			json.NewEncoder(w).Encode(map[string]any{
				"status":   "Document assigned",
				"document": s.document,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "No documents in queue"})
	})
	mux.HandleFunc("/api/document-processed", func(w http.ResponseWriter, r *http.Request) {
		var body CompleteBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.completes = append(s.completes, body)
		s.mu.Unlock()
		s.completed <- struct{}{}
		json.NewEncoder(w).Encode(map[string]any{"status": "Document processed and result saved"})
	})
	mux.HandleFunc("/api/schema/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/schema/")
		if name == "invoice" {
			json.NewEncoder(w).Encode(map[string]any{
				"name":    name,
				"content": map[string]any{"total": "number"},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "Schema not found"})
	})
	return mux
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func newTestWorker(t *testing.T, serverURL string, ex extractor.Extractor) *Worker {
	t.Helper()
	log := newTestLogger(t)
	client := NewClient(serverURL, log)
	return New(Config{
		CoordinatorURL:    serverURL,
		Name:              "test-worker",
		APIURL:            "http://model.invalid",
		Model:             "gpt-4o-mini",
		HeartbeatInterval: 50 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}, client, ex, log)
}

func TestWorkerProcessesOneDocument(t *testing.T) {
	doc := &types.Document{ID: "d-1", Path: "/data/invoice.pdf", SchemaName: "invoice"}
	stub := newStubCoordinator(doc)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	ex := &fakeExtractor{result: json.RawMessage(`{"total": 42}`)}
	w := newTestWorker(t, server.URL, ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stub.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never completed the document")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if w.WorkerID() != "w-test" {
		t.Fatalf("worker id: want=w-test got=%s", w.WorkerID())
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.completes) != 1 {
		t.Fatalf("completions: want=1 got=%d", len(stub.completes))
	}
	got := stub.completes[0]
	if got.IsError {
		t.Fatalf("completion flagged as error: %+v", got)
	}
	if got.FilePath != "/data/invoice.pdf" || got.SchemaName != "invoice" {
		t.Fatalf("completion metadata: %+v", got)
	}
	if ex.calls != 1 {
		t.Fatalf("extractor calls: want=1 got=%d", ex.calls)
	}
	if len(ex.gotSchema) == 0 {
		t.Fatalf("extractor did not receive resolved schema")
	}

	// Final heartbeat reported the stopped state.
	last := stub.heartbeats[len(stub.heartbeats)-1]
	if last != string(types.WorkerStopped) {
		t.Fatalf("final heartbeat status: want=%s got=%s", types.WorkerStopped, last)
	}
}

func TestWorkerClassifiesErrorResult(t *testing.T) {
	doc := &types.Document{ID: "d-2", Path: "/data/bad.pdf"}
	stub := newStubCoordinator(doc)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	ex := &fakeExtractor{result: json.RawMessage(`{"error": "boom"}`)}
	w := newTestWorker(t, server.URL, ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stub.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never completed the document")
	}
	cancel()
	<-done

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if !stub.completes[0].IsError {
		t.Fatalf("error result not classified as error: %+v", stub.completes[0])
	}
}

func TestWorkerUpstreamFailureBecomesErrorOutcome(t *testing.T) {
	doc := &types.Document{ID: "d-3", Path: "/data/x.pdf"}
	stub := newStubCoordinator(doc)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	ex := &fakeExtractor{err: fmt.Errorf("connection refused")}
	w := newTestWorker(t, server.URL, ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stub.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never completed the document")
	}
	cancel()
	<-done

	stub.mu.Lock()
	defer stub.mu.Unlock()
	got := stub.completes[0]
	if !got.IsError {
		t.Fatalf("upstream failure not classified as error: %+v", got)
	}
	var payload map[string]any
	if err := json.Unmarshal(got.Result, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] == nil {
		t.Fatalf("error payload missing error field: %v", payload)
	}
}

func TestWorkerMissingSchemaFailsJob(t *testing.T) {
	doc := &types.Document{ID: "d-4", Path: "/data/x.pdf", SchemaName: "missing"}
	stub := newStubCoordinator(doc)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	ex := &fakeExtractor{result: json.RawMessage(`{"ok": true}`)}
	w := newTestWorker(t, server.URL, ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stub.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never completed the document")
	}
	cancel()
	<-done

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if !stub.completes[0].IsError {
		t.Fatalf("missing schema must fail the job: %+v", stub.completes[0])
	}
	if ex.calls != 0 {
		t.Fatalf("extractor must not run without a schema: calls=%d", ex.calls)
	}
}

func TestWorkerSchemaFilesystemFallback(t *testing.T) {
	dir := t.TempDir()
	content := `{"field": "string"}`
	if err := os.WriteFile(filepath.Join(dir, "local.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	doc := &types.Document{ID: "d-5", Path: "/data/x.pdf", SchemaName: "local"}
	stub := newStubCoordinator(doc)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	log := newTestLogger(t)
	ex := &fakeExtractor{result: json.RawMessage(`{"ok": true}`)}
	w := New(Config{
		CoordinatorURL:    server.URL,
		Name:              "fallback-worker",
		APIURL:            "http://model.invalid",
		Model:             "gpt-4o-mini",
		SchemaDir:         dir,
		HeartbeatInterval: 50 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}, NewClient(server.URL, log), ex, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-stub.completed:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never completed the document")
	}
	cancel()
	<-done

	if string(ex.gotSchema) != content {
		t.Fatalf("fallback schema: want=%s got=%s", content, ex.gotSchema)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.completes[0].IsError {
		t.Fatalf("fallback-resolved job flagged as error")
	}
}

func TestWorkerObeysShutdownCommand(t *testing.T) {
	stub := newStubCoordinator(nil)
	stub.command = "shutdown"
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	w := newTestWorker(t, server.URL, &fakeExtractor{})

	err := w.Run(context.Background())
	if !errors.Is(err, ErrShutdown) {
		t.Fatalf("Run: want ErrShutdown got %v", err)
	}
}

func TestWorkerObeysStopCommand(t *testing.T) {
	stub := newStubCoordinator(nil)
	stub.command = "stop"
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	w := newTestWorker(t, server.URL, &fakeExtractor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait until the worker reports the stopped state back.
	sawStopped := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stub.mu.Lock()
		for _, status := range stub.heartbeats {
			if status == string(types.WorkerStopped) {
				sawStopped = true
			}
		}
		stub.mu.Unlock()
		if sawStopped {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if !sawStopped {
		t.Fatalf("worker never reported stopped state after stop command")
	}
	if w.State() != types.WorkerStopped {
		t.Fatalf("state: want=%s got=%s", types.WorkerStopped, w.State())
	}
}

func TestWorkerResumeModeSkipsRegistration(t *testing.T) {
	stub := newStubCoordinator(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/register-worker", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("resume mode must not register")
	})
	mux.Handle("/", stub.handler())
	server := httptest.NewServer(mux)
	defer server.Close()

	log := newTestLogger(t)
	w := New(Config{
		CoordinatorURL:    server.URL,
		Name:              "resumed",
		APIURL:            "http://model.invalid",
		Model:             "gpt-4o-mini",
		WorkerID:          "w-existing",
		HeartbeatInterval: 50 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}, NewClient(server.URL, log), &fakeExtractor{}, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the adopted id to show up in a heartbeat.
	sawID := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stub.mu.Lock()
		for _, id := range stub.heartbeatIDs {
			if id == "w-existing" {
				sawID = true
			}
		}
		stub.mu.Unlock()
		if sawID {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if !sawID {
		t.Fatalf("resumed worker never heartbeated with the adopted id")
	}
	if w.WorkerID() != "w-existing" {
		t.Fatalf("worker id: want=w-existing got=%s", w.WorkerID())
	}
}
