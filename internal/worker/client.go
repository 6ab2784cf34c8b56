package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

// Client is the worker-side view of the coordinator API. It speaks the
// legacy convention: business rejections arrive as 200 bodies with an
// `error` field.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(coordinatorURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(coordinatorURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("client", "CoordinatorClient"),
	}
}

type registerPayload struct {
	WorkerName string `json:"worker_name"`
	APIURL     string `json:"api_url"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key,omitempty"`
	ProcessID  string `json:"process_id,omitempty"`
}

type registerResponse struct {
	Status   string `json:"status"`
	WorkerID string `json:"worker_id"`
	Warning  string `json:"warning"`
	Error    string `json:"error"`
}

// Register returns the assigned worker id plus any configuration warning.
func (c *Client) Register(ctx context.Context, name, apiURL, model, apiKey, processID string) (string, string, error) {
	payload := registerPayload{
		WorkerName: name,
		APIURL:     apiURL,
		Model:      model,
		APIKey:     apiKey,
		ProcessID:  processID,
	}
	var resp registerResponse
	if err := c.postJSON(ctx, "/api/register-worker", nil, payload, &resp); err != nil {
		return "", "", err
	}
	if resp.Error != "" {
		return "", "", apperr.New(apperr.KindFatal, "registration rejected: %s", resp.Error)
	}
	if resp.WorkerID == "" {
		return "", "", apperr.New(apperr.KindFatal, "registration reply carried no worker id")
	}
	return resp.WorkerID, resp.Warning, nil
}

type heartbeatPayload struct {
	WorkerID   string `json:"worker_id"`
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
}

type heartbeatResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

func (c *Client) Heartbeat(ctx context.Context, workerID string, status types.WorkerState, documentID string) (types.WorkerCommand, error) {
	payload := heartbeatPayload{
		WorkerID:   workerID,
		Status:     string(status),
		DocumentID: documentID,
	}
	var resp heartbeatResponse
	if err := c.postJSON(ctx, "/api/worker-heartbeat", nil, payload, &resp); err != nil {
		return types.CommandNone, err
	}
	if resp.Error != "" {
		return types.CommandNone, apperr.New(apperr.KindNotFound, "heartbeat rejected: %s", resp.Error)
	}
	return types.WorkerCommand(resp.Command), nil
}

type nextDocumentResponse struct {
	Status   string          `json:"status"`
	Document *types.Document `json:"document"`
	Error    string          `json:"error"`
}

// NextDocument returns nil when the queue is empty or the worker is not in
// an active state; both mean "try again later".
func (c *Client) NextDocument(ctx context.Context, workerID string) (*types.Document, error) {
	var resp nextDocumentResponse
	if err := c.getJSON(ctx, "/api/next-document/"+url.PathEscape(workerID), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperr.New(apperr.KindNotFound, "claim rejected: %s", resp.Error)
	}
	return resp.Document, nil
}

// CompleteBody is the outcome payload for document-processed.
type CompleteBody struct {
	IsError    bool            `json:"is_error"`
	FilePath   string          `json:"file_path"`
	SchemaName string          `json:"schema_name,omitempty"`
	Result     json.RawMessage `json:"result"`
}

type completeResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (c *Client) Complete(ctx context.Context, workerID, documentID string, body CompleteBody) error {
	query := url.Values{}
	query.Set("worker_id", workerID)
	query.Set("document_id", documentID)

	var resp completeResponse
	if err := c.postJSON(ctx, "/api/document-processed", query, body, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return apperr.New(apperr.KindNotFound, "completion rejected: %s", resp.Error)
	}
	return nil
}

type schemaResponse struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
	Error   string          `json:"error"`
}

func (c *Client) GetSchema(ctx context.Context, name string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/schema/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, err)
	}
	if httpResp.StatusCode == http.StatusNotFound {
		return nil, apperr.New(apperr.KindNotFound, "schema %q not found", name)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindTransient, "schema lookup returned %d", httpResp.StatusCode)
	}
	var resp schemaResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, err)
	}
	if resp.Error != "" {
		return nil, apperr.New(apperr.KindNotFound, "schema %q not found", name)
	}
	return resp.Content, nil
}

func (c *Client) postJSON(ctx context.Context, path string, query url.Values, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindTransient, "coordinator returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.KindTransient, err)
	}
	return nil
}
