package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/docproc-backend/internal/logger"
)

// ModelConfig carries the per-worker endpoint configuration.
type ModelConfig struct {
	APIURL string
	Model  string
	APIKey string
}

// Extractor turns one document plus an optional schema into a JSON result.
// Implementations must treat upstream failures as returned errors; the
// caller decides how a failure is recorded.
type Extractor interface {
	Extract(ctx context.Context, filePath string, schemaContent json.RawMessage, cfg ModelConfig) (json.RawMessage, error)
}

type visionExtractor struct {
	log        *logger.Logger
	httpClient *http.Client
}

func NewVisionExtractor(log *logger.Logger) Extractor {
	return &visionExtractor{
		log: log.With("service", "VisionExtractor"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

const generalPrompt = `You are a document analysis assistant. Analyze the document and extract all relevant information.
Return your analysis as a structured JSON with appropriate fields and values.
Use null for missing or unclear information.`

const schemaPromptFormat = `You are a document analysis assistant. Analyze the image and extract the schema of the data.
Schema:
%s

Return the schema in valid JSON format. Use null for missing or unclear fields.`

func buildPrompt(schemaContent json.RawMessage) string {
	if len(schemaContent) == 0 {
		return generalPrompt
	}
	return fmt.Sprintf(schemaPromptFormat, string(schemaContent))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *visionExtractor) Extract(ctx context.Context, filePath string, schemaContent json.RawMessage, cfg ModelConfig) (json.RawMessage, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	payload := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: buildPrompt(schemaContent)},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + encoded,
					}},
				},
			},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model api returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("model response carried no choices")
	}

	result, err := extractJSON(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// extractJSON pulls a JSON object out of a model reply that may be wrapped
// in prose or code fences. It takes the text from the first '{' to the last
// '}' and requires that span to be one JSON object; a reply holding several
// separate objects is rejected.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	candidate := text[start : end+1]
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON in model reply: %w", err)
	}
	return json.RawMessage(candidate), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
