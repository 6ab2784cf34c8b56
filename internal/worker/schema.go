package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/yungbote/docproc-backend/internal/apperr"
)

// resolveSchema looks the schema up at the coordinator first and falls back
// to the local schema directory. A miss in both places fails the job.
func (w *Worker) resolveSchema(ctx context.Context, name string) (json.RawMessage, error) {
	if name == "" || name == "*" {
		return nil, nil
	}

	content, err := w.client.GetSchema(ctx, name)
	if err == nil {
		return content, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	path := filepath.Join(w.cfg.SchemaDir, name+".json")
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, apperr.New(apperr.KindNotFound, "schema %q not found at coordinator or %s", name, path)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, apperr.New(apperr.KindNotFound, "schema file %s is not a JSON object", path)
	}
	return json.RawMessage(raw), nil
}
