package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docproc-backend/internal/apperr"
	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

const (
	schemasSetKey   = "available_schemas"
	schemaKeyPrefix = "schema:"
)

type SchemaRepo interface {
	// Put stores a new schema. Names are unique; re-adding an existing
	// name is a conflict, not an overwrite.
	Put(ctx context.Context, name string, content json.RawMessage) (*types.Schema, error)
	Get(ctx context.Context, name string) (*types.Schema, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*types.SchemaSummary, error)
}

type schemaRepo struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewSchemaRepo(rdb *goredis.Client, baseLog *logger.Logger) SchemaRepo {
	return &schemaRepo{
		rdb: rdb,
		log: baseLog.With("repo", "SchemaRepo"),
	}
}

func schemaKey(name string) string { return schemaKeyPrefix + name }

func (r *schemaRepo) Put(ctx context.Context, name string, content json.RawMessage) (*types.Schema, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.New(apperr.KindValidation, "schema name is required")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(content, &obj); err != nil || obj == nil {
		return nil, apperr.New(apperr.KindValidation, "schema content must be a JSON object")
	}

	added, err := r.rdb.SAdd(ctx, schemasSetKey, name).Result()
	if err != nil {
		return nil, fmt.Errorf("add schema to set: %w", err)
	}
	if added == 0 {
		return nil, apperr.New(apperr.KindConflict, "schema %q already exists", name)
	}

	schema := &types.Schema{
		Name:      name,
		Content:   content,
		CreatedAt: time.Now(),
	}
	fields := map[string]interface{}{
		"name":       schema.Name,
		"content":    string(schema.Content),
		"created_at": timeField(schema.CreatedAt),
	}
	if err := r.rdb.HSet(ctx, schemaKey(name), fields).Err(); err != nil {
		_ = r.rdb.SRem(ctx, schemasSetKey, name).Err()
		return nil, fmt.Errorf("store schema: %w", err)
	}
	return schema, nil
}

func (r *schemaRepo) Get(ctx context.Context, name string) (*types.Schema, error) {
	member, err := r.rdb.SIsMember(ctx, schemasSetKey, name).Result()
	if err != nil {
		return nil, fmt.Errorf("check schema set: %w", err)
	}
	if !member {
		return nil, apperr.New(apperr.KindNotFound, "schema not found")
	}
	data, err := r.rdb.HGetAll(ctx, schemaKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "schema data not found")
	}
	content := data["content"]
	if content == "" {
		content = "{}"
	}
	return &types.Schema{
		Name:      data["name"],
		Content:   json.RawMessage(content),
		CreatedAt: parseTimeField(data["created_at"]),
	}, nil
}

func (r *schemaRepo) Delete(ctx context.Context, name string) error {
	removed, err := r.rdb.SRem(ctx, schemasSetKey, name).Result()
	if err != nil {
		return fmt.Errorf("remove schema from set: %w", err)
	}
	if removed == 0 {
		return apperr.New(apperr.KindNotFound, "schema not found")
	}
	if err := r.rdb.Del(ctx, schemaKey(name)).Err(); err != nil {
		return fmt.Errorf("delete schema data: %w", err)
	}
	return nil
}

func (r *schemaRepo) List(ctx context.Context) ([]*types.SchemaSummary, error) {
	names, err := r.rdb.SMembers(ctx, schemasSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	out := make([]*types.SchemaSummary, 0, len(names))
	for _, name := range names {
		data, err := r.rdb.HGetAll(ctx, schemaKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", name, err)
		}
		if len(data) == 0 {
			continue
		}
		out = append(out, &types.SchemaSummary{
			Name:      data["name"],
			CreatedAt: parseTimeField(data["created_at"]),
		})
	}
	return out, nil
}
