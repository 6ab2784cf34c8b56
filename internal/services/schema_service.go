package services

import (
	"context"
	"encoding/json"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/repos"
	"github.com/yungbote/docproc-backend/internal/types"
)

type SchemaService interface {
	Put(ctx context.Context, name string, content json.RawMessage) (*types.Schema, error)
	Get(ctx context.Context, name string) (*types.Schema, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*types.SchemaSummary, error)
}

type schemaService struct {
	log     *logger.Logger
	schemas repos.SchemaRepo
}

func NewSchemaService(baseLog *logger.Logger, schemas repos.SchemaRepo) SchemaService {
	return &schemaService{
		log:     baseLog.With("service", "SchemaService"),
		schemas: schemas,
	}
}

func (s *schemaService) Put(ctx context.Context, name string, content json.RawMessage) (*types.Schema, error) {
	schema, err := s.schemas.Put(ctx, name, content)
	if err != nil {
		return nil, err
	}
	s.log.Info("Schema added", "name", name)
	return schema, nil
}

func (s *schemaService) Get(ctx context.Context, name string) (*types.Schema, error) {
	return s.schemas.Get(ctx, name)
}

func (s *schemaService) Delete(ctx context.Context, name string) error {
	if err := s.schemas.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info("Schema deleted", "name", name)
	return nil
}

func (s *schemaService) List(ctx context.Context) ([]*types.SchemaSummary, error) {
	return s.schemas.List(ctx)
}
