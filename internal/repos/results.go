package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/docproc-backend/internal/logger"
	"github.com/yungbote/docproc-backend/internal/types"
)

// ResultRecord is the outcome payload handed over by the coordinator's
// complete path. The same shape lands in either stream.
type ResultRecord struct {
	WorkerID   string
	DocumentID string
	FilePath   string
	SchemaName string
	Result     datatypes.JSON
}

// ResultRepo is append-only: outcomes are inserted and read back, never
// updated or deleted.
type ResultRepo interface {
	AppendResult(ctx context.Context, tx *gorm.DB, rec ResultRecord) (*types.ProcessingResult, error)
	AppendError(ctx context.Context, tx *gorm.DB, rec ResultRecord) (*types.ProcessingError, error)
	ListResults(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProcessingResult, error)
	ListErrors(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProcessingError, error)
	CountResults(ctx context.Context, tx *gorm.DB) (int64, error)
	CountErrors(ctx context.Context, tx *gorm.DB) (int64, error)
}

type resultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultRepo(db *gorm.DB, baseLog *logger.Logger) ResultRepo {
	return &resultRepo{
		db:  db,
		log: baseLog.With("repo", "ResultRepo"),
	}
}

func (r *resultRepo) AppendResult(ctx context.Context, tx *gorm.DB, rec ResultRecord) (*types.ProcessingResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.ProcessingResult{
		ID:          uuid.New(),
		WorkerID:    rec.WorkerID,
		DocumentID:  rec.DocumentID,
		FilePath:    rec.FilePath,
		SchemaName:  rec.SchemaName,
		Result:      rec.Result,
		ProcessedAt: time.Now(),
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *resultRepo) AppendError(ctx context.Context, tx *gorm.DB, rec ResultRecord) (*types.ProcessingError, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.ProcessingError{
		ID:          uuid.New(),
		WorkerID:    rec.WorkerID,
		DocumentID:  rec.DocumentID,
		FilePath:    rec.FilePath,
		SchemaName:  rec.SchemaName,
		Result:      rec.Result,
		ProcessedAt: time.Now(),
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *resultRepo) ListResults(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProcessingResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.ProcessingResult
	if err := transaction.WithContext(ctx).
		Order("processed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resultRepo) ListErrors(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProcessingError, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.ProcessingError
	if err := transaction.WithContext(ctx).
		Order("processed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resultRepo) CountResults(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.ProcessingResult{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *resultRepo) CountErrors(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.ProcessingError{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
