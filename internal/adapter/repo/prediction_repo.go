package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/sqlinline"
)

const defaultListLimit = 20

// PredictionRepositoryPG implements domain.PredictionRepository on PostgreSQL.
type PredictionRepositoryPG struct {
	sql infra.SQLExecutor
	now func() time.Time
}

// NewPredictionRepository creates a repository over the given executor.
func NewPredictionRepository(sql infra.SQLExecutor) *PredictionRepositoryPG {
	return &PredictionRepositoryPG{sql: sql, now: time.Now}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (r *PredictionRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnsurePredictionsTable)
	return err
}

// Save appends an audit record, filling ID and CreatedAt when unset.
func (r *PredictionRepositoryPG) Save(ctx context.Context, record *domain.PredictionRecord) error {
	if record == nil {
		return errors.New("prediction record is required")
	}
	if strings.TrimSpace(record.UserID) == "" || strings.TrimSpace(record.ResultURL) == "" {
		return fmt.Errorf("%w: user id and result url are required", domain.ErrValidation)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	photos, err := json.Marshal(record.InputPhotoURLs)
	if err != nil {
		return fmt.Errorf("encode input photos: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertPrediction, record.ID, record.UserID, photos, record.ResultURL, record.CreatedAt)
	return err
}

// ListByUser returns the newest records first.
func (r *PredictionRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListPredictionsByUser, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PredictionRecord
	for rows.Next() {
		var rec domain.PredictionRecord
		var photos []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &photos, &rec.ResultURL, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(photos) > 0 {
			if err := json.Unmarshal(photos, &rec.InputPhotoURLs); err != nil {
				return nil, fmt.Errorf("decode input photos: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// NopPredictionRepository is used when no database is configured.
type NopPredictionRepository struct{}

func (NopPredictionRepository) Save(context.Context, *domain.PredictionRecord) error { return nil }

func (NopPredictionRepository) ListByUser(context.Context, string, int) ([]domain.PredictionRecord, error) {
	return nil, nil
}

var (
	_ domain.PredictionRepository = (*PredictionRepositoryPG)(nil)
	_ domain.PredictionRepository = NopPredictionRepository{}
)
