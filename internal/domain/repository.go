package domain

import "context"

// PredictionRepository persists prediction audit records.
type PredictionRepository interface {
	Save(ctx context.Context, record *PredictionRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]PredictionRecord, error)
}
