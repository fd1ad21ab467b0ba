package store

import (
	"context"

	"positionsizer/internal/store/model"
)

// Journal persists every calculation attempt, including rejected input.
type Journal interface {
	// Insert appends one calculation row.
	Insert(ctx context.Context, row *model.CalculationModel) error
	// ListRecent returns the newest rows first. An empty sessionID lists all sessions.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.CalculationModel, error)
	// CountByStatus aggregates rows per status.
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// Close closes the store connection.
	Close() error
}
