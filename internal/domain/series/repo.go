package series

import (
	"context"

	"protocolo/internal/core/id"
)

// Repository defines the interface for Series persistence.
type Repository interface {
	// Create inserts a new series.
	Create(ctx context.Context, s *Series) error

	// GetByID retrieves a series regardless of its active flag.
	// Returns apperror.NotFound when missing.
	GetByID(ctx context.Context, seriesID id.ID) (*Series, error)

	// Update overwrites the mutable fields of an existing series.
	Update(ctx context.Context, s *Series) error

	// ListActive returns all active series ordered by name.
	ListActive(ctx context.Context) ([]*Series, error)

	// CountActive returns the number of active series.
	CountActive(ctx context.Context) (int64, error)
}
