package docnumber

import (
	"context"
	"time"

	"protocolo/internal/core/id"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	SeriesID *id.ID
	Year     *int
	State    *State

	// Search matches case-insensitively against the formatted string and
	// the metadata document.
	Search string
}

// Stats is the dashboard aggregate over all document numbers.
type Stats struct {
	IssuedTotal int64
	IssuedToday int64
	Pending     int64
}

// SeriesCounts is the per-series lifecycle breakdown.
type SeriesCounts struct {
	SeriesID    id.ID `db:"series_id"`
	Issued      int64 `db:"issued"`
	Reserved    int64 `db:"reserved"`
	Voided      int64 `db:"voided"`
	IssuedToday int64 `db:"issued_today"`
}

// Repository defines the interface for DocNumber persistence.
type Repository interface {
	// CreateBatch inserts the given rows. Callers run it inside the
	// allocation transaction so a failure rolls back the counter advance.
	CreateBatch(ctx context.Context, numbers []*DocNumber) error

	// GetByID retrieves one number. Returns apperror.NotFound when missing.
	GetByID(ctx context.Context, numberID id.ID) (*DocNumber, error)

	// MarkIssued performs the conditional RESERVED → ISSUED update.
	// Returns (nil, nil) when no row matched the state predicate, leaving
	// the caller to distinguish missing from illegal state.
	MarkIssued(ctx context.Context, numberID id.ID, metadata Metadata, actor string, at time.Time) (*DocNumber, error)

	// MarkVoided performs the conditional {RESERVED,ISSUED} → VOIDED update.
	// Same (nil, nil) contract as MarkIssued.
	MarkVoided(ctx context.Context, numberID id.ID, reason string, actor string, at time.Time) (*DocNumber, error)

	// List returns a filtered page ordered by year desc, seq desc, plus the
	// total match count.
	List(ctx context.Context, f Filter, limit, offset int) ([]*DocNumber, int64, error)

	// Stats aggregates issued/pending counts; "today" starts at dayStart.
	Stats(ctx context.Context, dayStart time.Time) (Stats, error)

	// CountsBySeries aggregates lifecycle totals grouped by series.
	// Series with no numbers yet are simply absent from the result.
	CountsBySeries(ctx context.Context, dayStart time.Time) ([]SeriesCounts, error)

	// RecentIssued returns the most recently issued numbers.
	RecentIssued(ctx context.Context, limit int) ([]*DocNumber, error)
}
