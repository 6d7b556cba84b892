// Package counter provides the PostgreSQL implementation of the durable
// sequence counter. This is the infrastructure layer - it implements
// domain/counter.Store.
//
// The whole reservation is one UPSERT:
//
//	INSERT ... ON CONFLICT (series_id, year) DO UPDATE
//	    SET current_seq = counters.current_seq + count
//	RETURNING current_seq
//
// PostgreSQL takes a row-exclusive lock on the conflicting counter row, so
// concurrent reservations for the same (series, year) serialize on that row
// and observe non-overlapping, gap-free blocks. Reservations for different
// pairs touch different rows and never block each other. Executed inside the
// allocation transaction, the increment rolls back together with the
// document rows.
package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"protocolo/internal/core/apperror"
	coreid "protocolo/internal/core/id"
	domaincounter "protocolo/internal/domain/counter"
	"protocolo/internal/infrastructure/storage/postgres"
)

// QuerierProvider yields the querier for the current context: the active
// transaction when one is carried, the pool otherwise. *postgres.TxManager
// satisfies it.
type QuerierProvider interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Store provides sequence blocks backed by the counters table.
type Store struct {
	db QuerierProvider
}

// Ensure compile-time interface compliance.
var _ domaincounter.Store = (*Store)(nil)

// NewStore creates a counter store.
func NewStore(db QuerierProvider) *Store {
	return &Store{db: db}
}

// ReserveBlock atomically advances the (series, year) counter by count and
// returns the reserved range, creating the row when absent.
func (s *Store) ReserveBlock(ctx context.Context, seriesID coreid.ID, year int, count int) (domaincounter.Block, error) {
	if count <= 0 {
		return domaincounter.Block{}, apperror.NewValidation("block size must be positive").
			WithDetail("count", count)
	}

	querier := s.db.GetQuerier(ctx)

	var end int64
	err := querier.QueryRow(ctx, `
        INSERT INTO counters (id, series_id, year, current_seq)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (series_id, year) DO UPDATE SET current_seq = counters.current_seq + $4
        RETURNING current_seq
	`, coreid.New(), seriesID, year, int64(count)).Scan(&end)
	if err != nil {
		return domaincounter.Block{}, postgres.TranslateError(fmt.Errorf("reserve block: %w", err), "counter")
	}

	return domaincounter.Block{Start: end - int64(count) + 1, End: end}, nil
}

// Provision creates the counter row at zero if it does not exist.
func (s *Store) Provision(ctx context.Context, seriesID coreid.ID, year int) error {
	querier := s.db.GetQuerier(ctx)

	_, err := querier.Exec(ctx, `
        INSERT INTO counters (id, series_id, year, current_seq)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (series_id, year) DO NOTHING
	`, coreid.New(), seriesID, year)
	if err != nil {
		return postgres.TranslateError(fmt.Errorf("provision counter: %w", err), "counter")
	}
	return nil
}

// Current returns the counter value without mutating it, 0 when no row exists.
func (s *Store) Current(ctx context.Context, seriesID coreid.ID, year int) (int64, error) {
	querier := s.db.GetQuerier(ctx)

	var current int64
	err := querier.QueryRow(ctx, `
        SELECT current_seq FROM counters WHERE series_id = $1 AND year = $2
	`, seriesID, year).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, postgres.TranslateError(fmt.Errorf("read counter: %w", err), "counter")
	}
	return current, nil
}
