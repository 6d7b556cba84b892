// Package series_repo provides the PostgreSQL implementation of the series
// registry repository.
package series_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/series"
	"protocolo/internal/infrastructure/storage/postgres"
)

const seriesTable = "series"

var seriesColumns = []string{
	"id", "name", "tipo", "sigla", "formato",
	"reset_policy", "is_active", "created_by", "created_at",
}

// SeriesRepo implements series.Repository.
type SeriesRepo struct {
	txm *postgres.TxManager
}

// Ensure compile-time interface compliance.
var _ series.Repository = (*SeriesRepo)(nil)

// NewSeriesRepo creates a new series repository.
func NewSeriesRepo(txm *postgres.TxManager) *SeriesRepo {
	return &SeriesRepo{txm: txm}
}

// builder returns a squirrel builder with PostgreSQL placeholder format.
func (r *SeriesRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new series.
func (r *SeriesRepo) Create(ctx context.Context, s *series.Series) error {
	q := r.builder().
		Insert(seriesTable).
		Columns(seriesColumns...).
		Values(s.ID, s.Name, s.Tipo, s.Sigla, s.Formato,
			s.ResetPolicy, s.IsActive, s.CreatedBy, s.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert series: %w", err), "series")
	}
	return nil
}

// GetByID retrieves one series regardless of its active flag.
func (r *SeriesRepo) GetByID(ctx context.Context, seriesID id.ID) (*series.Series, error) {
	q := r.builder().
		Select(seriesColumns...).
		From(seriesTable).
		Where(squirrel.Eq{"id": seriesID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s series.Series
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("series", seriesID.String())
		}
		return nil, postgres.TranslateError(fmt.Errorf("select series: %w", err), "series")
	}
	return &s, nil
}

// Update overwrites the mutable fields of an existing series.
func (r *SeriesRepo) Update(ctx context.Context, s *series.Series) error {
	q := r.builder().
		Update(seriesTable).
		Set("name", s.Name).
		Set("tipo", s.Tipo).
		Set("sigla", s.Sigla).
		Set("formato", s.Formato).
		Set("reset_policy", s.ResetPolicy).
		Set("is_active", s.IsActive).
		Where(squirrel.Eq{"id": s.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(fmt.Errorf("update series: %w", err), "series")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("series", s.ID.String())
	}
	return nil
}

// ListActive returns all active series ordered by name.
func (r *SeriesRepo) ListActive(ctx context.Context) ([]*series.Series, error) {
	q := r.builder().
		Select(seriesColumns...).
		From(seriesTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var list []*series.Series
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &list, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("list series: %w", err), "series")
	}
	return list, nil
}

// CountActive returns the number of active series.
func (r *SeriesRepo) CountActive(ctx context.Context) (int64, error) {
	querier := r.txm.GetQuerier(ctx)

	var count int64
	err := querier.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE is_active", seriesTable),
	).Scan(&count)
	if err != nil {
		return 0, postgres.TranslateError(fmt.Errorf("count series: %w", err), "series")
	}
	return count, nil
}
