// Package number_repo provides the PostgreSQL implementation of document
// number persistence. Lifecycle transitions are single conditional UPDATEs
// gated on the current state, so two concurrent transitions on the same row
// can never both succeed.
package number_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/docnumber"
	"protocolo/internal/infrastructure/storage/postgres"
)

const numberTable = "doc_numbers"

var numberColumns = []string{
	"id", "series_id", "year", "seq", "formatted", "state", "metadata",
	"reserved_by", "reserved_at", "issued_by", "issued_at",
	"voided_by", "voided_at", "void_reason",
}

// NumberRepo implements docnumber.Repository.
type NumberRepo struct {
	txm *postgres.TxManager
}

// Ensure compile-time interface compliance.
var _ docnumber.Repository = (*NumberRepo)(nil)

// NewNumberRepo creates a new document number repository.
func NewNumberRepo(txm *postgres.TxManager) *NumberRepo {
	return &NumberRepo{txm: txm}
}

func (r *NumberRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// CreateBatch inserts the given rows in one statement. Run inside the
// allocation transaction, a failure here rolls back the counter advance too.
func (r *NumberRepo) CreateBatch(ctx context.Context, numbers []*docnumber.DocNumber) error {
	if len(numbers) == 0 {
		return nil
	}

	q := r.builder().
		Insert(numberTable).
		Columns(numberColumns...)
	for _, n := range numbers {
		q = q.Values(n.ID, n.SeriesID, n.Year, n.Seq, n.Formatted, n.State, n.Metadata,
			n.ReservedBy, n.ReservedAt, n.IssuedBy, n.IssuedAt,
			n.VoidedBy, n.VoidedAt, n.VoidReason)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(fmt.Errorf("insert numbers: %w", err), "number")
	}
	return nil
}

// GetByID retrieves one number.
func (r *NumberRepo) GetByID(ctx context.Context, numberID id.ID) (*docnumber.DocNumber, error) {
	q := r.builder().
		Select(numberColumns...).
		From(numberTable).
		Where(squirrel.Eq{"id": numberID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var n docnumber.DocNumber
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &n, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("number", numberID.String())
		}
		return nil, postgres.TranslateError(fmt.Errorf("select number: %w", err), "number")
	}
	return &n, nil
}

// MarkIssued performs the conditional RESERVED → ISSUED update.
func (r *NumberRepo) MarkIssued(ctx context.Context, numberID id.ID, metadata docnumber.Metadata, actor string, at time.Time) (*docnumber.DocNumber, error) {
	q := r.builder().
		Update(numberTable).
		Set("state", docnumber.StateIssued).
		Set("metadata", metadata).
		Set("issued_by", actor).
		Set("issued_at", at).
		Where(squirrel.Eq{
			"id":    numberID,
			"state": docnumber.StateReserved,
		}).
		Suffix("RETURNING " + strings.Join(numberColumns, ", "))

	return r.conditionalUpdate(ctx, q, "issue number")
}

// MarkVoided performs the conditional {RESERVED,ISSUED} → VOIDED update.
func (r *NumberRepo) MarkVoided(ctx context.Context, numberID id.ID, reason string, actor string, at time.Time) (*docnumber.DocNumber, error) {
	q := r.builder().
		Update(numberTable).
		Set("state", docnumber.StateVoided).
		Set("void_reason", reason).
		Set("voided_by", actor).
		Set("voided_at", at).
		Where(squirrel.Eq{
			"id":    numberID,
			"state": []docnumber.State{docnumber.StateReserved, docnumber.StateIssued},
		}).
		Suffix("RETURNING " + strings.Join(numberColumns, ", "))

	return r.conditionalUpdate(ctx, q, "void number")
}

// conditionalUpdate executes a state-gated update. (nil, nil) means no row
// matched the predicate; the caller distinguishes missing from illegal state.
func (r *NumberRepo) conditionalUpdate(ctx context.Context, q squirrel.UpdateBuilder, op string) (*docnumber.DocNumber, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var n docnumber.DocNumber
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &n, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, postgres.TranslateError(fmt.Errorf("%s: %w", op, err), "number")
	}
	return &n, nil
}

// List returns a filtered page ordered year desc, seq desc, plus the total
// match count.
func (r *NumberRepo) List(ctx context.Context, f docnumber.Filter, limit, offset int) ([]*docnumber.DocNumber, int64, error) {
	where := filterConditions(f)
	querier := r.txm.GetQuerier(ctx)

	countQ := r.builder().
		Select("COUNT(*)").
		From(numberTable)
	for _, cond := range where {
		countQ = countQ.Where(cond)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.TranslateError(fmt.Errorf("count numbers: %w", err), "number")
	}

	q := r.builder().
		Select(numberColumns...).
		From(numberTable).
		OrderBy("year DESC", "seq DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	for _, cond := range where {
		q = q.Where(cond)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select: %w", err)
	}

	var list []*docnumber.DocNumber
	if err := pgxscan.Select(ctx, querier, &list, sql, args...); err != nil {
		return nil, 0, postgres.TranslateError(fmt.Errorf("list numbers: %w", err), "number")
	}
	return list, total, nil
}

// filterConditions translates a domain filter into WHERE clauses.
func filterConditions(f docnumber.Filter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if f.SeriesID != nil {
		conds = append(conds, squirrel.Eq{"series_id": *f.SeriesID})
	}
	if f.Year != nil {
		conds = append(conds, squirrel.Eq{"year": *f.Year})
	}
	if f.State != nil {
		conds = append(conds, squirrel.Eq{"state": *f.State})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"formatted": like},
			squirrel.Expr("metadata::text ILIKE ?", like),
		})
	}
	return conds
}

// Stats aggregates issued/pending counts in one pass.
func (r *NumberRepo) Stats(ctx context.Context, dayStart time.Time) (docnumber.Stats, error) {
	querier := r.txm.GetQuerier(ctx)

	var stats docnumber.Stats
	err := querier.QueryRow(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE state = 'ISSUED'),
            COUNT(*) FILTER (WHERE state = 'ISSUED' AND issued_at >= $1),
            COUNT(*) FILTER (WHERE state = 'RESERVED')
        FROM doc_numbers
	`, dayStart).Scan(&stats.IssuedTotal, &stats.IssuedToday, &stats.Pending)
	if err != nil {
		return docnumber.Stats{}, postgres.TranslateError(fmt.Errorf("number stats: %w", err), "number")
	}
	return stats, nil
}

// CountsBySeries aggregates lifecycle totals grouped by series.
func (r *NumberRepo) CountsBySeries(ctx context.Context, dayStart time.Time) ([]docnumber.SeriesCounts, error) {
	querier := r.txm.GetQuerier(ctx)

	var list []docnumber.SeriesCounts
	err := pgxscan.Select(ctx, querier, &list, `
        SELECT
            series_id,
            COUNT(*) FILTER (WHERE state = 'ISSUED')   AS issued,
            COUNT(*) FILTER (WHERE state = 'RESERVED') AS reserved,
            COUNT(*) FILTER (WHERE state = 'VOIDED')   AS voided,
            COUNT(*) FILTER (WHERE state = 'ISSUED' AND issued_at >= $1) AS issued_today
        FROM doc_numbers
        GROUP BY series_id
	`, dayStart)
	if err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("counts by series: %w", err), "number")
	}
	return list, nil
}

// RecentIssued returns the most recently issued numbers.
func (r *NumberRepo) RecentIssued(ctx context.Context, limit int) ([]*docnumber.DocNumber, error) {
	q := r.builder().
		Select(numberColumns...).
		From(numberTable).
		Where(squirrel.Eq{"state": docnumber.StateIssued}).
		OrderBy("issued_at DESC").
		Limit(uint64(limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var list []*docnumber.DocNumber
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &list, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("recent numbers: %w", err), "number")
	}
	return list, nil
}
