package docnumber

import (
	"context"
	"strings"
	"unicode/utf8"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/clock"
	"protocolo/internal/core/id"
	"protocolo/internal/core/tx"
	"protocolo/internal/domain/counter"
	"protocolo/internal/domain/series"
	"protocolo/pkg/format"
	"protocolo/pkg/logger"
)

// Allocation bounds.
const (
	MinReserveCount = 1
	MaxReserveCount = 100
)

// maxReserveAttempts bounds retries on transient store contention.
// Retrying a reservation is safe: it re-attempts the same atomic block
// reservation and either all of it commits or none of it does.
const maxReserveAttempts = 3

// Service is the allocator and lifecycle manager for document numbers.
type Service struct {
	numbers  Repository
	series   series.Repository
	counters counter.Store
	txm      tx.Manager
	clock    clock.Clock
}

// NewService creates a new document number service.
func NewService(
	numbers Repository,
	seriesRepo series.Repository,
	counters counter.Store,
	txm tx.Manager,
	clk clock.Clock,
) *Service {
	return &Service{
		numbers:  numbers,
		series:   seriesRepo,
		counters: counters,
		txm:      txm,
		clock:    clk,
	}
}

// Reserve allocates count contiguous sequence values for the series and
// persists them as RESERVED records, returned in ascending sequence order.
//
// The counter advance and the record creation commit or roll back together:
// a partial failure must not burn a gap into the sequence.
func (s *Service) Reserve(ctx context.Context, seriesID id.ID, count int, actor string) ([]*DocNumber, error) {
	if count < MinReserveCount || count > MaxReserveCount {
		return nil, apperror.NewValidation("count must be between 1 and 100").
			WithDetail("field", "count").
			WithDetail("value", count)
	}
	if actor == "" {
		return nil, apperror.NewValidation("actor is required")
	}

	var reserved []*DocNumber
	var err error
	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		reserved, err = s.reserveOnce(ctx, seriesID, count, actor)
		if err == nil || !apperror.IsConcurrentModification(err) {
			break
		}
		logger.Warn(ctx, "reservation contention, retrying",
			"series_id", seriesID.String(),
			"attempt", attempt,
		)
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "numbers reserved",
		"series_id", seriesID.String(),
		"count", count,
		"start_seq", reserved[0].Seq,
		"end_seq", reserved[len(reserved)-1].Seq,
	)
	return reserved, nil
}

// reserveOnce runs one allocation attempt as a single transaction.
func (s *Service) reserveOnce(ctx context.Context, seriesID id.ID, count int, actor string) ([]*DocNumber, error) {
	var out []*DocNumber

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sr, err := s.series.GetByID(ctx, seriesID)
		if err != nil {
			return err
		}
		if !sr.IsActive {
			return apperror.NewNotFound("series", seriesID.String()).
				WithDetail("reason", "inactive")
		}

		now := s.clock.Now()
		yearKey := sr.YearKey(now)

		block, err := s.counters.ReserveBlock(ctx, seriesID, yearKey, count)
		if err != nil {
			return err
		}

		// Template and sigla are captured here once; edits to the series
		// mid-call cannot split one block across two formats.
		formato, sigla := sr.Formato, sr.Sigla

		batch := make([]*DocNumber, 0, count)
		for seq := block.Start; seq <= block.End; seq++ {
			batch = append(batch, &DocNumber{
				ID:       id.New(),
				SeriesID: seriesID,
				Year:     yearKey,
				Seq:      seq,
				Formatted: format.Render(formato, format.Context{
					Seq:   seq,
					Sigla: sigla,
					Year:  now.Year(),
				}),
				State:      StateReserved,
				ReservedBy: actor,
				ReservedAt: now,
			})
		}

		if err := s.numbers.CreateBatch(ctx, batch); err != nil {
			return err
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Issue transitions a RESERVED number to ISSUED, attaching metadata and the
// issuer identity. Any other current state is an InvalidState failure;
// ISSUED never returns to RESERVED.
func (s *Service) Issue(ctx context.Context, numberID id.ID, metadata Metadata, actor string) (*DocNumber, error) {
	if actor == "" {
		return nil, apperror.NewValidation("actor is required")
	}

	updated, err := s.numbers.MarkIssued(ctx, numberID, metadata, actor, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, s.transitionFailure(ctx, numberID)
	}

	logger.Info(ctx, "number issued",
		"number_id", numberID.String(),
		"formatted", updated.Formatted,
	)
	return updated, nil
}

// Void transitions a RESERVED or ISSUED number to the terminal VOIDED state.
// The reason is mandatory and recorded exactly once.
func (s *Service) Void(ctx context.Context, numberID id.ID, reason string, actor string) (*DocNumber, error) {
	if actor == "" {
		return nil, apperror.NewValidation("actor is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || utf8.RuneCountInString(reason) > MaxVoidReasonLen {
		return nil, apperror.NewValidation("reason is required and must be at most 500 characters").
			WithDetail("field", "reason")
	}

	updated, err := s.numbers.MarkVoided(ctx, numberID, reason, actor, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, s.transitionFailure(ctx, numberID)
	}

	logger.Info(ctx, "number voided",
		"number_id", numberID.String(),
		"formatted", updated.Formatted,
	)
	return updated, nil
}

// transitionFailure distinguishes a missing record from an illegal state
// after a conditional update matched no row.
func (s *Service) transitionFailure(ctx context.Context, numberID id.ID) error {
	existing, err := s.numbers.GetByID(ctx, numberID)
	if err != nil {
		return err
	}
	return apperror.NewInvalidState("number", numberID.String(), string(existing.State))
}

// Get returns one document number.
func (s *Service) Get(ctx context.Context, numberID id.ID) (*DocNumber, error) {
	return s.numbers.GetByID(ctx, numberID)
}

// List returns a filtered page of numbers ordered year desc, seq desc,
// plus the total match count. Page and limit are normalized to their
// defaults when out of range.
func (s *Service) List(ctx context.Context, f Filter, page, limit int) ([]*DocNumber, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.numbers.List(ctx, f, limit, (page-1)*limit)
}
