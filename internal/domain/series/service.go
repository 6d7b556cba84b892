package series

import (
	"context"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/clock"
	"protocolo/internal/core/id"
	"protocolo/internal/core/tx"
	"protocolo/internal/domain/counter"
	"protocolo/pkg/format"
	"protocolo/pkg/logger"
)

// CreateInput carries the fields for a new series.
type CreateInput struct {
	Name        string
	Tipo        string
	Sigla       string
	Formato     string
	ResetPolicy ResetPolicy
}

// Service provides business logic for the series registry.
type Service struct {
	repo     Repository
	counters counter.Store
	txm      tx.Manager
	clock    clock.Clock
}

// NewService creates a new series service.
func NewService(repo Repository, counters counter.Store, txm tx.Manager, clk clock.Clock) *Service {
	return &Service{
		repo:     repo,
		counters: counters,
		txm:      txm,
		clock:    clk,
	}
}

// Create validates and persists a new series, provisioning its initial
// counter row at zero for the resolved year key in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*Series, error) {
	if actor == "" {
		return nil, apperror.NewValidation("actor is required")
	}

	sr := &Series{
		ID:          id.New(),
		Name:        in.Name,
		Tipo:        in.Tipo,
		Sigla:       in.Sigla,
		Formato:     in.Formato,
		ResetPolicy: in.ResetPolicy,
		IsActive:    true,
		CreatedBy:   actor,
		CreatedAt:   s.clock.Now(),
	}
	if err := sr.Validate(); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sr); err != nil {
			return err
		}
		return s.counters.Provision(ctx, sr.ID, sr.YearKey(s.clock.Now()))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "series created",
		"series_id", sr.ID.String(),
		"name", sr.Name,
		"reset_policy", string(sr.ResetPolicy),
	)
	return sr, nil
}

// Update applies a partial patch to an existing series. Counters and
// previously allocated numbers are never touched; edits only change how
// future numbers are formatted.
func (s *Service) Update(ctx context.Context, seriesID id.ID, patch Patch) (*Series, error) {
	sr, err := s.repo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	patch.Apply(sr)
	if err := sr.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// Deactivate soft-deletes a series: the active flag flips to false and the
// series stops accepting reservations. Its numbers remain queryable forever.
func (s *Service) Deactivate(ctx context.Context, seriesID id.ID) error {
	sr, err := s.repo.GetByID(ctx, seriesID)
	if err != nil {
		return err
	}
	if !sr.IsActive {
		return nil
	}

	sr.IsActive = false
	if err := s.repo.Update(ctx, sr); err != nil {
		return err
	}

	logger.Info(ctx, "series deactivated", "series_id", seriesID.String())
	return nil
}

// Get returns one series with its next-number preview.
func (s *Service) Get(ctx context.Context, seriesID id.ID) (*WithNext, error) {
	sr, err := s.repo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return s.withNext(ctx, sr)
}

// ListActive returns all active series with their next-number previews.
// The preview is derived from currentSeq+1 and never mutates the counter.
func (s *Service) ListActive(ctx context.Context) ([]*WithNext, error) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*WithNext, 0, len(list))
	for _, sr := range list {
		enriched, err := s.withNext(ctx, sr)
		if err != nil {
			return nil, err
		}
		out = append(out, enriched)
	}
	return out, nil
}

func (s *Service) withNext(ctx context.Context, sr *Series) (*WithNext, error) {
	now := s.clock.Now()
	yearKey := sr.YearKey(now)

	current, err := s.counters.Current(ctx, sr.ID, yearKey)
	if err != nil {
		return nil, err
	}

	next := format.Render(sr.Formato, format.Context{
		Seq:   current + 1,
		Sigla: sr.Sigla,
		Year:  now.Year(),
	})

	return &WithNext{
		Series:      *sr,
		NextNumber:  next,
		CurrentYear: now.Year(),
		CurrentSeq:  current,
	}, nil
}
