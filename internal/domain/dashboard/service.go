// Package dashboard provides read-only aggregation over series and numbers.
// No allocation or lifecycle logic lives here.
package dashboard

import (
	"context"
	"time"

	"protocolo/internal/core/clock"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/counter"
	"protocolo/internal/domain/docnumber"
	"protocolo/internal/domain/series"
	"protocolo/pkg/format"
)

const recentLimit = 10

// Overview is the headline dashboard aggregate.
type Overview struct {
	TotalSeries    int64                  `json:"totalSeries"`
	TotalNumbers   int64                  `json:"totalNumbers"`
	NumbersToday   int64                  `json:"numbersToday"`
	PendingNumbers int64                  `json:"pendingNumbers"`
	RecentNumbers  []*docnumber.DocNumber `json:"recentNumbers"`
}

// SeriesOverview is one row of the per-series breakdown: lifecycle totals
// plus the same next-number preview the registry computes. The preview
// never mutates the counter.
type SeriesOverview struct {
	Series series.Series `json:"series"`

	NextNumber  string `json:"nextNumber"`
	CurrentYear int    `json:"currentYear"`
	CurrentSeq  int64  `json:"currentSeq"`

	TotalIssued   int64 `json:"totalIssued"`
	TotalReserved int64 `json:"totalReserved"`
	TotalVoided   int64 `json:"totalVoided"`
	TodayCount    int64 `json:"todayCount"`
}

// Service aggregates dashboard statistics.
type Service struct {
	series   series.Repository
	numbers  docnumber.Repository
	counters counter.Store
	clock    clock.Clock
}

// NewService creates a new dashboard service.
func NewService(seriesRepo series.Repository, numbers docnumber.Repository, counters counter.Store, clk clock.Clock) *Service {
	return &Service{
		series:   seriesRepo,
		numbers:  numbers,
		counters: counters,
		clock:    clk,
	}
}

// Overview returns headline counters and the most recently issued numbers.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	totalSeries, err := s.series.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.numbers.Stats(ctx, s.dayStart())
	if err != nil {
		return nil, err
	}

	recent, err := s.numbers.RecentIssued(ctx, recentLimit)
	if err != nil {
		return nil, err
	}

	return &Overview{
		TotalSeries:    totalSeries,
		TotalNumbers:   stats.IssuedTotal,
		NumbersToday:   stats.IssuedToday,
		PendingNumbers: stats.Pending,
		RecentNumbers:  recent,
	}, nil
}

// SeriesStats returns the per-series breakdown for all active series:
// lifecycle totals joined with the current counter value and the rendered
// next-number preview. Series that never allocated a number report zeros.
func (s *Service) SeriesStats(ctx context.Context) ([]*SeriesOverview, error) {
	list, err := s.series.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.numbers.CountsBySeries(ctx, s.dayStart())
	if err != nil {
		return nil, err
	}
	bySeries := make(map[id.ID]docnumber.SeriesCounts, len(counts))
	for _, c := range counts {
		bySeries[c.SeriesID] = c
	}

	now := s.clock.Now()
	out := make([]*SeriesOverview, 0, len(list))
	for _, sr := range list {
		current, err := s.counters.Current(ctx, sr.ID, sr.YearKey(now))
		if err != nil {
			return nil, err
		}

		c := bySeries[sr.ID]
		out = append(out, &SeriesOverview{
			Series: *sr,
			NextNumber: format.Render(sr.Formato, format.Context{
				Seq:   current + 1,
				Sigla: sr.Sigla,
				Year:  now.Year(),
			}),
			CurrentYear:   now.Year(),
			CurrentSeq:    current,
			TotalIssued:   c.Issued,
			TotalReserved: c.Reserved,
			TotalVoided:   c.Voided,
			TodayCount:    c.IssuedToday,
		})
	}
	return out, nil
}

// dayStart is the midnight boundary "today" aggregates count from.
func (s *Service) dayStart() time.Time {
	now := s.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
