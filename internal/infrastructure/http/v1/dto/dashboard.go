package dto

import (
	"protocolo/internal/domain/dashboard"
)

// SeriesStatsEntry is one row of the per-series dashboard breakdown.
type SeriesStatsEntry struct {
	SeriesResponse

	TotalIssued   int64 `json:"totalIssued"`
	TotalReserved int64 `json:"totalReserved"`
	TotalVoided   int64 `json:"totalVoided"`
	TodayCount    int64 `json:"todayCount"`
}

// FromSeriesOverview maps a per-series aggregate to its API shape.
func FromSeriesOverview(o *dashboard.SeriesOverview) SeriesStatsEntry {
	base := FromSeries(&o.Series)
	base.NextNumber = o.NextNumber
	base.CurrentYear = o.CurrentYear
	base.CurrentSeq = o.CurrentSeq
	return SeriesStatsEntry{
		SeriesResponse: base,
		TotalIssued:    o.TotalIssued,
		TotalReserved:  o.TotalReserved,
		TotalVoided:    o.TotalVoided,
		TodayCount:     o.TodayCount,
	}
}

// FromSeriesOverviewList maps the per-series breakdown.
func FromSeriesOverviewList(list []*dashboard.SeriesOverview) []SeriesStatsEntry {
	out := make([]SeriesStatsEntry, 0, len(list))
	for _, o := range list {
		out = append(out, FromSeriesOverview(o))
	}
	return out
}
