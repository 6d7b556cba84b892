package dashboard

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/clock"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/counter"
	"protocolo/internal/domain/docnumber"
	"protocolo/internal/domain/series"
)

// --- In-memory fakes ---

type stubSeriesRepo struct {
	items []*series.Series
}

func (s *stubSeriesRepo) Create(context.Context, *series.Series) error { return nil }
func (s *stubSeriesRepo) Update(context.Context, *series.Series) error { return nil }

func (s *stubSeriesRepo) GetByID(_ context.Context, seriesID id.ID) (*series.Series, error) {
	for _, sr := range s.items {
		if sr.ID == seriesID {
			cp := *sr
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("series", seriesID.String())
}

func (s *stubSeriesRepo) ListActive(context.Context) ([]*series.Series, error) {
	var out []*series.Series
	for _, sr := range s.items {
		if sr.IsActive {
			cp := *sr
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubSeriesRepo) CountActive(context.Context) (int64, error) {
	list, _ := s.ListActive(context.Background())
	return int64(len(list)), nil
}

type stubNumberRepo struct {
	items []*docnumber.DocNumber
}

func (s *stubNumberRepo) CreateBatch(context.Context, []*docnumber.DocNumber) error { return nil }

func (s *stubNumberRepo) GetByID(_ context.Context, numberID id.ID) (*docnumber.DocNumber, error) {
	return nil, apperror.NewNotFound("number", numberID.String())
}

func (s *stubNumberRepo) MarkIssued(context.Context, id.ID, docnumber.Metadata, string, time.Time) (*docnumber.DocNumber, error) {
	return nil, nil
}

func (s *stubNumberRepo) MarkVoided(context.Context, id.ID, string, string, time.Time) (*docnumber.DocNumber, error) {
	return nil, nil
}

func (s *stubNumberRepo) List(context.Context, docnumber.Filter, int, int) ([]*docnumber.DocNumber, int64, error) {
	return nil, 0, nil
}

func (s *stubNumberRepo) Stats(_ context.Context, dayStart time.Time) (docnumber.Stats, error) {
	var st docnumber.Stats
	for _, n := range s.items {
		switch n.State {
		case docnumber.StateIssued:
			st.IssuedTotal++
			if n.IssuedAt != nil && !n.IssuedAt.Before(dayStart) {
				st.IssuedToday++
			}
		case docnumber.StateReserved:
			st.Pending++
		}
	}
	return st, nil
}

func (s *stubNumberRepo) CountsBySeries(_ context.Context, dayStart time.Time) ([]docnumber.SeriesCounts, error) {
	bySeries := map[id.ID]*docnumber.SeriesCounts{}
	for _, n := range s.items {
		c, ok := bySeries[n.SeriesID]
		if !ok {
			c = &docnumber.SeriesCounts{SeriesID: n.SeriesID}
			bySeries[n.SeriesID] = c
		}
		switch n.State {
		case docnumber.StateIssued:
			c.Issued++
			if n.IssuedAt != nil && !n.IssuedAt.Before(dayStart) {
				c.IssuedToday++
			}
		case docnumber.StateReserved:
			c.Reserved++
		case docnumber.StateVoided:
			c.Voided++
		}
	}
	out := make([]docnumber.SeriesCounts, 0, len(bySeries))
	for _, c := range bySeries {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubNumberRepo) RecentIssued(context.Context, int) ([]*docnumber.DocNumber, error) {
	var out []*docnumber.DocNumber
	for _, n := range s.items {
		if n.State == docnumber.StateIssued {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

type counterKey struct {
	series id.ID
	year   int
}

type stubCounters struct {
	vals  map[counterKey]int64
	reads int
}

func (s *stubCounters) ReserveBlock(_ context.Context, seriesID id.ID, year int, count int) (counter.Block, error) {
	k := counterKey{seriesID, year}
	end := s.vals[k] + int64(count)
	s.vals[k] = end
	return counter.Block{Start: end - int64(count) + 1, End: end}, nil
}

func (s *stubCounters) Provision(_ context.Context, seriesID id.ID, year int) error {
	k := counterKey{seriesID, year}
	if _, ok := s.vals[k]; !ok {
		s.vals[k] = 0
	}
	return nil
}

func (s *stubCounters) Current(_ context.Context, seriesID id.ID, year int) (int64, error) {
	s.reads++
	return s.vals[counterKey{seriesID, year}], nil
}

// --- Test harness ---

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newSeries(name, sigla, formato string, policy series.ResetPolicy, active bool) *series.Series {
	return &series.Series{
		ID:          id.New(),
		Name:        name,
		Tipo:        name,
		Sigla:       sigla,
		Formato:     formato,
		ResetPolicy: policy,
		IsActive:    active,
		CreatedBy:   "tester",
		CreatedAt:   testNow.Add(-24 * time.Hour),
	}
}

func issued(seriesID id.ID, seq int64, at time.Time) *docnumber.DocNumber {
	actor := "alice"
	return &docnumber.DocNumber{
		ID:         id.New(),
		SeriesID:   seriesID,
		Year:       at.Year(),
		Seq:        seq,
		State:      docnumber.StateIssued,
		ReservedBy: actor,
		ReservedAt: at,
		IssuedBy:   &actor,
		IssuedAt:   &at,
	}
}

func reserved(seriesID id.ID, seq int64) *docnumber.DocNumber {
	return &docnumber.DocNumber{
		ID:         id.New(),
		SeriesID:   seriesID,
		Year:       testNow.Year(),
		Seq:        seq,
		State:      docnumber.StateReserved,
		ReservedBy: "alice",
		ReservedAt: testNow,
	}
}

func voided(seriesID id.ID, seq int64) *docnumber.DocNumber {
	actor := "alice"
	reason := "typo"
	return &docnumber.DocNumber{
		ID:         id.New(),
		SeriesID:   seriesID,
		Year:       testNow.Year(),
		Seq:        seq,
		State:      docnumber.StateVoided,
		ReservedBy: actor,
		ReservedAt: testNow,
		VoidedBy:   &actor,
		VoidedAt:   &testNow,
		VoidReason: &reason,
	}
}

// --- Overview ---

func TestOverview_AggregatesTotals(t *testing.T) {
	ci := newSeries("CI", "PRES", "#{seq:3}/#{sigla}", series.ResetAnnual, true)
	yesterday := testNow.Add(-24 * time.Hour)

	numbers := &stubNumberRepo{items: []*docnumber.DocNumber{
		issued(ci.ID, 1, yesterday),
		issued(ci.ID, 2, testNow),
		reserved(ci.ID, 3),
	}}
	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{ci}},
		numbers,
		&stubCounters{vals: map[counterKey]int64{}},
		clock.Fixed{T: testNow},
	)

	got, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.TotalSeries)
	assert.Equal(t, int64(2), got.TotalNumbers)
	assert.Equal(t, int64(1), got.NumbersToday)
	assert.Equal(t, int64(1), got.PendingNumbers)
	assert.Len(t, got.RecentNumbers, 2)
}

// --- SeriesStats ---

func TestSeriesStats_BreaksDownBySeries(t *testing.T) {
	ci := newSeries("CI", "PRES", "#{seq:3}/#{sigla}", series.ResetAnnual, true)
	oficio := newSeries("OFÍCIO", "CLN", "#{seq:3}/#{ano}", series.ResetAnnual, true)
	yesterday := testNow.Add(-24 * time.Hour)

	numbers := &stubNumberRepo{items: []*docnumber.DocNumber{
		issued(ci.ID, 1, yesterday),
		issued(ci.ID, 2, testNow),
		reserved(ci.ID, 3),
		voided(ci.ID, 4),
		issued(oficio.ID, 1, testNow),
	}}
	counters := &stubCounters{vals: map[counterKey]int64{
		{ci.ID, 2024}:     4,
		{oficio.ID, 2024}: 1,
	}}
	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{ci, oficio}},
		numbers,
		counters,
		clock.Fixed{T: testNow},
	)

	got, err := svc.SeriesStats(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	byName := map[string]*SeriesOverview{}
	for _, o := range got {
		byName[o.Series.Name] = o
	}

	ciStats := byName["CI"]
	require.NotNil(t, ciStats)
	assert.Equal(t, int64(2), ciStats.TotalIssued)
	assert.Equal(t, int64(1), ciStats.TotalReserved)
	assert.Equal(t, int64(1), ciStats.TotalVoided)
	assert.Equal(t, int64(1), ciStats.TodayCount)
	assert.Equal(t, int64(4), ciStats.CurrentSeq)
	assert.Equal(t, 2024, ciStats.CurrentYear)
	assert.Equal(t, "005/PRES", ciStats.NextNumber)

	oficioStats := byName["OFÍCIO"]
	require.NotNil(t, oficioStats)
	assert.Equal(t, int64(1), oficioStats.TotalIssued)
	assert.Equal(t, int64(1), oficioStats.TodayCount)
	assert.Equal(t, "002/2024", oficioStats.NextNumber)
}

func TestSeriesStats_SeriesWithoutNumbersReportsZeros(t *testing.T) {
	fresh := newSeries("PORTARIA", "PRES", "#{seq:3}/#{sigla}", series.ResetAnnual, true)

	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{fresh}},
		&stubNumberRepo{},
		&stubCounters{vals: map[counterKey]int64{}},
		clock.Fixed{T: testNow},
	)

	got, err := svc.SeriesStats(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Zero(t, o.TotalIssued)
	assert.Zero(t, o.TotalReserved)
	assert.Zero(t, o.TotalVoided)
	assert.Zero(t, o.TodayCount)
	assert.Equal(t, int64(0), o.CurrentSeq)
	assert.Equal(t, "001/PRES", o.NextNumber)
}

func TestSeriesStats_ExcludesInactiveSeries(t *testing.T) {
	active := newSeries("CI", "PRES", "#{seq:3}/#{sigla}", series.ResetAnnual, true)
	retired := newSeries("ANTIGA", "OLD", "#{seq:3}/#{sigla}", series.ResetAnnual, false)

	numbers := &stubNumberRepo{items: []*docnumber.DocNumber{
		issued(retired.ID, 1, testNow),
	}}
	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{active, retired}},
		numbers,
		&stubCounters{vals: map[counterKey]int64{}},
		clock.Fixed{T: testNow},
	)

	got, err := svc.SeriesStats(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CI", got[0].Series.Name)
}

func TestSeriesStats_ContinuousSeriesUsesSentinelCounter(t *testing.T) {
	cont := newSeries("RELATÓRIOS", "", "#{seq:5}", series.ResetContinuous, true)

	counters := &stubCounters{vals: map[counterKey]int64{
		{cont.ID, series.ContinuousYearKey}: 41,
	}}
	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{cont}},
		&stubNumberRepo{},
		counters,
		clock.Fixed{T: testNow},
	)

	got, err := svc.SeriesStats(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, int64(41), o.CurrentSeq)
	assert.Equal(t, "00042", o.NextNumber)
}

func TestSeriesStats_PreviewDoesNotAdvanceCounter(t *testing.T) {
	ci := newSeries("CI", "PRES", "#{seq:3}/#{sigla}", series.ResetAnnual, true)
	counters := &stubCounters{vals: map[counterKey]int64{{ci.ID, 2024}: 7}}

	svc := NewService(
		&stubSeriesRepo{items: []*series.Series{ci}},
		&stubNumberRepo{},
		counters,
		clock.Fixed{T: testNow},
	)

	_, err := svc.SeriesStats(context.Background())
	require.NoError(t, err)
	_, err = svc.SeriesStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), counters.vals[counterKey{ci.ID, 2024}])
	assert.Equal(t, 2, counters.reads)
}
