package docnumber

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocolo/internal/core/apperror"
	"protocolo/internal/core/clock"
	"protocolo/internal/core/id"
	"protocolo/internal/domain/counter"
	"protocolo/internal/domain/series"
)

// --- In-memory fakes ---

type fakeTx struct{}

func (fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type counterKey struct {
	series id.ID
	year   int
}

// fakeCounters mirrors the UPSERT semantics of the durable store: the
// advance is atomic, so concurrent callers observe disjoint blocks.
type fakeCounters struct {
	mu   sync.Mutex
	vals map[counterKey]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{vals: map[counterKey]int64{}}
}

func (f *fakeCounters) ReserveBlock(_ context.Context, seriesID id.ID, year int, count int) (counter.Block, error) {
	if count <= 0 {
		return counter.Block{}, apperror.NewValidation("count must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := counterKey{seriesID, year}
	end := f.vals[k] + int64(count)
	f.vals[k] = end
	return counter.Block{Start: end - int64(count) + 1, End: end}, nil
}

func (f *fakeCounters) Provision(_ context.Context, seriesID id.ID, year int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := counterKey{seriesID, year}
	if _, ok := f.vals[k]; !ok {
		f.vals[k] = 0
	}
	return nil
}

func (f *fakeCounters) Current(_ context.Context, seriesID id.ID, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vals[counterKey{seriesID, year}], nil
}

// flakyCounters fails the first n ReserveBlock calls with a contention error.
type flakyCounters struct {
	*fakeCounters
	mu       sync.Mutex
	failures int
}

func (f *flakyCounters) ReserveBlock(ctx context.Context, seriesID id.ID, year int, count int) (counter.Block, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return counter.Block{}, apperror.NewConcurrentModification("counter", seriesID.String())
	}
	f.mu.Unlock()
	return f.fakeCounters.ReserveBlock(ctx, seriesID, year, count)
}

type fakeSeriesRepo struct {
	mu    sync.Mutex
	items map[id.ID]*series.Series
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{items: map[id.ID]*series.Series{}}
}

func (f *fakeSeriesRepo) Create(_ context.Context, s *series.Series) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeSeriesRepo) GetByID(_ context.Context, seriesID id.ID) (*series.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[seriesID]
	if !ok {
		return nil, apperror.NewNotFound("series", seriesID.String())
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeriesRepo) Update(_ context.Context, s *series.Series) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[s.ID]; !ok {
		return apperror.NewNotFound("series", s.ID.String())
	}
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeSeriesRepo) ListActive(_ context.Context) ([]*series.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*series.Series
	for _, s := range f.items {
		if s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeSeriesRepo) CountActive(_ context.Context) (int64, error) {
	list, _ := f.ListActive(context.Background())
	return int64(len(list)), nil
}

type fakeNumberRepo struct {
	mu    sync.Mutex
	items map[id.ID]*DocNumber
}

func newFakeNumberRepo() *fakeNumberRepo {
	return &fakeNumberRepo{items: map[id.ID]*DocNumber{}}
}

func (f *fakeNumberRepo) CreateBatch(_ context.Context, numbers []*DocNumber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range numbers {
		for _, existing := range f.items {
			if existing.SeriesID == n.SeriesID && existing.Year == n.Year && existing.Seq == n.Seq {
				return apperror.NewIntegrity("duplicate number")
			}
		}
	}
	for _, n := range numbers {
		cp := *n
		f.items[n.ID] = &cp
	}
	return nil
}

func (f *fakeNumberRepo) GetByID(_ context.Context, numberID id.ID) (*DocNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[numberID]
	if !ok {
		return nil, apperror.NewNotFound("number", numberID.String())
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNumberRepo) MarkIssued(_ context.Context, numberID id.ID, metadata Metadata, actor string, at time.Time) (*DocNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[numberID]
	if !ok || n.State != StateReserved {
		return nil, nil
	}
	n.State = StateIssued
	n.Metadata = metadata
	n.IssuedBy = &actor
	n.IssuedAt = &at
	cp := *n
	return &cp, nil
}

func (f *fakeNumberRepo) MarkVoided(_ context.Context, numberID id.ID, reason string, actor string, at time.Time) (*DocNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[numberID]
	if !ok || (n.State != StateReserved && n.State != StateIssued) {
		return nil, nil
	}
	n.State = StateVoided
	n.VoidedBy = &actor
	n.VoidedAt = &at
	n.VoidReason = &reason
	cp := *n
	return &cp, nil
}

func (f *fakeNumberRepo) List(_ context.Context, filter Filter, limit, offset int) ([]*DocNumber, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*DocNumber
	for _, n := range f.items {
		if filter.SeriesID != nil && n.SeriesID != *filter.SeriesID {
			continue
		}
		if filter.Year != nil && n.Year != *filter.Year {
			continue
		}
		if filter.State != nil && n.State != *filter.State {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(n.Formatted), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *n
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Year != all[j].Year {
			return all[i].Year > all[j].Year
		}
		return all[i].Seq > all[j].Seq
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeNumberRepo) Stats(_ context.Context, dayStart time.Time) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st Stats
	for _, n := range f.items {
		switch n.State {
		case StateIssued:
			st.IssuedTotal++
			if n.IssuedAt != nil && !n.IssuedAt.Before(dayStart) {
				st.IssuedToday++
			}
		case StateReserved:
			st.Pending++
		}
	}
	return st, nil
}

func (f *fakeNumberRepo) CountsBySeries(_ context.Context, dayStart time.Time) ([]SeriesCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bySeries := map[id.ID]*SeriesCounts{}
	for _, n := range f.items {
		c, ok := bySeries[n.SeriesID]
		if !ok {
			c = &SeriesCounts{SeriesID: n.SeriesID}
			bySeries[n.SeriesID] = c
		}
		switch n.State {
		case StateIssued:
			c.Issued++
			if n.IssuedAt != nil && !n.IssuedAt.Before(dayStart) {
				c.IssuedToday++
			}
		case StateReserved:
			c.Reserved++
		case StateVoided:
			c.Voided++
		}
	}
	out := make([]SeriesCounts, 0, len(bySeries))
	for _, c := range bySeries {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeNumberRepo) RecentIssued(_ context.Context, limit int) ([]*DocNumber, error) {
	list, _, _ := f.List(context.Background(), Filter{}, limit, 0)
	return list, nil
}

// --- Test harness ---

type fixture struct {
	svc      *Service
	series   *fakeSeriesRepo
	numbers  *fakeNumberRepo
	counters *fakeCounters
	seriesID id.ID
}

func newFixture(t *testing.T, formato, sigla string, policy series.ResetPolicy) *fixture {
	t.Helper()

	seriesRepo := newFakeSeriesRepo()
	numberRepo := newFakeNumberRepo()
	counters := newFakeCounters()

	sr := &series.Series{
		ID:          id.New(),
		Name:        "CI",
		Tipo:        "CI",
		Sigla:       sigla,
		Formato:     formato,
		ResetPolicy: policy,
		IsActive:    true,
		CreatedBy:   "tester",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, seriesRepo.Create(context.Background(), sr))

	clk := clock.Fixed{T: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	svc := NewService(numberRepo, seriesRepo, counters, fakeTx{}, clk)

	return &fixture{
		svc:      svc,
		series:   seriesRepo,
		numbers:  numberRepo,
		counters: counters,
		seriesID: sr.ID,
	}
}

// --- Reserve ---

func TestReserve_FirstNumber(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	got, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)

	n := got[0]
	assert.Equal(t, int64(1), n.Seq)
	assert.Equal(t, 2024, n.Year)
	assert.Equal(t, "001/2024", n.Formatted)
	assert.Equal(t, StateReserved, n.State)
	assert.Equal(t, "alice", n.ReservedBy)
}

func TestReserve_BlockIsContiguous(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{sigla}", "PRES", series.ResetAnnual)
	ctx := context.Background()

	// Advance the counter to 10 first.
	_, err := f.svc.Reserve(ctx, f.seriesID, 10, "alice")
	require.NoError(t, err)

	got, err := f.svc.Reserve(ctx, f.seriesID, 5, "bob")
	require.NoError(t, err)
	require.Len(t, got, 5)

	for i, n := range got {
		assert.Equal(t, int64(11+i), n.Seq)
	}
	assert.Equal(t, "011/PRES", got[0].Formatted)
	assert.Equal(t, "015/PRES", got[4].Formatted)
}

func TestReserve_CountBounds(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.seriesID, 0, "alice")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Reserve(ctx, f.seriesID, 101, "alice")
	assert.True(t, apperror.IsValidation(err))

	got, err := f.svc.Reserve(ctx, f.seriesID, 100, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestReserve_RequiresActor(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)

	_, err := f.svc.Reserve(context.Background(), f.seriesID, 1, "")
	assert.True(t, apperror.IsValidation(err))
}

func TestReserve_UnknownSeries(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)

	_, err := f.svc.Reserve(context.Background(), id.New(), 1, "alice")
	assert.True(t, apperror.IsNotFound(err))
}

func TestReserve_InactiveSeries(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	sr, err := f.series.GetByID(ctx, f.seriesID)
	require.NoError(t, err)
	sr.IsActive = false
	require.NoError(t, f.series.Update(ctx, sr))

	_, err = f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	assert.True(t, apperror.IsNotFound(err))
}

func TestReserve_ContinuousPolicyUsesSentinelYear(t *testing.T) {
	f := newFixture(t, "#{seq:5}", "", series.ResetContinuous)
	ctx := context.Background()

	got, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)

	assert.Equal(t, series.ContinuousYearKey, got[0].Year)
	assert.Equal(t, "00001", got[0].Formatted)
}

// Concurrent reservations must produce disjoint, gap-free blocks: the union
// of all reserved sequences is exactly 1..total with no duplicates.
func TestReserve_ConcurrentAllocationsAreDisjoint(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	const goroutines = 10
	const perCall = 7

	var wg sync.WaitGroup
	results := make(chan []*DocNumber, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			got, err := f.svc.Reserve(ctx, f.seriesID, perCall, fmt.Sprintf("worker-%d", worker))
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			results <- got
		}(g)
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for batch := range results {
		for _, n := range batch {
			if seen[n.Seq] {
				t.Fatalf("sequence %d allocated twice", n.Seq)
			}
			seen[n.Seq] = true
		}
	}

	require.Len(t, seen, goroutines*perCall)
	for seq := int64(1); seq <= goroutines*perCall; seq++ {
		assert.True(t, seen[seq], "sequence %d missing", seq)
	}
}

func TestReserve_RetriesTransientContention(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	flaky := &flakyCounters{fakeCounters: f.counters, failures: 2}
	svc := NewService(f.numbers, f.series, flaky, fakeTx{}, clock.Fixed{T: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)})

	got, err := svc.Reserve(context.Background(), f.seriesID, 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got[0].Seq)
}

func TestReserve_GivesUpAfterRepeatedContention(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	flaky := &flakyCounters{fakeCounters: f.counters, failures: 100}
	svc := NewService(f.numbers, f.series, flaky, fakeTx{}, clock.Fixed{T: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)})

	_, err := svc.Reserve(context.Background(), f.seriesID, 1, "alice")
	assert.True(t, apperror.IsConcurrentModification(err))
}

// --- Issue / Void state machine ---

func TestIssue_ReservedNumber(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)

	meta := Metadata{"processo": "2024/0042", "assunto": "contrato"}
	issued, err := f.svc.Issue(ctx, reserved[0].ID, meta, "bob")
	require.NoError(t, err)

	assert.Equal(t, StateIssued, issued.State)
	assert.Equal(t, meta, issued.Metadata)
	require.NotNil(t, issued.IssuedBy)
	assert.Equal(t, "bob", *issued.IssuedBy)
	assert.NotNil(t, issued.IssuedAt)
}

func TestIssue_TwiceFails(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, reserved[0].ID, nil, "bob")
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, reserved[0].ID, nil, "bob")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestIssue_UnknownNumber(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)

	_, err := f.svc.Issue(context.Background(), id.New(), nil, "bob")
	assert.True(t, apperror.IsNotFound(err))
}

func TestVoid_ReservedNumber(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)

	voided, err := f.svc.Void(ctx, reserved[0].ID, "criado por engano", "carol")
	require.NoError(t, err)

	assert.Equal(t, StateVoided, voided.State)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "criado por engano", *voided.VoidReason)
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, "carol", *voided.VoidedBy)
}

func TestVoid_IssuedNumber(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, reserved[0].ID, nil, "bob")
	require.NoError(t, err)

	voided, err := f.svc.Void(ctx, reserved[0].ID, "documento cancelado", "carol")
	require.NoError(t, err)
	assert.Equal(t, StateVoided, voided.State)
}

func TestVoid_IsTerminal(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)
	_, err = f.svc.Void(ctx, reserved[0].ID, "engano", "carol")
	require.NoError(t, err)

	// Voided numbers can neither be voided again nor issued.
	_, err = f.svc.Void(ctx, reserved[0].ID, "de novo", "carol")
	assert.True(t, apperror.IsInvalidState(err))

	_, err = f.svc.Issue(ctx, reserved[0].ID, nil, "bob")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestVoid_ReasonRequired(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 1, "alice")
	require.NoError(t, err)

	_, err = f.svc.Void(ctx, reserved[0].ID, "   ", "carol")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Void(ctx, reserved[0].ID, strings.Repeat("x", MaxVoidReasonLen+1), "carol")
	assert.True(t, apperror.IsValidation(err))
}

func TestVoid_ReasonBoundCountsCharactersNotBytes(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 2, "alice")
	require.NoError(t, err)

	// 500 accented characters are 1000 bytes but still within the limit.
	got, err := f.svc.Void(ctx, reserved[0].ID, strings.Repeat("ã", MaxVoidReasonLen), "carol")
	require.NoError(t, err)
	assert.Equal(t, StateVoided, got.State)

	_, err = f.svc.Void(ctx, reserved[1].ID, strings.Repeat("ã", MaxVoidReasonLen+1), "carol")
	assert.True(t, apperror.IsValidation(err))
}

// --- List ---

func TestList_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t, "#{seq:3}/#{ano}", "", series.ResetAnnual)
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.seriesID, 30, "alice")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, reserved[0].ID, nil, "bob")
	require.NoError(t, err)

	state := StateIssued
	got, total, err := f.svc.List(ctx, Filter{State: &state}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, reserved[0].ID, got[0].ID)

	// Page/limit out of range fall back to defaults.
	got, total, err = f.svc.List(ctx, Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
	assert.Len(t, got, 20)

	// Ordering is seq desc within the year.
	assert.Equal(t, int64(30), got[0].Seq)
}
