package intel

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/cache"
	"github.com/sells-group/sales-intel/internal/model"
	"github.com/sells-group/sales-intel/internal/store"
	"github.com/sells-group/sales-intel/internal/store/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingGenerator returns a fixed report and counts calls. When block is
// set, it waits for release or ctx.
type countingGenerator struct {
	calls   atomic.Int32
	err     error
	block   bool
	release chan struct{}
}

func (g *countingGenerator) Generate(ctx context.Context, subject string, kind model.ReportKind) (*model.ResearchReport, error) {
	g.calls.Add(1)
	if g.block {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	r := model.NewReport(subject, kind)
	r.Competitors = []string{"Globex", "Initech"}
	r.CompanyProfile.Industry = "Manufacturing"
	r.Summary = "Acme. Competitors: Globex, Initech."
	return r, nil
}

type fixture struct {
	svc   *Service
	store *store.SQLiteStore
	clock *fakeClock
	gen   *countingGenerator
}

func newFixture(t *testing.T, gen *countingGenerator, opts ...Option) *fixture {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "intel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := cache.New(st, cache.WithClock(clock.Now), cache.WithLogger(zap.NewNop()))
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return &fixture{
		svc:   NewService(gen, c, st, opts...),
		store: st,
		clock: clock,
		gen:   gen,
	}
}

func TestReport_ExampleScenario(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()
	req := Request{Subject: "example.com"}

	first, err := f.svc.Report(ctx, req)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.False(t, first.IsCached)
	assert.False(t, first.Fallback)
	assert.Equal(t, []string{"Globex", "Initech"}, first.Report.Competitors)
	require.NotNil(t, first.ExpiresAt)
	assert.Equal(t, int32(1), f.gen.calls.Load())

	f.clock.Advance(24 * time.Hour)
	second, err := f.svc.Report(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.IsCached)
	assert.False(t, second.IsExpired)
	assert.Equal(t, first.Report.Competitors, second.Report.Competitors)
	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, int32(1), f.gen.calls.Load(), "cache hit must not regenerate")

	f.clock.Advance(30 * 24 * time.Hour)
	third, err := f.svc.Report(ctx, req)
	require.NoError(t, err)
	assert.True(t, third.IsCached)
	assert.True(t, third.IsExpired)
	assert.Equal(t, int32(1), f.gen.calls.Load(), "stale hit is served without refresh")
}

func TestReport_SubjectVariantsShareEntry(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()

	_, err := f.svc.Report(ctx, Request{Subject: "https://www.Example.com/about"})
	require.NoError(t, err)
	resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.IsCached)
	assert.Equal(t, int32(1), f.gen.calls.Load())
}

func TestReport_KindsAreSeparateEntries(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()

	_, err := f.svc.Report(ctx, Request{Subject: "example.com", Kind: model.ReportKindBasic})
	require.NoError(t, err)
	resp, err := f.svc.Report(ctx, Request{Subject: "example.com", Kind: model.ReportKindComprehensive})
	require.NoError(t, err)
	assert.False(t, resp.IsCached)
	assert.Equal(t, int32(2), f.gen.calls.Load())
}

func TestReport_InvalidSubject(t *testing.T) {
	f := newFixture(t, &countingGenerator{})

	_, err := f.svc.Report(context.Background(), Request{Subject: "   "})
	assert.ErrorIs(t, err, ErrInvalidSubject)
	assert.Equal(t, int32(0), f.gen.calls.Load())
}

func TestReport_TimeoutServesAndPersistsFallback(t *testing.T) {
	gen := &countingGenerator{block: true, release: make(chan struct{})}
	f := newFixture(t, gen, WithTimeout(20*time.Millisecond))
	ctx := context.Background()

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Fallback)
	assert.False(t, resp.IsCached)
	assert.Equal(t, model.FallbackSummary, resp.Report.Summary)
	assert.Equal(t, model.FallbackScores(), resp.Scores)
	assert.Equal(t, []string{}, resp.Report.Competitors)

	again, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, again.IsCached)
	assert.True(t, again.Fallback)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestReport_GeneratorErrorServesFallback(t *testing.T) {
	f := newFixture(t, &countingGenerator{err: errors.New("context ended")})

	resp, err := f.svc.Report(context.Background(), Request{Subject: "example.com", Kind: model.ReportKindBasic})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, model.ReportKindBasic, resp.Report.Kind)
	assert.Equal(t, "Example", resp.Report.CompanyProfile.Name)
}

func TestReport_CallerCancelDoesNotAbortGeneration(t *testing.T) {
	gen := &countingGenerator{block: true, release: make(chan struct{})}
	f := newFixture(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Response, 1)
	go func() {
		resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
		assert.NoError(t, err)
		done <- resp
	}()

	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(gen.release)

	resp := <-done
	require.NotNil(t, resp)
	assert.False(t, resp.Fallback)

	cached, err := f.svc.Report(context.Background(), Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, cached.IsCached)
	assert.False(t, cached.Fallback)
}

func TestReport_ConcurrentMissesShareOneGeneration(t *testing.T) {
	gen := &countingGenerator{block: true, release: make(chan struct{})}
	f := newFixture(t, gen)

	var wg sync.WaitGroup
	responses := make([]*Response, 5)
	for i := range responses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Report(context.Background(), Request{Subject: "example.com"})
			assert.NoError(t, err)
			responses[i] = resp
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, resp := range responses {
		require.NotNil(t, resp)
		assert.False(t, resp.Fallback)
	}
}

func TestReport_LinkedAccountReceivesIntel(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()

	acct, err := f.store.CreateAccount(ctx, &model.Account{TenantID: "t1", Name: "Example", Domain: "example.com"})
	require.NoError(t, err)

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com", TenantID: "t1", AccountID: acct.ID})
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	require.NotNil(t, resp.CachedAt)

	got, err := f.store.GetAccount(ctx, "t1", acct.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Intel)
	assert.Equal(t, resp.Scores, got.Intel.Scores)
	assert.Equal(t, []string{"Globex", "Initech"}, got.Intel.Report.Competitors)

	// Tenants do not see each other's entries.
	other, err := f.svc.Report(ctx, Request{Subject: "example.com", TenantID: "t2"})
	require.NoError(t, err)
	assert.False(t, other.IsCached)
}

func TestReport_OrphanAccountSkipsCacheWrite(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com", AccountID: "missing"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Fallback)
	assert.Nil(t, resp.CachedAt)

	again, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.False(t, again.IsCached)
	assert.Equal(t, int32(2), f.gen.calls.Load())
}

func TestReport_StaleHookFires(t *testing.T) {
	hooked := make(chan cache.Key, 1)
	f := newFixture(t, &countingGenerator{}, WithStaleHook(func(k cache.Key) { hooked <- k }))
	ctx := context.Background()

	_, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	f.clock.Advance(31 * 24 * time.Hour)

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.IsExpired)

	select {
	case k := <-hooked:
		assert.Equal(t, "example.com", k.Subject)
		assert.Equal(t, model.ReportKindComprehensive, k.Kind)
	case <-time.After(time.Second):
		t.Fatal("stale hook not called")
	}
}

func TestReport_CacheReadFailureServesFallbackWithoutWriting(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("GetReportCache", mock.Anything, "", "example.com", model.ReportKindComprehensive).
		Return(nil, errors.New("connection refused"))

	gen := &countingGenerator{}
	svc := NewService(gen, cache.New(st, cache.WithLogger(zap.NewNop())), st, WithLogger(zap.NewNop()))

	resp, err := svc.Report(context.Background(), Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Fallback)
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestRefresh_RegeneratesAndResetsExpiry(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()

	first, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)
	refreshed, err := f.svc.Refresh(ctx, cache.Key{Subject: "example.com", Kind: model.ReportKindComprehensive}, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.gen.calls.Load())
	require.NotNil(t, refreshed.ExpiresAt)
	assert.True(t, refreshed.ExpiresAt.After(*first.ExpiresAt))

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.IsCached)
	assert.False(t, resp.IsExpired)
}

func TestRefresh_FailureLeavesEntry(t *testing.T) {
	gen := &countingGenerator{}
	f := newFixture(t, gen)
	ctx := context.Background()

	_, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)

	gen.err = errors.New("provider down")
	_, err = f.svc.Refresh(ctx, cache.Key{Subject: "example.com"}, "")
	require.Error(t, err)

	resp, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.IsCached)
	assert.False(t, resp.Fallback)
}

func TestRefresh_OrphanAccountFailsAndLeavesEntryStale(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	ctx := context.Background()
	key := cache.Key{Subject: "example.com", Kind: model.ReportKindComprehensive}

	_, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)
	resp, err := f.svc.Refresh(ctx, key, "deleted-account")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshNotPersisted)
	assert.Nil(t, resp)
	assert.Equal(t, int32(2), f.gen.calls.Load())

	after, err := f.svc.Report(ctx, Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, after.IsCached)
	assert.True(t, after.IsExpired)
}

func TestRefresh_UpsertErrorFails(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("UpsertReportCache", mock.Anything, mock.Anything).
		Return(nil, errors.New("disk full"))

	gen := &countingGenerator{}
	svc := NewService(gen, cache.New(st, cache.WithLogger(zap.NewNop())), st, WithLogger(zap.NewNop()))

	_, err := svc.Refresh(context.Background(), cache.Key{Subject: "example.com"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshNotPersisted)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestReport_UpsertErrorStillReturnsReport(t *testing.T) {
	st := mocks.NewMockStore(t)
	st.On("GetReportCache", mock.Anything, "", "example.com", model.ReportKindComprehensive).
		Return(nil, nil)
	st.On("UpsertReportCache", mock.Anything, mock.Anything).
		Return(nil, errors.New("disk full"))

	svc := NewService(&countingGenerator{}, cache.New(st, cache.WithLogger(zap.NewNop())), st, WithLogger(zap.NewNop()))

	resp, err := svc.Report(context.Background(), Request{Subject: "example.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Fallback)
	assert.Nil(t, resp.ExpiresAt)
}
