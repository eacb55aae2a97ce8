// Package intel is the report service: it answers report requests from the
// cache when it can, generates and persists a report when it cannot, and
// falls back to a fixed placeholder report when generation fails.
package intel

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/sales-intel/internal/cache"
	"github.com/sells-group/sales-intel/internal/config"
	"github.com/sells-group/sales-intel/internal/model"
	"github.com/sells-group/sales-intel/internal/scoring"
	"github.com/sells-group/sales-intel/internal/store"
)

const (
	// DefaultTimeout bounds one report generation.
	DefaultTimeout = 60 * time.Second

	persistTimeout = 10 * time.Second
)

var (
	// ErrInvalidSubject is returned when no subject can be derived from the
	// request.
	ErrInvalidSubject = eris.New("intel: invalid subject")
	// ErrPipelineTimeout marks a generation that exceeded its time budget.
	ErrPipelineTimeout = eris.New("intel: pipeline timeout")
	// ErrRefreshNotPersisted marks a refresh whose report could not be
	// written to the cache.
	ErrRefreshNotPersisted = eris.New("intel: refreshed report not persisted")
)

// Generator produces a research report for a subject.
type Generator interface {
	Generate(ctx context.Context, subject string, kind model.ReportKind) (*model.ResearchReport, error)
}

// Request asks for a report about Subject. AccountID optionally links the
// result to an account owned by TenantID.
type Request struct {
	Subject   string           `json:"subject" yaml:"subject"`
	Kind      model.ReportKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	TenantID  string           `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	AccountID string           `json:"account_id,omitempty" yaml:"account_id,omitempty"`
}

// Response is the report service's answer. Success is true for every
// request with a valid subject, including fallback responses.
type Response struct {
	Success   bool                  `json:"success" yaml:"success"`
	Report    *model.ResearchReport `json:"report" yaml:"report"`
	Scores    model.ScoreSet        `json:"scores" yaml:"scores"`
	IsCached  bool                  `json:"is_cached" yaml:"is_cached"`
	IsExpired bool                  `json:"is_expired" yaml:"is_expired"`
	Fallback  bool                  `json:"fallback" yaml:"fallback"`
	CachedAt  *time.Time            `json:"cached_at,omitempty" yaml:"cached_at,omitempty"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Service answers report requests.
type Service struct {
	gen         Generator
	cache       *cache.Cache
	store       store.Store
	scoring     config.ScoringConfig
	timeout     time.Duration
	defaultKind model.ReportKind
	staleHook   func(cache.Key)
	log         *zap.Logger
	group       singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each generation.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDefaultKind sets the kind used when a request names none.
func WithDefaultKind(k model.ReportKind) Option {
	return func(s *Service) {
		if k.Valid() {
			s.defaultKind = k
		}
	}
}

// WithScoring sets the scoring configuration.
func WithScoring(cfg config.ScoringConfig) Option {
	return func(s *Service) { s.scoring = cfg }
}

// WithStaleHook registers fn to be called, on its own goroutine, whenever a
// stale entry is served.
func WithStaleHook(fn func(cache.Key)) Option {
	return func(s *Service) { s.staleHook = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service. st is used to attach reports to linked
// accounts and may be the same store backing c.
func NewService(gen Generator, c *cache.Cache, st store.Store, opts ...Option) *Service {
	s := &Service{
		gen:         gen,
		cache:       c,
		store:       st,
		scoring:     scoring.DefaultConfig(),
		timeout:     DefaultTimeout,
		defaultKind: model.ReportKindComprehensive,
		log:         zap.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Report answers req from the cache, or generates, persists and returns a
// new report. Generation failures produce a fallback response, not an
// error; the only error is ErrInvalidSubject.
func (s *Service) Report(ctx context.Context, req Request) (*Response, error) {
	key, err := s.keyFor(req)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("subject", key.Subject), zap.String("kind", string(key.Kind)))

	hit, err := s.cache.Get(ctx, key)
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		log.Error("intel: cache read failed, serving fallback", zap.Error(err))
		generations.WithLabelValues("fallback").Inc()
		return fallbackResponse(key, nil), nil
	}

	if hit != nil {
		artifact, err := hit.Artifact()
		if err == nil {
			if hit.Stale {
				cacheLookups.WithLabelValues("stale").Inc()
				if s.staleHook != nil {
					go s.staleHook(key)
				}
			} else {
				cacheLookups.WithLabelValues("fresh").Inc()
			}
			return cachedResponse(artifact, hit), nil
		}
		log.Warn("intel: unreadable cache payload, regenerating", zap.Error(err))
	}
	cacheLookups.WithLabelValues("miss").Inc()

	return s.generateShared(ctx, key, req.AccountID, false)
}

// Refresh regenerates the report for key regardless of cache state and
// persists it. Unlike Report, a failed generation returns the error and
// leaves the existing entry untouched.
func (s *Service) Refresh(ctx context.Context, key cache.Key, accountID string) (*Response, error) {
	key, err := s.keyFor(Request{Subject: key.Subject, Kind: key.Kind, TenantID: key.TenantID})
	if err != nil {
		return nil, err
	}
	return s.generateShared(ctx, key, accountID, true)
}

func (s *Service) keyFor(req Request) (cache.Key, error) {
	subject := model.NormalizeSubject(req.Subject)
	if subject == "" {
		return cache.Key{}, eris.Wrapf(ErrInvalidSubject, "intel: subject %q", req.Subject)
	}
	kind := req.Kind
	if !kind.Valid() {
		kind = s.defaultKind
	}
	return cache.Key{TenantID: req.TenantID, Subject: subject, Kind: kind}, nil
}

// generateShared runs at most one generation per key and account at a time;
// concurrent callers share the result.
func (s *Service) generateShared(ctx context.Context, key cache.Key, accountID string, refresh bool) (*Response, error) {
	flightKey := key.TenantID + "|" + key.Subject + "|" + string(key.Kind) + "|" + accountID
	if refresh {
		flightKey = "refresh|" + flightKey
	}

	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		// The run outlives any single caller; it is bounded by the timeout.
		base := context.WithoutCancel(ctx)
		resp, err := s.produce(base, key, accountID, refresh)
		if err == nil {
			return resp, nil
		}
		if refresh {
			generations.WithLabelValues("refresh_failed").Inc()
			return nil, err
		}
		s.log.Error("intel: generation failed, serving fallback",
			zap.String("subject", key.Subject),
			zap.String("kind", string(key.Kind)),
			zap.Error(err),
		)
		generations.WithLabelValues("fallback").Inc()
		return s.persistFallback(base, key), nil
	})
	if err != nil {
		return nil, err
	}

	resp := *v.(*Response)
	return &resp, nil
}

// produce generates, scores and persists a report. A refresh whose cache
// write is dropped fails with ErrRefreshNotPersisted.
func (s *Service) produce(ctx context.Context, key cache.Key, accountID string, refresh bool) (*Response, error) {
	start := time.Now()
	report, err := s.generate(ctx, key)
	if err != nil {
		return nil, err
	}
	scores := scoring.Score(report, s.scoring)
	generationSeconds.Observe(time.Since(start).Seconds())
	generations.WithLabelValues("success").Inc()

	artifact := &model.CachedArtifact{Report: *report, Scores: scores}
	resp := &Response{Success: true, Report: report, Scores: scores}

	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if accountID != "" && s.store != nil {
		if err := s.store.SaveAccountIntel(pctx, key.TenantID, accountID, artifact); err != nil {
			s.log.Warn("intel: attach report to account failed",
				zap.String("subject", key.Subject),
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
	}
	entry := s.persist(pctx, key, artifact, accountID)
	if entry == nil {
		if refresh {
			return nil, eris.Wrapf(ErrRefreshNotPersisted, "intel: refresh %s", key.Subject)
		}
		return resp, nil
	}
	resp.CachedAt, resp.ExpiresAt = timestamps(entry)
	return resp, nil
}

// generate runs the generator under the timeout. When the timer fires
// first, the generator's eventual result is discarded.
func (s *Service) generate(ctx context.Context, key cache.Key) (*model.ResearchReport, error) {
	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		report *model.ResearchReport
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := s.gen.Generate(gctx, key.Subject, key.Kind)
		ch <- result{r, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			if errors.Is(gctx.Err(), context.DeadlineExceeded) {
				return nil, eris.Wrapf(ErrPipelineTimeout, "intel: generate %s after %s", key.Subject, s.timeout)
			}
			return nil, eris.Wrapf(res.err, "intel: generate %s", key.Subject)
		}
		if res.report == nil {
			return nil, eris.Errorf("intel: generate %s: empty report", key.Subject)
		}
		return res.report, nil
	case <-gctx.Done():
		return nil, eris.Wrapf(ErrPipelineTimeout, "intel: generate %s after %s", key.Subject, s.timeout)
	}
}

func (s *Service) persistFallback(ctx context.Context, key cache.Key) *Response {
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	artifact := &model.CachedArtifact{
		Report:   *model.FallbackReport(key.Subject, key.Kind),
		Scores:   model.FallbackScores(),
		Fallback: true,
	}
	return fallbackResponse(key, s.persist(pctx, key, artifact, ""))
}

// persist writes artifact to the cache. Failures are logged; the orphan
// guard logs its own event.
func (s *Service) persist(ctx context.Context, key cache.Key, artifact *model.CachedArtifact, accountID string) *model.CacheEntry {
	entry, err := s.cache.Upsert(ctx, key, artifact, accountID)
	if err != nil {
		if !errors.Is(err, cache.ErrOrphanCacheWrite) {
			s.log.Error("intel: cache write failed",
				zap.String("subject", key.Subject),
				zap.Error(err),
			)
		}
		return nil
	}
	return entry
}

func cachedResponse(a *model.CachedArtifact, hit *cache.Hit) *Response {
	report := a.Report
	report.Normalize()
	resp := &Response{
		Success:   true,
		Report:    &report,
		Scores:    a.Scores,
		IsCached:  true,
		IsExpired: hit.Stale,
		Fallback:  a.Fallback,
	}
	resp.CachedAt, resp.ExpiresAt = timestamps(&hit.Entry)
	return resp
}

func fallbackResponse(key cache.Key, entry *model.CacheEntry) *Response {
	resp := &Response{
		Success:  true,
		Report:   model.FallbackReport(key.Subject, key.Kind),
		Scores:   model.FallbackScores(),
		Fallback: true,
	}
	if entry != nil {
		resp.CachedAt, resp.ExpiresAt = timestamps(entry)
	}
	return resp
}

func timestamps(e *model.CacheEntry) (*time.Time, *time.Time) {
	created, expires := e.CreatedAt, e.ExpiresAt
	return &created, &expires
}
