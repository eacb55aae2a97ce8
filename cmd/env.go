package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sales-intel/internal/cache"
	"github.com/sells-group/sales-intel/internal/cost"
	"github.com/sells-group/sales-intel/internal/intel"
	"github.com/sells-group/sales-intel/internal/model"
	"github.com/sells-group/sales-intel/internal/research"
	"github.com/sells-group/sales-intel/internal/resilience"
	"github.com/sells-group/sales-intel/internal/store"
	anthropicpkg "github.com/sells-group/sales-intel/pkg/anthropic"
	"github.com/sells-group/sales-intel/pkg/jina"
	"github.com/sells-group/sales-intel/pkg/perplexity"
)

// reportEnv holds the store, cache and report service needed by the
// report/serve/worker commands.
type reportEnv struct {
	Store   store.Store
	Cache   *cache.Cache
	Service *intel.Service
}

// Close releases resources held by the environment.
func (e *reportEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initReportEnv opens the store and builds the report service from cfg.
// Callers should defer env.Close().
func initReportEnv(ctx context.Context, mode string) (*reportEnv, error) {
	st, err := openStore(ctx, mode)
	if err != nil {
		return nil, err
	}

	deps := researchDeps()
	env, err := buildReportEnv(st, deps)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return env, nil
}

// researchDeps builds the external clients and the shared resilience
// policy. Sources without a key are left nil so their stages run static.
func researchDeps() *research.Deps {
	deps := &research.Deps{
		Policy:    resilience.PolicyFromConfig(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMs, cfg.Retry.MaxDelayMs),
		Limiter:   resilience.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		Breakers:  resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs)),
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Costs:     cost.NewCalculator(cost.DefaultRates()),
	}

	if cfg.Anthropic.Key != "" {
		deps.Anthropic = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}
	if cfg.Jina.Key != "" {
		jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
		if cfg.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		deps.Jina = jina.NewClient(cfg.Jina.Key, jinaOpts...)
	}
	if cfg.Perplexity.Key != "" {
		deps.Perplexity = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	}

	zap.L().Info("research sources configured",
		zap.Bool("anthropic", deps.Anthropic != nil),
		zap.Bool("jina", deps.Jina != nil),
		zap.Bool("perplexity", deps.Perplexity != nil),
	)
	return deps
}

// buildReportEnv wires the orchestrator, cache and service over st.
func buildReportEnv(st store.Store, deps *research.Deps) (*reportEnv, error) {
	orch, err := research.NewOrchestrator(research.DefaultStages(deps))
	if err != nil {
		return nil, eris.Wrap(err, "build orchestrator")
	}

	c := newCache(st)

	svc := intel.NewService(orch, c, st,
		intel.WithTimeout(time.Duration(cfg.Pipeline.TimeoutSecs)*time.Second),
		intel.WithDefaultKind(model.ParseReportKind(cfg.Pipeline.DefaultKind)),
		intel.WithScoring(cfg.Scoring),
	)

	return &reportEnv{Store: st, Cache: c, Service: svc}, nil
}
