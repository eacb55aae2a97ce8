// Package research runs the research stages that make up a sales
// intelligence report and assembles their outputs.
package research

import (
	"context"

	"github.com/sells-group/sales-intel/internal/model"
)

// StageName identifies one research stage.
type StageName string

const (
	StageCompetitors    StageName = "competitors"
	StageTechStack      StageName = "tech_stack"
	StageDecisionMakers StageName = "decision_makers"
	StagePainPoints     StageName = "pain_points"
	StageMarketTrends   StageName = "market_trends"
	StageCompanyProfile StageName = "company_profile"
	StageGoToMarket     StageName = "go_to_market"
	StageOperations     StageName = "operations"
	StageBuyingSignals  StageName = "buying_signals"
	StageEngagement     StageName = "engagement"
)

// basicStages are the stages a basic report runs. Comprehensive reports run
// every registered stage.
var basicStages = map[StageName]bool{
	StageCompetitors:    true,
	StageTechStack:      true,
	StageCompanyProfile: true,
	StagePainPoints:     true,
}

// Input is what a stage sees: the subject and the outputs of the stages it
// depends on. Prior is a snapshot and must not be modified.
type Input struct {
	Subject string
	Kind    model.ReportKind
	Prior   model.ResearchReport
}

// Partial writes one stage's slice of the report.
type Partial func(r *model.ResearchReport)

// Strategy produces a stage's partial result.
type Strategy interface {
	Produce(ctx context.Context, in Input) (Partial, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, in Input) (Partial, error)

func (f StrategyFunc) Produce(ctx context.Context, in Input) (Partial, error) {
	return f(ctx, in)
}

// LiveStrategy produces a stage value from external services.
type LiveStrategy[T any] struct {
	Fetch func(ctx context.Context, in Input) (T, error)
	Apply func(r *model.ResearchReport, v T)
}

func (s LiveStrategy[T]) Produce(ctx context.Context, in Input) (Partial, error) {
	v, err := s.Fetch(ctx, in)
	if err != nil {
		return nil, err
	}
	return func(r *model.ResearchReport) { s.Apply(r, v) }, nil
}

// FallbackStrategy returns a stage's static default. It never fails.
type FallbackStrategy[T any] struct {
	Default func(in Input) T
	Apply   func(r *model.ResearchReport, v T)
}

func (s FallbackStrategy[T]) Produce(_ context.Context, in Input) (Partial, error) {
	v := s.Default(in)
	return func(r *model.ResearchReport) { s.Apply(r, v) }, nil
}

// Stage is one unit of research. Live may be nil, in which case the
// fallback is always used.
type Stage struct {
	Name      StageName
	DependsOn []StageName
	Live      Strategy
	Fallback  Strategy
}
