package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/sales-intel/internal/model"
)

// DefaultStages returns the full stage catalog wired to deps. Stages whose
// live source is missing from deps run their fallback.
func DefaultStages(deps *Deps) []Stage {
	if deps == nil {
		deps = &Deps{}
	}
	stages := []Stage{
		listStage(StageCompetitors, nil, func(r *model.ResearchReport, v []string) { r.Competitors = v }),
		listStage(StageTechStack, []StageName{StageCompetitors}, func(r *model.ResearchReport, v []string) { r.TechStack = v }),
		{
			Name:      StageDecisionMakers,
			DependsOn: []StageName{StageCompetitors},
			Fallback: FallbackStrategy[[]model.DecisionMaker]{
				Default: func(Input) []model.DecisionMaker { return []model.DecisionMaker{} },
				Apply:   applyDecisionMakers,
			},
		},
		listStage(StagePainPoints, []StageName{StageCompetitors}, func(r *model.ResearchReport, v []string) { r.PainPoints = v }),
		listStage(StageMarketTrends, nil, func(r *model.ResearchReport, v []string) { r.MarketTrends = v }),
		{
			Name: StageCompanyProfile,
			Fallback: FallbackStrategy[model.CompanyProfile]{
				Default: func(in Input) model.CompanyProfile {
					return model.CompanyProfile{Name: model.DisplayName(in.Subject)}
				},
				Apply: applyCompanyProfile,
			},
		},
		{
			Name: StageGoToMarket,
			Fallback: FallbackStrategy[model.GoToMarket]{
				Default: func(Input) model.GoToMarket {
					return model.GoToMarket{Channels: []string{}, TargetSegments: []string{}, SalesMotion: model.SalesMotionUnknown}
				},
				Apply: applyGoToMarket,
			},
		},
		{
			Name: StageOperations,
			Fallback: FallbackStrategy[model.Operations]{
				Default: func(Input) model.Operations { return model.Operations{Processes: []string{}} },
				Apply:   applyOperations,
			},
		},
		listStage(StageBuyingSignals, nil, func(r *model.ResearchReport, v []string) { r.BuyingSignals = v }),
		{
			Name: StageEngagement,
			Fallback: FallbackStrategy[model.Engagement]{
				Default: func(Input) model.Engagement { return model.Engagement{} },
				Apply:   applyEngagement,
			},
		},
	}

	for i := range stages {
		stages[i].Live = deps.liveFor(stages[i].Name)
	}
	return stages
}

func listStage(name StageName, dependsOn []StageName, apply func(r *model.ResearchReport, v []string)) Stage {
	return Stage{
		Name:      name,
		DependsOn: dependsOn,
		Fallback: FallbackStrategy[[]string]{
			Default: func(Input) []string { return []string{} },
			Apply:   apply,
		},
	}
}

// liveFor returns the live strategy for a stage, or nil when the services
// it needs are not configured.
func (d *Deps) liveFor(name StageName) Strategy {
	if name == StageEngagement {
		if d.Engagement == nil {
			return nil
		}
		return LiveStrategy[model.Engagement]{
			Fetch: func(ctx context.Context, in Input) (model.Engagement, error) {
				return d.Engagement.Engagement(ctx, in.Subject)
			},
			Apply: applyEngagement,
		}
	}
	if d.Anthropic == nil {
		return nil
	}

	switch name {
	case StageCompetitors:
		return listLive(func(ctx context.Context, in Input) ([]string, error) {
			web := d.searchContext(ctx, name, fmt.Sprintf("%s competitors alternatives", in.Subject))
			return ask[[]string](ctx, d, name, fmt.Sprintf(competitorsPrompt, in.Subject, web))
		}, 8, func(r *model.ResearchReport, v []string) { r.Competitors = v })
	case StageTechStack:
		return listLive(func(ctx context.Context, in Input) ([]string, error) {
			web := d.searchContext(ctx, name, fmt.Sprintf("%s technology stack ERP CRM", in.Subject))
			return ask[[]string](ctx, d, name, fmt.Sprintf(techStackPrompt, in.Subject, priorCompetitors(in), web))
		}, 15, func(r *model.ResearchReport, v []string) { r.TechStack = v })
	case StageDecisionMakers:
		return LiveStrategy[[]model.DecisionMaker]{
			Fetch: func(ctx context.Context, in Input) ([]model.DecisionMaker, error) {
				return ask[[]model.DecisionMaker](ctx, d, name, fmt.Sprintf(decisionMakersPrompt, in.Subject, priorCompetitors(in)))
			},
			Apply: applyDecisionMakers,
		}
	case StagePainPoints:
		return listLive(func(ctx context.Context, in Input) ([]string, error) {
			return ask[[]string](ctx, d, name, fmt.Sprintf(painPointsPrompt, in.Subject, priorCompetitors(in)))
		}, 6, func(r *model.ResearchReport, v []string) { r.PainPoints = v })
	case StageMarketTrends:
		return listLive(func(ctx context.Context, in Input) ([]string, error) {
			research := ""
			if d.Perplexity != nil {
				text, err := d.research(ctx, name, fmt.Sprintf(marketTrendsQuestion, in.Subject))
				if err != nil {
					return nil, err
				}
				research = text
			} else {
				research = d.searchContext(ctx, name, fmt.Sprintf("%s industry market trends", in.Subject))
			}
			return ask[[]string](ctx, d, name, fmt.Sprintf(marketTrendsPrompt, research))
		}, 6, func(r *model.ResearchReport, v []string) { r.MarketTrends = v })
	case StageCompanyProfile:
		return LiveStrategy[model.CompanyProfile]{
			Fetch: func(ctx context.Context, in Input) (model.CompanyProfile, error) {
				home := d.homepageContext(ctx, name, in.Subject)
				return ask[model.CompanyProfile](ctx, d, name, fmt.Sprintf(companyProfilePrompt, in.Subject, home))
			},
			Apply: applyCompanyProfile,
		}
	case StageGoToMarket:
		return LiveStrategy[model.GoToMarket]{
			Fetch: func(ctx context.Context, in Input) (model.GoToMarket, error) {
				home := d.homepageContext(ctx, name, in.Subject)
				return ask[model.GoToMarket](ctx, d, name, fmt.Sprintf(goToMarketPrompt, in.Subject, home))
			},
			Apply: applyGoToMarket,
		}
	case StageOperations:
		return LiveStrategy[model.Operations]{
			Fetch: func(ctx context.Context, in Input) (model.Operations, error) {
				web := d.searchContext(ctx, name, fmt.Sprintf("%s S&OP demand planning forecasting", in.Subject))
				return ask[model.Operations](ctx, d, name, fmt.Sprintf(operationsPrompt, in.Subject, web))
			},
			Apply: applyOperations,
		}
	case StageBuyingSignals:
		return listLive(func(ctx context.Context, in Input) ([]string, error) {
			web := d.searchContext(ctx, name, fmt.Sprintf("%s news hiring funding expansion", in.Subject))
			return ask[[]string](ctx, d, name, fmt.Sprintf(buyingSignalsPrompt, in.Subject, web))
		}, 8, func(r *model.ResearchReport, v []string) { r.BuyingSignals = v })
	}
	return nil
}

func listLive(fetch func(ctx context.Context, in Input) ([]string, error), limit int, apply func(r *model.ResearchReport, v []string)) Strategy {
	return LiveStrategy[[]string]{
		Fetch: func(ctx context.Context, in Input) ([]string, error) {
			items, err := fetch(ctx, in)
			if err != nil {
				return nil, err
			}
			return cleanList(items, limit), nil
		},
		Apply: apply,
	}
}

// cleanList trims entries, drops blanks and case-insensitive duplicates, and
// caps the list at limit.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func priorCompetitors(in Input) string {
	if len(in.Prior.Competitors) == 0 {
		return "none known"
	}
	return strings.Join(in.Prior.Competitors, ", ")
}

func applyDecisionMakers(r *model.ResearchReport, v []model.DecisionMaker) {
	out := make([]model.DecisionMaker, 0, len(v))
	for _, dm := range v {
		dm.Title = strings.TrimSpace(dm.Title)
		if dm.Title == "" {
			continue
		}
		switch strings.ToLower(dm.Influence) {
		case "high", "medium", "low":
			dm.Influence = strings.ToLower(dm.Influence)
		default:
			dm.Influence = "medium"
		}
		out = append(out, dm)
	}
	r.DecisionMakers = out
}

func applyCompanyProfile(r *model.ResearchReport, v model.CompanyProfile) {
	r.CompanyProfile = v
}

func applyGoToMarket(r *model.ResearchReport, v model.GoToMarket) {
	v.Channels = cleanList(v.Channels, 0)
	v.TargetSegments = cleanList(v.TargetSegments, 0)
	r.GoToMarket = v
}

func applyOperations(r *model.ResearchReport, v model.Operations) {
	v.Processes = cleanList(v.Processes, 0)
	v.DataCentralizationPct = clampPct(v.DataCentralizationPct)
	v.ForecastAccuracyPct = clampPct(v.ForecastAccuracyPct)
	r.Operations = v
}

func applyEngagement(r *model.ResearchReport, v model.Engagement) {
	r.Engagement = v
}

func clampPct(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
