package research

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sales-intel/internal/model"
)

// Orchestrator runs a set of stages as a dependency graph and assembles
// their partial results into one report.
type Orchestrator struct {
	stages map[StageName]Stage
	order  []StageName
	log    *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for stage degrade events.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// NewOrchestrator validates the stage graph: names must be unique, every
// stage needs a fallback, dependencies must exist and must not form a cycle.
func NewOrchestrator(stages []Stage, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		stages: make(map[StageName]Stage, len(stages)),
		log:    zap.L(),
	}
	for _, opt := range opts {
		opt(o)
	}

	for _, st := range stages {
		if st.Name == "" {
			return nil, eris.New("research: stage with empty name")
		}
		if _, dup := o.stages[st.Name]; dup {
			return nil, eris.Errorf("research: duplicate stage %q", st.Name)
		}
		if st.Fallback == nil {
			return nil, eris.Errorf("research: stage %q has no fallback", st.Name)
		}
		o.stages[st.Name] = st
		o.order = append(o.order, st.Name)
	}
	for _, st := range stages {
		for _, dep := range st.DependsOn {
			if _, ok := o.stages[dep]; !ok {
				return nil, eris.Errorf("research: stage %q depends on unknown stage %q", st.Name, dep)
			}
		}
	}
	if err := o.checkCycles(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Orchestrator) checkCycles() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[StageName]int, len(o.stages))
	var visit func(n StageName) error
	visit = func(n StageName) error {
		switch state[n] {
		case visiting:
			return eris.Errorf("research: dependency cycle through stage %q", n)
		case visited:
			return nil
		}
		state[n] = visiting
		for _, dep := range o.stages[n].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[n] = visited
		return nil
	}
	for _, n := range o.order {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// Stages returns the stage names a report of the given kind runs, in
// registration order. Dependencies of selected stages are always included.
func (o *Orchestrator) Stages(kind model.ReportKind) []StageName {
	want := make(map[StageName]bool, len(o.stages))
	var include func(n StageName)
	include = func(n StageName) {
		if want[n] {
			return
		}
		want[n] = true
		for _, dep := range o.stages[n].DependsOn {
			include(dep)
		}
	}
	for _, n := range o.order {
		if kind != model.ReportKindBasic || basicStages[n] {
			include(n)
		}
	}

	out := make([]StageName, 0, len(want))
	for _, n := range o.order {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

// Generate runs every stage selected by kind and returns the assembled
// report. Stage failures degrade to the stage default and are listed in
// the report's Degraded field. An error is returned only when ctx ends
// before all stages resolve.
func (o *Orchestrator) Generate(ctx context.Context, subject string, kind model.ReportKind) (*model.ResearchReport, error) {
	if !kind.Valid() {
		kind = model.ReportKindComprehensive
	}
	selected := o.Stages(kind)

	report := model.ResearchReport{Subject: subject, Kind: kind}
	var (
		mu       sync.Mutex
		degraded []string
	)
	done := make(map[StageName]chan struct{}, len(selected))
	for _, n := range selected {
		done[n] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range selected {
		st := o.stages[n]
		g.Go(func() error {
			defer close(done[st.Name])
			for _, dep := range st.DependsOn {
				select {
				case <-done[dep]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			mu.Lock()
			in := Input{Subject: subject, Kind: kind, Prior: report}
			mu.Unlock()

			partial, ok := o.run(gctx, st, in)

			mu.Lock()
			defer mu.Unlock()
			if partial != nil {
				partial(&report)
			}
			if !ok {
				degraded = append(degraded, string(st.Name))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "research: generate %s", subject)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "research: generate %s", subject)
	}

	sort.Strings(degraded)
	report.Degraded = degraded
	report.Normalize()
	report.Summary = Summarize(&report)
	return &report, nil
}

// run produces a stage's partial result. ok is false when the live
// strategy failed and the fallback was used.
func (o *Orchestrator) run(ctx context.Context, st Stage, in Input) (partial Partial, ok bool) {
	if st.Live == nil {
		stageResults.WithLabelValues(string(st.Name), outcomeStatic).Inc()
		return o.fallback(ctx, st, in), true
	}

	partial, err := produce(ctx, st.Live, in)
	if err == nil {
		stageResults.WithLabelValues(string(st.Name), outcomeLive).Inc()
		return partial, true
	}

	o.log.Warn("research: stage degraded",
		zap.String("stage", string(st.Name)),
		zap.String("subject", in.Subject),
		zap.Error(err),
	)
	stageResults.WithLabelValues(string(st.Name), outcomeDegraded).Inc()
	return o.fallback(ctx, st, in), false
}

func (o *Orchestrator) fallback(ctx context.Context, st Stage, in Input) Partial {
	partial, err := produce(ctx, st.Fallback, in)
	if err != nil {
		o.log.Error("research: stage fallback failed",
			zap.String("stage", string(st.Name)),
			zap.Error(err),
		)
		return nil
	}
	return partial
}

// produce calls s, converting a panic into an error.
func produce(ctx context.Context, s Strategy, in Input) (partial Partial, err error) {
	defer func() {
		if r := recover(); r != nil {
			partial = nil
			err = eris.New(fmt.Sprintf("research: stage panicked: %v", r))
		}
	}()
	return s.Produce(ctx, in)
}
