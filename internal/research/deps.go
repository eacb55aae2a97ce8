package research

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/sales-intel/internal/cost"
	"github.com/sells-group/sales-intel/internal/model"
	"github.com/sells-group/sales-intel/internal/resilience"
	"github.com/sells-group/sales-intel/pkg/anthropic"
	"github.com/sells-group/sales-intel/pkg/jina"
	"github.com/sells-group/sales-intel/pkg/perplexity"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 2048

	// maxContextChars bounds how much fetched web text goes into a prompt.
	maxContextChars = 6000
)

// EngagementSource supplies first-party intent and engagement metrics for
// a subject (marketing automation, web analytics).
type EngagementSource interface {
	Engagement(ctx context.Context, subject string) (model.Engagement, error)
}

// Deps are the external services live stages call. Any client may be nil;
// stages that need a missing client run their fallback instead.
type Deps struct {
	Anthropic  anthropic.Client
	Jina       jina.Client
	Perplexity perplexity.Client
	Engagement EngagementSource

	// Policy is the base retry policy; each call names its own service and
	// stage.
	Policy   resilience.Policy
	Limiter  *resilience.RateLimiter
	Breakers *resilience.ServiceBreakers

	Model     string
	MaxTokens int64

	// Costs prices each call. Default rates apply when nil.
	Costs *cost.Calculator
}

func (d *Deps) policy(service string, stage StageName) resilience.Policy {
	p := d.Policy.Named(service, string(stage))
	if p.Limiter == nil {
		p.Limiter = d.Limiter
	}
	if d.Breakers != nil {
		p.Breaker = d.Breakers.Get(service)
	}
	return p
}

var defaultCosts = cost.NewCalculator(cost.DefaultRates())

func (d *Deps) costs() *cost.Calculator {
	if d.Costs == nil {
		return defaultCosts
	}
	return d.Costs
}

func (d *Deps) model() string {
	if d.Model == "" {
		return defaultModel
	}
	return d.Model
}

func (d *Deps) maxTokens() int64 {
	if d.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return d.MaxTokens
}

// complete sends prompt to the model and returns the text reply.
func (d *Deps) complete(ctx context.Context, stage StageName, prompt string) (string, error) {
	resp, err := resilience.AttemptVal(ctx, d.policy("anthropic", stage), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return d.Anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     d.model(),
			MaxTokens: d.maxTokens(),
			System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", err
	}
	u := resp.Usage
	usd := d.costs().Claude(d.model(), u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens)
	u.LogCost(d.model(), string(stage), usd)
	d.costs().Record("anthropic", string(stage), usd)
	return resp.Text(), nil
}

// ask sends prompt to the model and parses the reply as T.
func ask[T any](ctx context.Context, d *Deps, stage StageName, prompt string) (T, error) {
	text, err := d.complete(ctx, stage, prompt)
	if err != nil {
		var zero T
		return zero, err
	}
	return ParseStructured[T](text)
}

// searchContext runs a web search and returns the results as prompt
// context. Search is best-effort: failures yield empty context.
func (d *Deps) searchContext(ctx context.Context, stage StageName, query string) string {
	if d.Jina == nil {
		return ""
	}
	return resilience.AttemptOr(ctx, d.policy("jina", stage), func(ctx context.Context) (string, error) {
		resp, err := d.Jina.Search(ctx, query)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, r := range resp.Data {
			sb.WriteString("- ")
			sb.WriteString(r.Title)
			if r.Description != "" {
				sb.WriteString(": ")
				sb.WriteString(r.Description)
			}
			sb.WriteString("\n")
		}
		return truncate(sb.String(), maxContextChars), nil
	}, func(error) string { return "" })
}

// homepageContext reads the subject's homepage as markdown. Best-effort.
func (d *Deps) homepageContext(ctx context.Context, stage StageName, subject string) string {
	if d.Jina == nil {
		return ""
	}
	return resilience.AttemptOr(ctx, d.policy("jina", stage), func(ctx context.Context) (string, error) {
		resp, err := d.Jina.Read(ctx, "https://"+subject)
		if err != nil {
			return "", err
		}
		d.costs().Record("jina", string(stage), d.costs().Jina(resp.Data.Usage.Tokens))
		return truncate(resp.Data.Content, maxContextChars), nil
	}, func(error) string { return "" })
}

// research asks the answer engine a question and returns the answer text.
func (d *Deps) research(ctx context.Context, stage StageName, question string) (string, error) {
	resp, err := resilience.AttemptVal(ctx, d.policy("perplexity", stage), func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return d.Perplexity.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: question},
			},
		})
	})
	if err != nil {
		return "", err
	}
	d.costs().Record("perplexity", string(stage), d.costs().PerplexityQuery())
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
