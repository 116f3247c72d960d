package plan

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/query"
	"github.com/proplens/rankd/internal/domain/subquery"
	"github.com/proplens/rankd/internal/logger"
	"github.com/proplens/rankd/internal/metrics"
)

// Path records which decomposition path produced the plan.
type Path string

// Decomposition path constants.
const (
	LLMDecomposition Path = "llm"
	TemplateFallback Path = "template"
)

// Plan is the resolved set of subqueries for one request.
type Plan struct {
	Subqueries []subquery.Subquery
	Path       Path
}

// Planner turns a classified query into at most subquery.MaxPerQuery focused
// subqueries. The LLM path is primary; any decomposition or parse failure
// degrades to the deterministic templates, never to a request failure.
type Planner struct {
	decomposer Decomposer
	styles     StyleMatcher
}

// New creates a planner. decomposer may be nil, forcing the template path.
func New(decomposer Decomposer, styles StyleMatcher) *Planner {
	return &Planner{decomposer: decomposer, styles: styles}
}

// Decompose produces the subquery plan for a query. Input tags are already
// canonical and sorted, so the template path is deterministic per request.
func (p *Planner) Decompose(ctx context.Context, q *query.Query) Plan {
	tags := q.MustHave()
	log := logger.FromContext(ctx)

	if p.decomposer != nil && len(tags) > 0 {
		subs, err := p.decomposeLLM(ctx, q.Text(), tags)
		if err == nil {
			metrics.DecompositionTotal.WithLabelValues(string(LLMDecomposition)).Inc()
			return Plan{Subqueries: subs, Path: LLMDecomposition}
		}
		if errors.Is(err, domain.ErrDecompositionParse) {
			log.Warn("decomposition unparseable, using templates", zap.Error(err))
		} else {
			log.Warn("decomposition call failed, using templates", zap.Error(err))
		}
	}

	metrics.DecompositionTotal.WithLabelValues(string(TemplateFallback)).Inc()
	return Plan{Subqueries: p.fromTemplates(tags, q.Style()), Path: TemplateFallback}
}

func (p *Planner) decomposeLLM(ctx context.Context, text string, tags []string) ([]subquery.Subquery, error) {
	raw, err := p.decomposer.Decompose(ctx, text, tags)
	if err != nil {
		return nil, err
	}
	return ParseDecomposition(raw)
}
