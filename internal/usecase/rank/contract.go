package rank

import (
	"context"

	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/query"
	"github.com/proplens/rankd/internal/domain/strategy"
	"github.com/proplens/rankd/internal/usecase/classify"
	"github.com/proplens/rankd/internal/usecase/plan"
)

// Retriever executes one strategy's ranked query against the search backend.
// Returned hits are ordered by native rank; that order is authoritative and
// is never re-sorted before fusion. An empty list is a valid answer.
type Retriever interface {
	SearchLexical(
		ctx context.Context, text string, filters map[string]float64, topN int,
	) ([]strategy.Hit, error)

	SearchTextVector(
		ctx context.Context, vector []float32, filters map[string]float64, topN int,
	) ([]strategy.Hit, error)

	SearchImageVector(
		ctx context.Context, vector []float32, filters map[string]float64, topN int,
	) ([]strategy.Hit, error)
}

// PropertyReader fetches candidate documents for scoring (tags, photos,
// dedupe metadata). Missing ids are simply absent from the result map.
type PropertyReader interface {
	GetMulti(ctx context.Context, ids []string) (map[string]property.Property, error)
}

// Planner decomposes a classified query into subqueries.
type Planner interface {
	Decompose(ctx context.Context, q *query.Query) plan.Plan
}

// Classifier labels requested features and derives query intent.
type Classifier interface {
	Classify(q *query.Query) classify.Classification
}
