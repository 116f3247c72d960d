package plan

import "context"

// Decomposer asks an LLM to split a multi-feature query into focused
// subqueries. Returns the raw completion text; parsing is the planner's job
// because the model sometimes wraps the JSON payload in prose.
type Decomposer interface {
	Decompose(ctx context.Context, queryText string, sortedTags []string) (string, error)
}

// StyleMatcher reports whether a canonical tag names an architecture style.
type StyleMatcher interface {
	IsStyle(tag string) bool
}
