package rank

import "github.com/proplens/rankd/internal/domain/strategy"

// Result is a single fused ranking entry. Created by fusion, boosted by the
// tag boost pass, filtered by dedupe, then emitted.
type Result struct {
	docID       string
	fusedScore  float64
	breakdown   map[strategy.Strategy]float64
	matchedTags []string
	boost       float64
}

// New creates a fusion result with no boost applied.
func New(docID string, fusedScore float64, breakdown map[strategy.Strategy]float64) Result {
	return Result{docID: docID, fusedScore: fusedScore, breakdown: breakdown, boost: 1.0}
}

// DocID returns the document identifier.
func (r *Result) DocID() string { return r.docID }

// Score returns the fused (and possibly boosted) score.
func (r *Result) Score() float64 { return r.fusedScore }

// Breakdown returns per-strategy score contributions, for observability.
func (r *Result) Breakdown() map[strategy.Strategy]float64 { return r.breakdown }

// MatchedTags returns the must-have tags this document covers.
func (r *Result) MatchedTags() []string { return r.matchedTags }

// Boost returns the applied boost multiplier (>= 1.0 for the tiered scheme).
func (r *Result) Boost() float64 { return r.boost }

// ApplyBoost multiplies the score and records the matched tags for explainability.
func (r *Result) ApplyBoost(multiplier float64, matched []string) {
	r.boost = multiplier
	r.fusedScore *= multiplier
	r.matchedTags = matched
}
