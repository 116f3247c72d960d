package query

import (
	"fmt"
	"sort"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/tag"
)

// MaxQueryLength is the maximum allowed search query length.
const MaxQueryLength = 4096

// Query is a validated, classified search query. Immutable once built.
type Query struct {
	text        string
	mustHave    []string
	style       string
	hardFilters map[string]float64
	queryIntent intent.Intent
}

// New validates and normalizes a query. Must-have tags are canonicalized and
// sorted alphabetically; iteration order over an unordered set previously
// produced different subquery orders for identical requests.
func New(
	text string,
	mustHave []string,
	style string,
	hardFilters map[string]float64,
	in intent.Intent,
) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if in == "" {
		in = intent.General
	}
	if !in.IsValid() {
		return Query{}, fmt.Errorf("%w: invalid intent %q", domain.ErrInvalidQuery, in)
	}

	set := tag.NormalizeSet(mustHave)
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return Query{
		text:        text,
		mustHave:    tags,
		style:       tag.Normalize(style),
		hardFilters: hardFilters,
		queryIntent: in,
	}, nil
}

// Text returns the raw query text.
func (q *Query) Text() string { return q.text }

// MustHave returns the canonical feature tags in sorted order.
func (q *Query) MustHave() []string { return q.mustHave }

// MustHaveSet returns the must-have tags as a set.
func (q *Query) MustHaveSet() map[string]struct{} {
	set := make(map[string]struct{}, len(q.mustHave))
	for _, t := range q.mustHave {
		set[t] = struct{}{}
	}
	return set
}

// Style returns the requested architecture style tag, if any.
func (q *Query) Style() string { return q.style }

// HardFilters returns numeric constraints (price, beds). Passed through to
// retrieval untouched; the ranking core does not interpret them.
func (q *Query) HardFilters() map[string]float64 { return q.hardFilters }

// Intent returns the classified query intent.
func (q *Query) Intent() intent.Intent { return q.queryIntent }

// WithIntent returns a copy with the intent replaced, for use after classification.
func (q *Query) WithIntent(in intent.Intent) Query {
	cp := *q
	cp.queryIntent = in
	return cp
}
