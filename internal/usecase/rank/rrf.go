package rank

import (
	"sort"

	"github.com/proplens/rankd/internal/domain/rank"
	"github.com/proplens/rankd/internal/domain/strategy"
)

// BaseK is the Reciprocal Rank Fusion constant (standard value from Cormack
// et al. 2009). The weight planner moves individual strategies off this base.
const BaseK = 60

// List is one ranked list entering fusion: the hits of one strategy for one
// subquery, with its RRF parameters. Lower K gives the list's top ranks more
// influence; Weight scales the whole contribution.
type List struct {
	Strategy strategy.Strategy
	K        int
	Weight   float64
	Hits     []strategy.Hit
}

// Fuse merges ranked lists via weighted Reciprocal Rank Fusion:
//
//	score(d) = sum over lists of weight * 1/(k + rank(d))
//
// A document missing from a list contributes nothing from it. The returned
// slice is sorted by fused score descending with docID as tie-break, so the
// ordering is deterministic for identical inputs. Per-strategy contributions
// are kept on each result for observability; they do not affect the ordering.
func Fuse(lists []List) []rank.Result {
	type scored struct {
		score     float64
		breakdown map[strategy.Strategy]float64
	}

	merged := make(map[string]*scored)

	for _, l := range lists {
		k := l.K
		if k <= 0 {
			k = BaseK
		}
		// Weight is taken as supplied: the confidence analyzer silences a
		// strategy by handing it weight 0, which must not be mistaken for
		// "unset" and restored to unit strength.
		w := l.Weight
		for i := range l.Hits {
			h := &l.Hits[i]
			contribution := w / float64(k+h.Rank())
			s, ok := merged[h.DocID()]
			if !ok {
				s = &scored{breakdown: make(map[strategy.Strategy]float64, 3)}
				merged[h.DocID()] = s
			}
			s.score += contribution
			s.breakdown[l.Strategy] += contribution
		}
	}

	results := make([]rank.Result, 0, len(merged))
	for id, s := range merged {
		results = append(results, rank.New(id, s.score, s.breakdown))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].DocID() < results[j].DocID()
	})

	return results
}
