package rank

import (
	"github.com/proplens/rankd/internal/domain/strategy"
)

// Confidence analysis thresholds and term weights.
const (
	// overlapTopN bounds how many hits per strategy enter overlap analysis.
	overlapTopN = 20
	// diversityThreshold triggers confidence weighting when the strategies'
	// top lists share too little.
	diversityThreshold = 0.7

	separationTermWeight = 0.4
	magnitudeTermWeight  = 0.3
	coverageTermWeight   = 0.3
)

// WeightingMode records which weighting path a request resolved to.
type WeightingMode string

// Weighting mode constants.
const (
	StandardWeighting   WeightingMode = "standard"
	ConfidenceWeighting WeightingMode = "confidence"
)

// Decision is the resolved weighting choice for a request.
type Decision struct {
	Mode         WeightingMode
	AvgDiversity float64
	// Weights is a probability vector over strategies, only meaningful in
	// confidence mode.
	Weights map[strategy.Strategy]float64
}

// TagLookup resolves a document's canonical tag set for coverage scoring.
// Unknown documents return nil.
type TagLookup func(docID string) map[string]struct{}

// Analyze inspects one subquery's three candidate lists for rank agreement.
// When the three-way intersection is empty or average diversity exceeds the
// threshold, the intent-derived k-values are judged unreliable and the
// decision switches to confidence-derived weights.
func Analyze(lists map[strategy.Strategy][]strategy.Hit, mustHave []string, tagsOf TagLookup) Decision {
	sets := make(map[strategy.Strategy]map[string]struct{}, len(lists))
	for s, hits := range lists {
		set := make(map[string]struct{})
		for i := range hits {
			if len(set) == overlapTopN {
				break
			}
			set[hits[i].DocID()] = struct{}{}
		}
		sets[s] = set
	}

	all := strategy.All()

	var pairSum float64
	var pairs int
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			pairSum += overlapRatio(sets[all[i]], sets[all[j]])
			pairs++
		}
	}
	avgDiversity := 1.0
	if pairs > 0 {
		avgDiversity = 1.0 - pairSum/float64(pairs)
	}

	threeWay := intersectAll(sets[all[0]], sets[all[1]], sets[all[2]])

	if len(threeWay) > 0 && avgDiversity <= diversityThreshold {
		return Decision{Mode: StandardWeighting, AvgDiversity: avgDiversity}
	}

	return Decision{
		Mode:         ConfidenceWeighting,
		AvgDiversity: avgDiversity,
		Weights:      confidenceWeights(lists, mustHave, tagsOf),
	}
}

// confidenceWeights derives a probability vector over strategies from
// observed result quality: score separation at the top, bounded score
// magnitude, and must-have tag coverage of the top hit. Degenerate inputs
// (empty lists, zero scores) fall back to uniform weights.
func confidenceWeights(
	lists map[strategy.Strategy][]strategy.Hit, mustHave []string, tagsOf TagLookup,
) map[strategy.Strategy]float64 {
	weights := make(map[strategy.Strategy]float64, 3)

	var total float64
	for _, s := range strategy.All() {
		c := strategyConfidence(lists[s], mustHave, tagsOf)
		weights[s] = c
		total += c
	}

	if total <= 0 {
		uniform := 1.0 / float64(len(weights))
		for s := range weights {
			weights[s] = uniform
		}
		return weights
	}

	for s := range weights {
		weights[s] /= total
	}
	return weights
}

func strategyConfidence(hits []strategy.Hit, mustHave []string, tagsOf TagLookup) float64 {
	if len(hits) == 0 {
		return 0
	}

	top1 := hits[0].NativeScore()

	var separation float64
	if len(hits) >= 3 && top1 > 0 {
		separation = (top1 - hits[2].NativeScore()) / top1
		if separation < 0 {
			separation = 0
		}
	}

	var magnitude float64
	if top1 > 0 {
		magnitude = top1 / (top1 + 1)
	}

	var coverage float64
	if len(mustHave) > 0 && tagsOf != nil {
		docTags := tagsOf(hits[0].DocID())
		var matched int
		for _, t := range mustHave {
			if _, ok := docTags[t]; ok {
				matched++
			}
		}
		coverage = float64(matched) / float64(len(mustHave))
	}

	return separationTermWeight*separation + magnitudeTermWeight*magnitude + coverageTermWeight*coverage
}

func overlapRatio(a, b map[string]struct{}) float64 {
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	if smaller == 0 {
		return 0
	}
	var common int
	for id := range a {
		if _, ok := b[id]; ok {
			common++
		}
	}
	return float64(common) / float64(smaller)
}

func intersectAll(a, b, c map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range a {
		if _, ok := b[id]; !ok {
			continue
		}
		if _, ok := c[id]; !ok {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}
