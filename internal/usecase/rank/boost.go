package rank

import (
	"sort"

	dorank "github.com/proplens/rankd/internal/domain/rank"
)

// BoostScheme selects how tag coverage multiplies into the fused score.
type BoostScheme string

// Boost scheme constants. Tiered is the default; incremental is the
// alternative configuration carried for A/B comparison.
const (
	BoostTiered      BoostScheme = "tiered"
	BoostIncremental BoostScheme = "incremental"
)

// Tiered boost parameters.
const (
	fullCoverBoost    = 2.0
	partialCoverBoost = 1.5
	partialCoverRatio = 0.75
	incrementPerTag   = 0.15
)

// ApplyBoost rewards a fused result whose document tags cover the must-have
// set. Runs strictly after fusion: the boost is a post-hoc re-ranking signal,
// not part of rank computation. Matched tags are recorded on the result for
// explainability.
func ApplyBoost(res *dorank.Result, docTags map[string]struct{}, mustHave []string, scheme BoostScheme) {
	matched := make([]string, 0, len(mustHave))
	for _, t := range mustHave {
		if _, ok := docTags[t]; ok {
			matched = append(matched, t)
		}
	}
	sort.Strings(matched)

	multiplier := 1.0
	switch scheme {
	case BoostIncremental:
		multiplier = 1.0 + incrementPerTag*float64(len(matched))
	default:
		if len(mustHave) > 0 {
			switch {
			case len(matched) == len(mustHave):
				multiplier = fullCoverBoost
			case float64(len(matched)) >= partialCoverRatio*float64(len(mustHave)):
				multiplier = partialCoverBoost
			}
		}
	}

	res.ApplyBoost(multiplier, matched)
}
