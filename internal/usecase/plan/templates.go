package plan

import (
	"strings"

	"github.com/proplens/rankd/internal/domain/subquery"
	"github.com/proplens/rankd/internal/domain/tag"
)

// Template weights. Exterior features get double weight: they are the primary
// visual identity of a listing and appear in the fewest photos.
const (
	exteriorColorWeight = 2.0
	styleWeight         = 1.5
	defaultWeight       = 1.0
)

// fromTemplates builds subqueries deterministically, one per sorted tag,
// without the LLM. Each tag category has a fixed contextualized phrasing that
// retrieves better than the bare tag words.
func (p *Planner) fromTemplates(sortedTags []string, style string) []subquery.Subquery {
	subs := make([]subquery.Subquery, 0, len(sortedTags))
	for _, t := range sortedTags {
		subs = append(subs, p.templateFor(t))
		if len(subs) == subquery.MaxPerQuery {
			break
		}
	}
	if style != "" && len(subs) < subquery.MaxPerQuery && !containsFeature(subs, style) {
		subs = append(subs, styleSubquery(style))
	}
	return subs
}

// templateFor picks the category template for one canonical tag.
func (p *Planner) templateFor(t string) subquery.Subquery {
	switch {
	case strings.HasSuffix(t, "_exterior"):
		color := tag.Words(strings.TrimSuffix(t, "_exterior"))
		return mustSubquery(t, color+" painted house exterior facade siding building", exteriorColorWeight)
	case strings.HasSuffix(t, "_countertops"), strings.HasSuffix(t, "_countertop"):
		material := tag.Words(trimSuffixes(t, "_countertops", "_countertop"))
		return mustSubquery(t, material+" stone countertops kitchen surfaces", defaultWeight)
	case strings.HasSuffix(t, "_floors"), strings.HasSuffix(t, "_flooring"):
		material := tag.Words(trimSuffixes(t, "_floors", "_flooring"))
		return mustSubquery(t, material+" flooring floors interior wood planks", defaultWeight)
	case p.styles.IsStyle(t):
		return styleSubquery(t)
	default:
		return mustSubquery(t, tag.Words(t), defaultWeight)
	}
}

func styleSubquery(t string) subquery.Subquery {
	return mustSubquery(t, tag.Words(t)+" architecture exterior design house style", styleWeight)
}

// mustSubquery builds a subquery from template inputs, which are valid by
// construction (non-empty tag and text).
func mustSubquery(featureTag, text string, weight float64) subquery.Subquery {
	sq, err := subquery.New(featureTag, text, weight, subquery.Max)
	if err != nil {
		panic("template subquery: " + err.Error())
	}
	return sq
}

func trimSuffixes(s string, suffixes ...string) string {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

func containsFeature(subs []subquery.Subquery, featureTag string) bool {
	for i := range subs {
		if subs[i].FeatureTag() == featureTag {
			return true
		}
	}
	return false
}
