package rank

import (
	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/strategy"
)

// KPlan holds the per-strategy RRF k-values chosen for a request.
type KPlan map[strategy.Strategy]int

// Intent-tuned k-values. The exact numbers are tunable; the contract is the
// direction: visual intents pull k_image below base and push k_lexical above
// it, amenity intents do the reverse.
const (
	kImageVisual   = 30
	kImageColor    = 25
	kImageDemoted  = 80
	kLexicalBoost  = 40
	kLexicalVisual = 90
	kLexicalColor  = 100
)

// PlanK maps the classified intent to per-strategy k-values.
func PlanK(in intent.Intent) KPlan {
	plan := KPlan{
		strategy.Lexical:     BaseK,
		strategy.TextVector:  BaseK,
		strategy.ImageVector: BaseK,
	}

	switch in {
	case intent.VisualStyle:
		plan[strategy.ImageVector] = kImageVisual
		plan[strategy.Lexical] = kLexicalVisual
	case intent.Color:
		plan[strategy.ImageVector] = kImageColor
		plan[strategy.Lexical] = kLexicalColor
	case intent.SpecificFeature:
		plan[strategy.Lexical] = kLexicalBoost
		plan[strategy.ImageVector] = kImageDemoted
	case intent.General:
		// base values
	}

	return plan
}
