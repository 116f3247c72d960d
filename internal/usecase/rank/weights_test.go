package rank

import (
	"testing"

	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/strategy"
)

// Lower k means more influence. Visual intents must pull the image strategy
// below base and push lexical above it; amenity intents the reverse.
func TestPlanK_Directions(t *testing.T) {
	base := PlanK(intent.General)
	for _, s := range strategy.All() {
		if base[s] != BaseK {
			t.Errorf("general intent should use base k for %s, got %d", s, base[s])
		}
	}

	for _, in := range []intent.Intent{intent.VisualStyle, intent.Color} {
		plan := PlanK(in)
		if plan[strategy.ImageVector] >= BaseK {
			t.Errorf("%s: k_image %d should be below base", in, plan[strategy.ImageVector])
		}
		if plan[strategy.Lexical] <= BaseK {
			t.Errorf("%s: k_lexical %d should be above base", in, plan[strategy.Lexical])
		}
	}

	feature := PlanK(intent.SpecificFeature)
	if feature[strategy.Lexical] >= BaseK {
		t.Errorf("specific_feature: k_lexical %d should be below base", feature[strategy.Lexical])
	}
	if feature[strategy.ImageVector] <= BaseK {
		t.Errorf("specific_feature: k_image %d should be above base", feature[strategy.ImageVector])
	}
}
