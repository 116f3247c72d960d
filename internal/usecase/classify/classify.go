package classify

import (
	"strings"

	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/query"
	"github.com/proplens/rankd/internal/domain/tag"
)

// Label marks a feature as confirmable primarily by photos or by listing text.
type Label string

// Feature dominance labels.
const (
	VisualDominant Label = "visual_dominant"
	TextDominant   Label = "text_dominant"
)

// Tables is the immutable classification configuration: which tag vocabulary
// counts as visual evidence. Passed in at construction so tests can override it.
type Tables struct {
	Colors    []string
	Materials []string
	Styles    []string
}

// DefaultTables returns the built-in feature vocabulary.
func DefaultTables() Tables {
	return Tables{
		Colors: []string{
			"white", "black", "blue", "red", "green", "yellow",
			"gray", "grey", "brown", "beige", "tan", "cream", "brick",
		},
		Materials: []string{
			"granite", "marble", "quartz", "hardwood", "oak", "bamboo",
			"tile", "concrete", "stone", "stucco", "cedar", "vinyl",
		},
		Styles: []string{
			"victorian", "craftsman", "colonial", "tudor", "ranch",
			"modern", "midcentury", "mediterranean", "farmhouse",
			"cape_cod", "second_empire", "contemporary",
		},
	}
}

// Classification is the pure output of feature classification.
type Classification struct {
	Labels map[string]Label
	Intent intent.Intent
}

// Classifier labels requested features as visual- or text-dominant and
// derives the overall query intent.
type Classifier struct {
	colors    map[string]struct{}
	materials map[string]struct{}
	styles    map[string]struct{}
}

// New creates a classifier from the given tables.
func New(tables Tables) *Classifier {
	return &Classifier{
		colors:    tag.NormalizeSet(tables.Colors),
		materials: tag.NormalizeSet(tables.Materials),
		styles:    tag.NormalizeSet(tables.Styles),
	}
}

// Classify labels each must-have tag and derives intent by priority:
// any color tag wins, then any style tag, then any other visual tag;
// otherwise specific_feature when tags exist, general for a bare query.
func (c *Classifier) Classify(q *query.Query) Classification {
	labels := make(map[string]Label, len(q.MustHave()))

	var hasColor, hasStyle, hasVisual bool
	for _, t := range q.MustHave() {
		switch {
		case c.isColorTag(t):
			labels[t] = VisualDominant
			hasColor = true
		case c.isStyleTag(t):
			labels[t] = VisualDominant
			hasStyle = true
		case c.isMaterialTag(t):
			labels[t] = VisualDominant
			hasVisual = true
		default:
			labels[t] = TextDominant
		}
	}
	if q.Style() != "" {
		hasStyle = true
	}

	var in intent.Intent
	switch {
	case hasColor:
		in = intent.Color
	case hasStyle, hasVisual:
		in = intent.VisualStyle
	case len(labels) > 0:
		in = intent.SpecificFeature
	default:
		in = intent.General
	}

	return Classification{Labels: labels, Intent: in}
}

// IsStyle reports whether the tag names an architecture style.
func (c *Classifier) IsStyle(t string) bool {
	return c.isStyleTag(tag.Normalize(t))
}

// isColorTag matches tags like "blue_exterior" or a bare color word.
func (c *Classifier) isColorTag(t string) bool {
	for part := range strings.SplitSeq(t, "_") {
		if _, ok := c.colors[part]; ok {
			return true
		}
	}
	return false
}

// isStyleTag matches when any known style is a substring of the tag, so
// "victorian_second_empire" matches both "victorian" and "second_empire".
func (c *Classifier) isStyleTag(t string) bool {
	for s := range c.styles {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func (c *Classifier) isMaterialTag(t string) bool {
	for part := range strings.SplitSeq(t, "_") {
		if _, ok := c.materials[part]; ok {
			return true
		}
	}
	return false
}
