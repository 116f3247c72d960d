package intent

// Intent is the overall query intent derived from the requested features.
type Intent string

// Query intent constants.
const (
	// VisualStyle queries ask about look and architecture ("mid-century modern house").
	VisualStyle Intent = "visual_style"
	// Color queries name an exterior or interior color.
	Color           Intent = "color"
	SpecificFeature Intent = "specific_feature"
	General         Intent = "general"
)

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return i == VisualStyle || i == Color || i == SpecificFeature || i == General
}
