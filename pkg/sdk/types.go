package rankd

// Intent constants for SearchRequest.Intent.
const (
	IntentGeneral    = "general"
	IntentVisual     = "visual"
	IntentStructural = "structural"
)

// Listing is one property document for ingestion. Vectors arrive
// precomputed from the caller's pipeline; the client never embeds
// listing content itself.
type Listing struct {
	ID          string
	Description string
	Tags        []string
	Address     string
	Style       string
	Price       float64
	Beds        float64
	Baths       float64
	Sqft        float64
	Metadata    map[string]string
	TextVec     []float32
	Images      []ListingImage
}

// ListingImage is one listing photo with its cross-modal embedding.
type ListingImage struct {
	ID        string
	Category  string
	Embedding []float32
}

// SearchRequest describes one ranked search.
type SearchRequest struct {
	// Query is the free-text search phrase. Required.
	Query string
	// MustHave lists feature tags every result should carry; matches
	// boost the fused score rather than hard-filter.
	MustHave []string
	// Style optionally names an architecture style.
	Style string
	// Filters holds numeric hard filters keyed by field name, with
	// "_min"/"_max" suffixes for range bounds (e.g. "price_max").
	Filters map[string]float64
	// Intent overrides automatic intent detection when non-empty.
	Intent string
	// Limit caps the number of returned results. Default: 10.
	Limit int
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	ID          string
	Score       float64
	Boost       float64
	MatchedTags []string
	// Breakdown maps strategy name to that strategy's fused
	// contribution before boosting.
	Breakdown map[string]float64
}
