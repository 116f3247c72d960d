package subquery

import "fmt"

// Aggregation is the strategy for combining multiple image similarities
// within one subquery.
type Aggregation string

// Aggregation constants.
const (
	Max Aggregation = "max"
	Sum Aggregation = "sum"
)

// IsValid checks if the aggregation is one of the supported values.
func (a Aggregation) IsValid() bool { return a == Max || a == Sum }

// MaxPerQuery caps how many subqueries one query decomposes into.
const MaxPerQuery = 4

// Subquery is a feature-scoped reformulation of part of the original query.
// Embeddings are attached after the embed fan-out completes.
type Subquery struct {
	featureTag  string
	text        string
	weight      float64
	aggregation Aggregation

	textEmbedding  []float32
	imageEmbedding []float32
}

// New creates a subquery. Weight defaults to 1.0, aggregation to max.
func New(featureTag, text string, weight float64, agg Aggregation) (Subquery, error) {
	if featureTag == "" {
		return Subquery{}, fmt.Errorf("feature tag is required")
	}
	if text == "" {
		return Subquery{}, fmt.Errorf("subquery text is required")
	}
	if weight <= 0 {
		weight = 1.0
	}
	if agg == "" {
		agg = Max
	}
	if !agg.IsValid() {
		return Subquery{}, fmt.Errorf("invalid aggregation %q", agg)
	}
	return Subquery{featureTag: featureTag, text: text, weight: weight, aggregation: agg}, nil
}

// FeatureTag returns the canonical feature this subquery targets.
func (s *Subquery) FeatureTag() string { return s.featureTag }

// Text returns the contextualized retrieval phrase.
func (s *Subquery) Text() string { return s.text }

// Weight returns the fusion weight for this feature.
func (s *Subquery) Weight() float64 { return s.weight }

// Aggregation returns the image similarity aggregation strategy.
func (s *Subquery) Aggregation() Aggregation { return s.aggregation }

// TextEmbedding returns the text-space vector, nil before embedding.
func (s *Subquery) TextEmbedding() []float32 { return s.textEmbedding }

// ImageEmbedding returns the cross-modal image-space vector, nil before embedding.
func (s *Subquery) ImageEmbedding() []float32 { return s.imageEmbedding }

// WithEmbeddings returns a copy with both vectors attached.
func (s *Subquery) WithEmbeddings(text, image []float32) Subquery {
	cp := *s
	cp.textEmbedding = text
	cp.imageEmbedding = image
	return cp
}
