package strategy

// Strategy is one of the independent retrieval signals feeding fusion.
type Strategy string

// Retrieval strategy constants.
const (
	// Lexical is keyword/BM25 matching over tags and descriptions.
	Lexical Strategy = "lexical"
	// TextVector is KNN over text embeddings.
	TextVector Strategy = "text_vector"
	// ImageVector is KNN over photo embeddings in the cross-modal space.
	ImageVector Strategy = "image_vector"
)

// All lists the strategies in fusion order.
func All() []Strategy {
	return []Strategy{Lexical, TextVector, ImageVector}
}

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == Lexical || s == TextVector || s == ImageVector
}

// Hit is a single entry of one strategy's ranked list. Rank is 1-indexed and
// authoritative: fusion never re-sorts within a list. NativeScore is on the
// producing strategy's own scale and only used for confidence analysis.
type Hit struct {
	docID       string
	rank        int
	nativeScore float64
	strategy    Strategy
}

// NewHit creates a strategy hit.
func NewHit(docID string, rank int, nativeScore float64, s Strategy) Hit {
	return Hit{docID: docID, rank: rank, nativeScore: nativeScore, strategy: s}
}

// DocID returns the document identifier.
func (h *Hit) DocID() string { return h.docID }

// Rank returns the 1-indexed position within the strategy's list.
func (h *Hit) Rank() int { return h.rank }

// NativeScore returns the strategy-specific score.
func (h *Hit) NativeScore() float64 { return h.nativeScore }

// Strategy returns the producing strategy.
func (h *Hit) Strategy() Strategy { return h.strategy }
