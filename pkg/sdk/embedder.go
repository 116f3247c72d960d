package rankd

import "context"

// Embedder converts query text to a text-space vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageSpaceEmbedder converts query text to a cross-modal image-space
// embedding, so a phrase like "white painted house exterior" can be
// compared against listing photo vectors.
type ImageSpaceEmbedder interface {
	EmbedForImageSpace(ctx context.Context, text string) (EmbeddingResult, error)
}

// QueryDecomposer asks an LLM to split a multi-feature query into focused
// subqueries, returning the raw completion text. Parse failures degrade to
// the deterministic template plan, never to a request failure.
type QueryDecomposer interface {
	Decompose(ctx context.Context, queryText string, sortedTags []string) (string, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
