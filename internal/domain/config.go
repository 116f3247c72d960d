package domain

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultTextVectorConfig returns the default text-space configuration,
// tuned for BAAI/bge-en-icl.
func DefaultTextVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "BAAI/bge-en-icl",
		Dimensions:     4096,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}

// DefaultImageVectorConfig returns the default cross-modal image-space
// configuration, tuned for CLIP ViT-L/14.
func DefaultImageVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "openai/clip-vit-large-patch14",
		Dimensions:     768,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}
