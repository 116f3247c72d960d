package listing

import (
	"github.com/proplens/rankd/internal/db"
	"github.com/proplens/rankd/internal/domain"
)

// Searchable field aliases of the listing index. The fusion core addresses
// strategies through these names.
const (
	FieldDescription = "description"
	FieldTextVec     = "text_vec"
	FieldImageVec    = "image_vec"
)

// Default HNSW build parameters for both vector fields.
const (
	defaultHNSWM           = 16
	defaultHNSWEFConstruct = 200
)

// HNSWConfig overrides the HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// IndexName returns the FT index name for listings.
func IndexName() string {
	return domain.KeyPrefix + "listing:idx"
}

// keyPrefix returns the key namespace all listing documents live under.
func keyPrefix() string {
	return domain.KeyPrefix + "listing:"
}

// docKey returns the storage key of one listing.
func docKey(id string) string {
	return keyPrefix() + id
}

// IndexDefinition builds the FT.CREATE schema for the listing index: BM25
// text over descriptions, tag and numeric pre-filters, and two cosine HNSW
// vector fields: the text space and the cross-modal image space, the latter
// multi-valued over every photo of a listing.
func IndexDefinition(textDim, imageDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	if hnsw.M <= 0 {
		hnsw.M = defaultHNSWM
	}
	if hnsw.EFConstruct <= 0 {
		hnsw.EFConstruct = defaultHNSWEFConstruct
	}

	return db.NewIndex(IndexName()).
		OnJSON().
		Prefix(keyPrefix()).
		Text("$.description", FieldDescription).
		Tag("$.tags[*]", "tags", "").
		Numeric("$.price", "price").
		Numeric("$.beds", "beds").
		Numeric("$.baths", "baths").
		Numeric("$.sqft", "sqft").
		VectorHNSW("$.text_vec", FieldTextVec, textDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		VectorHNSW("$.images[*].embedding", FieldImageVec, imageDim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}
