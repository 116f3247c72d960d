package rankd

import "github.com/proplens/rankd/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidListing         = domain.ErrInvalidListing
	ErrNotFound               = domain.ErrNotFound
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrTotalRetrievalFailure  = domain.ErrTotalRetrievalFailure
)
