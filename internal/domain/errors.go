package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty query or one with no extractable constraints.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrTotalRetrievalFailure signals that even the baseline query failed on every strategy.
	ErrTotalRetrievalFailure = errors.New("total retrieval failure")
	// ErrDecompositionParse signals malformed LLM decomposition output.
	ErrDecompositionParse = errors.New("decomposition parse failed")
	// ErrTransientRetrieval signals a single failed strategy call, degraded to an empty list.
	ErrTransientRetrieval = errors.New("transient retrieval error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidListing signals a malformed listing ingestion batch.
	ErrInvalidListing = errors.New("invalid listing")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)

// StrategyCallError wraps ErrTransientRetrieval with the failed (strategy, subquery) pair.
type StrategyCallError struct {
	Strategy string
	Feature  string
	Err      error
}

func (e *StrategyCallError) Error() string {
	return fmt.Sprintf("%s: strategy %s, feature %s: %s",
		ErrTransientRetrieval.Error(), e.Strategy, e.Feature, e.Err.Error())
}

func (e *StrategyCallError) Unwrap() error { return ErrTransientRetrieval }

// NewStrategyCallError creates a transient retrieval error for one strategy call.
func NewStrategyCallError(strategy, feature string, err error) error {
	return &StrategyCallError{Strategy: strategy, Feature: feature, Err: err}
}
