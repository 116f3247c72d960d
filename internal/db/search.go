package db

// NumericFilter is a numeric range pre-filter on an indexed field. A nil
// bound is unbounded.
type NumericFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

// KNNQuery is the input for vector similarity search. Field selects which
// vector field of the index the KNN runs against.
type KNNQuery struct {
	IndexName    string
	Field        string
	Vector       []float32
	K            int
	Filters      []NumericFilter
	ReturnFields []string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Filters      []NumericFilter
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
