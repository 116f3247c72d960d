package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/proplens/rankd/internal/db"
	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/strategy"
)

// store is the consumer interface for listing storage and search (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements the ranking core's Retriever and PropertyReader over the
// listing FT index.
type Repo struct {
	store store
	hnsw  HNSWConfig
}

// New creates a listing repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// WithHNSW overrides the HNSW build parameters used by EnsureIndex.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the listing FT index when absent. Safe to call on
// every boot.
func (r *Repo) EnsureIndex(ctx context.Context, textDim, imageDim int) error {
	exists, err := r.store.IndexExists(ctx, IndexName())
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := IndexDefinition(textDim, imageDim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert stores listings in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.JSONSetItem, 0, len(records))
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("listing %d: id is required", i)
		}
		data, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("marshal listing %s: %w", records[i].ID, err)
		}
		items = append(items, db.JSONSetItem{Key: docKey(records[i].ID), Path: "$", Data: data})
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store listings: %w", err)
	}
	return nil
}

// Count returns how many listings the index currently covers.
func (r *Repo) Count(ctx context.Context) (int, error) {
	return r.store.SearchCount(ctx, IndexName(), "*")
}

// SearchLexical runs a BM25 keyword search over listing descriptions.
func (r *Repo) SearchLexical(
	ctx context.Context, text string, filters map[string]float64, topN int,
) ([]strategy.Hit, error) {
	q := &db.TextQuery{
		IndexName: IndexName(),
		Field:     FieldDescription,
		Query:     text,
		Filters:   toNumericFilters(filters),
		TopK:      topN,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search lexical: %w", err)
	}
	return toHits(sr, strategy.Lexical), nil
}

// SearchTextVector runs a KNN search in the text embedding space.
func (r *Repo) SearchTextVector(
	ctx context.Context, vector []float32, filters map[string]float64, topN int,
) ([]strategy.Hit, error) {
	return r.searchKNN(ctx, FieldTextVec, strategy.TextVector, vector, filters, topN)
}

// SearchImageVector runs a KNN search in the cross-modal image space; every
// photo of a listing is a candidate, the listing surfaces once with its best
// photo's distance.
func (r *Repo) SearchImageVector(
	ctx context.Context, vector []float32, filters map[string]float64, topN int,
) ([]strategy.Hit, error) {
	return r.searchKNN(ctx, FieldImageVec, strategy.ImageVector, vector, filters, topN)
}

func (r *Repo) searchKNN(
	ctx context.Context, field string, strat strategy.Strategy,
	vector []float32, filters map[string]float64, topN int,
) ([]strategy.Hit, error) {
	q := &db.KNNQuery{
		IndexName: IndexName(),
		Field:     field,
		Vector:    vector,
		K:         topN,
		Filters:   toNumericFilters(filters),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", strat, err)
	}
	return toHits(sr, strat), nil
}

// GetMulti fetches listing documents by id. Missing ids are absent from the
// returned map, never an error.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]property.Property, error) {
	if len(ids) == 0 {
		return map[string]property.Property{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}

	raw, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	out := make(map[string]property.Property, len(ids))
	for i, data := range raw {
		if data == nil {
			continue
		}
		rec, err := parseRecord(ids[i], data)
		if err != nil {
			continue
		}
		doc := rec.toProperty()
		out[ids[i]] = doc
	}
	return out, nil
}

// toHits converts a raw search result into ranked strategy hits. The
// backend's order is authoritative: ranks are assigned by position.
func toHits(sr *db.SearchResult, strat strategy.Strategy) []strategy.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	hits := make([]strategy.Hit, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, keyPrefix())
		hits = append(hits, strategy.NewHit(id, i+1, entry.Score, strat))
	}
	return hits
}

// toNumericFilters translates hard filters into index pre-filters. A
// "<field>_min" / "<field>_max" key bounds the field; a bare key pins it
// exactly. Output order is sorted by field for deterministic queries.
func toNumericFilters(filters map[string]float64) []db.NumericFilter {
	if len(filters) == 0 {
		return nil
	}

	byField := make(map[string]*db.NumericFilter)
	get := func(field string) *db.NumericFilter {
		if f, ok := byField[field]; ok {
			return f
		}
		f := &db.NumericFilter{Field: field}
		byField[field] = f
		return f
	}

	for key, val := range filters {
		v := val
		switch {
		case strings.HasSuffix(key, "_min"):
			get(strings.TrimSuffix(key, "_min")).Min = &v
		case strings.HasSuffix(key, "_max"):
			get(strings.TrimSuffix(key, "_max")).Max = &v
		default:
			f := get(key)
			f.Min = &v
			f.Max = &v
		}
	}

	fields := make([]string, 0, len(byField))
	for field := range byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]db.NumericFilter, 0, len(fields))
	for _, field := range fields {
		out = append(out, *byField[field])
	}
	return out
}
