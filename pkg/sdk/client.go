package rankd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/proplens/rankd/internal/db"
	dbRedis "github.com/proplens/rankd/internal/db/redis"
	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/query"
	dorank "github.com/proplens/rankd/internal/domain/rank"
	listingrepo "github.com/proplens/rankd/internal/repository/listing"
	"github.com/proplens/rankd/internal/usecase/classify"
	healthuc "github.com/proplens/rankd/internal/usecase/health"
	"github.com/proplens/rankd/internal/usecase/plan"
	rankuc "github.com/proplens/rankd/internal/usecase/rank"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultSearchLimit      = 10
	maxUpsertBatch          = 100
)

// Internal interfaces for test substitution.
type rankUseCase interface {
	Search(ctx context.Context, q *query.Query, limit int) ([]dorank.Result, error)
}

type listingRepository interface {
	Upsert(ctx context.Context, records []listingrepo.Record) error
	Count(ctx context.Context) (int, error)
}

// Client is the rankd embedded client entry point.
type Client struct {
	store     db.Store
	rankSvc   rankUseCase
	listings  listingRepository
	healthSvc healthUseCase
	obs       *observer
}

// New creates a rankd Client, connects to the database and ensures the
// search index exists. The provided context bounds the initial readiness
// check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		textDimensions:  domain.DefaultTextVectorConfig().Dimensions,
		imageDimensions: domain.DefaultImageVectorConfig().Dimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("rankd: database address required (use WithRedis)")
	}
	if cfg.boostScheme != "" &&
		cfg.boostScheme != string(rankuc.BoostTiered) &&
		cfg.boostScheme != string(rankuc.BoostIncremental) {
		return nil, fmt.Errorf("rankd: unknown boost scheme %q", cfg.boostScheme)
	}
	if cfg.keyPrefix != "" {
		domain.KeyPrefix = cfg.keyPrefix
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("rankd: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("rankd: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(ctx, store, cfg, obs)
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	listings := listingrepo.New(store)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		listings = listings.WithHNSW(listingrepo.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	if err := listings.EnsureIndex(ctx, cfg.textDimensions, cfg.imageDimensions); err != nil {
		store.Close()
		return nil, fmt.Errorf("rankd: ensure index: %w", err)
	}

	var textEmb domain.Embedder = &noopTextEmbedder{}
	if cfg.textEmbedder != nil {
		textEmb = &embedderAdapter{inner: cfg.textEmbedder}
	}
	var imageEmb domain.ImageSpaceEmbedder = &noopImageEmbedder{}
	if cfg.imageEmbedder != nil {
		imageEmb = &imageEmbedderAdapter{inner: cfg.imageEmbedder}
	}

	classifier := classify.New(classify.DefaultTables())

	// Assign only when configured: a typed nil inside the interface would
	// defeat the planner's nil check and panic on the LLM path.
	var dec plan.Decomposer
	if cfg.decomposer != nil {
		dec = cfg.decomposer
	}
	planner := plan.New(dec, classifier)

	rankSvc := rankuc.New(listings, listings, textEmb, imageEmb, classifier, planner)
	if cfg.topN > 0 {
		rankSvc = rankSvc.WithTopN(cfg.topN)
	}
	if cfg.callTimeout > 0 {
		rankSvc = rankSvc.WithCallTimeout(cfg.callTimeout)
	}
	if cfg.boostScheme != "" {
		rankSvc = rankSvc.WithBoostScheme(rankuc.BoostScheme(cfg.boostScheme))
	}

	healthSvc := healthuc.New(store, nil)

	return &Client{
		store:     store,
		rankSvc:   rankSvc,
		listings:  listings,
		healthSvc: healthSvc,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping verifies database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Search runs the full fusion pipeline for one query and returns ranked
// listings, best first.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	start := time.Now()

	q, err := query.New(req.Query, req.MustHave, req.Style, req.Filters, intent.Intent(req.Intent))
	if err != nil {
		c.obs.observe("search", start, err)
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ranked, err := c.rankSvc.Search(ctx, &q, limit)
	c.obs.observe("search", start, err)
	if err != nil {
		return nil, err
	}
	return toSearchResults(ranked), nil
}

// UpsertListings stores a batch of listings. Batches are capped at 100
// items and every listing needs a non-empty id.
func (c *Client) UpsertListings(ctx context.Context, listings []Listing) error {
	start := time.Now()
	err := c.upsertListings(ctx, listings)
	c.obs.observe("upsert_listings", start, err)
	return err
}

func (c *Client) upsertListings(ctx context.Context, listings []Listing) error {
	if len(listings) == 0 {
		return fmt.Errorf("%w: empty listings batch", domain.ErrInvalidListing)
	}
	if len(listings) > maxUpsertBatch {
		return fmt.Errorf("%w: batch exceeds %d listings", domain.ErrInvalidListing, maxUpsertBatch)
	}
	records := make([]listingrepo.Record, 0, len(listings))
	for i, l := range listings {
		if l.ID == "" {
			return fmt.Errorf("%w: listing %d has empty id", domain.ErrInvalidListing, i)
		}
		records = append(records, toRecord(l))
	}
	return c.listings.Upsert(ctx, records)
}

// CountListings returns the number of stored listings.
func (c *Client) CountListings(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := c.listings.Count(ctx)
	c.obs.observe("count_listings", start, err)
	return n, err
}

func toRecord(l Listing) listingrepo.Record {
	images := make([]listingrepo.ImageRecord, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, listingrepo.ImageRecord{
			ID:        img.ID,
			Category:  img.Category,
			Embedding: img.Embedding,
		})
	}
	return listingrepo.Record{
		ID:          l.ID,
		Description: l.Description,
		Tags:        l.Tags,
		Address:     l.Address,
		Style:       l.Style,
		Price:       l.Price,
		Beds:        l.Beds,
		Baths:       l.Baths,
		Sqft:        l.Sqft,
		Metadata:    l.Metadata,
		TextVec:     l.TextVec,
		Images:      images,
	}
}

func toSearchResults(ranked []dorank.Result) []SearchResult {
	out := make([]SearchResult, 0, len(ranked))
	for i := range ranked {
		r := &ranked[i]
		breakdown := make(map[string]float64, len(r.Breakdown()))
		for k, v := range r.Breakdown() {
			breakdown[string(k)] = v
		}
		out = append(out, SearchResult{
			ID:          r.DocID(),
			Score:       r.Score(),
			Boost:       r.Boost(),
			MatchedTags: r.MatchedTags(),
			Breakdown:   breakdown,
		})
	}
	return out
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// imageEmbedderAdapter wraps the public ImageSpaceEmbedder for the domain contract.
type imageEmbedderAdapter struct {
	inner ImageSpaceEmbedder
}

func (a *imageEmbedderAdapter) EmbedForImageSpace(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedForImageSpace(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed for image space: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopTextEmbedder fails every call; the ranking service degrades the
// affected vector subqueries and keeps lexical retrieval working.
type noopTextEmbedder struct{}

func (noopTextEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"rankd: text embedder not configured (use WithEmbedders)",
	)
}

type noopImageEmbedder struct{}

func (noopImageEmbedder) EmbedForImageSpace(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"rankd: image-space embedder not configured (use WithEmbedders)",
	)
}
