package rankd

import (
	"context"

	"github.com/proplens/rankd/internal/domain/query"
	dorank "github.com/proplens/rankd/internal/domain/rank"
	listingrepo "github.com/proplens/rankd/internal/repository/listing"
	healthuc "github.com/proplens/rankd/internal/usecase/health"
)

// --- rankUseCase mock ---

type mockRankUC struct {
	searchFn func(ctx context.Context, q *query.Query, limit int) ([]dorank.Result, error)
}

func (m *mockRankUC) Search(ctx context.Context, q *query.Query, limit int) ([]dorank.Result, error) {
	return m.searchFn(ctx, q, limit)
}

// --- listingRepository mock ---

type mockListingRepo struct {
	upsertFn func(ctx context.Context, records []listingrepo.Record) error
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockListingRepo) Upsert(ctx context.Context, records []listingrepo.Record) error {
	return m.upsertFn(ctx, records)
}

func (m *mockListingRepo) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockImageEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockImageEmbedder) EmbedForImageSpace(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}
