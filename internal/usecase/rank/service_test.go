package rank

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/query"
	"github.com/proplens/rankd/internal/domain/strategy"
	"github.com/proplens/rankd/internal/domain/tag"
	"github.com/proplens/rankd/internal/usecase/classify"
	"github.com/proplens/rankd/internal/usecase/plan"
)

// --- Mocks ---

type mockRetriever struct {
	lexical   []strategy.Hit
	text      []strategy.Hit
	image     []strategy.Hit
	lexErr    error
	textErr   error
	imageErr  error
	lexCalls  int
	textCalls int
	imgCalls  int
}

func (m *mockRetriever) SearchLexical(
	_ context.Context, _ string, _ map[string]float64, _ int,
) ([]strategy.Hit, error) {
	m.lexCalls++
	return m.lexical, m.lexErr
}

func (m *mockRetriever) SearchTextVector(
	_ context.Context, _ []float32, _ map[string]float64, _ int,
) ([]strategy.Hit, error) {
	m.textCalls++
	return m.text, m.textErr
}

func (m *mockRetriever) SearchImageVector(
	_ context.Context, _ []float32, _ map[string]float64, _ int,
) ([]strategy.Hit, error) {
	m.imgCalls++
	return m.image, m.imageErr
}

type mockProps struct {
	docs map[string]property.Property
	err  error
}

func (m *mockProps) GetMulti(_ context.Context, ids []string) (map[string]property.Property, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]property.Property, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			out[id] = doc
		}
	}
	return out, nil
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

// mockImageEmbedder maps subquery text to a fixed image-space vector.
type mockImageEmbedder struct {
	byText   map[string][]float32
	fallback []float32
}

func (m *mockImageEmbedder) EmbedForImageSpace(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if v, ok := m.byText[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: m.fallback}, nil
}

func makeRankedHits(strat strategy.Strategy, ids ...string) []strategy.Hit {
	hits := make([]strategy.Hit, len(ids))
	for i, id := range ids {
		hits[i] = strategy.NewHit(id, i+1, 1.0-0.05*float64(i), strat)
	}
	return hits
}

func newTestService(ret Retriever, props PropertyReader, imgEmb domain.ImageSpaceEmbedder) *Service {
	classifier := classify.New(classify.DefaultTables())
	planner := plan.New(nil, classifier)
	if imgEmb == nil {
		imgEmb = &mockImageEmbedder{fallback: []float32{0, 0, 1}}
	}
	return New(ret, props, &mockEmbedder{vec: []float32{0.1, 0.2}}, imgEmb, classifier, planner)
}

func testQuery(t *testing.T, text string, tags []string) *query.Query {
	t.Helper()
	q, err := query.New(text, tags, "", nil, "")
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

// --- Tests ---

func TestSearch_RanksAndReturns(t *testing.T) {
	ret := &mockRetriever{
		lexical: makeRankedHits(strategy.Lexical, "a", "b"),
		text:    makeRankedHits(strategy.TextVector, "a", "c"),
		image:   makeRankedHits(strategy.ImageVector, "b", "a"),
	}
	props := &mockProps{docs: map[string]property.Property{}}
	svc := newTestService(ret, props, nil)

	results, err := svc.Search(context.Background(), testQuery(t, "home with pool", []string{"pool"}), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].DocID() != "a" {
		t.Errorf("expected doc 'a' (present in all lists) first, got %s", results[0].DocID())
	}
}

func TestSearch_Determinism(t *testing.T) {
	ret := &mockRetriever{
		lexical: makeRankedHits(strategy.Lexical, "a", "b", "c"),
		text:    makeRankedHits(strategy.TextVector, "c", "b", "a"),
		image:   makeRankedHits(strategy.ImageVector, "b", "a", "c"),
	}
	props := &mockProps{docs: map[string]property.Property{}}
	svc := newTestService(ret, props, nil)
	q := testQuery(t, "blue house with pool", []string{"blue_exterior", "pool"})

	first, err := svc.Search(context.Background(), q, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 5 {
		again, err := svc.Search(context.Background(), q, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(again) != len(first) {
			t.Fatal("result count changed between identical requests")
		}
		for i := range again {
			if again[i].DocID() != first[i].DocID() || again[i].Score() != first[i].Score() {
				t.Fatalf("ordering or scores changed between identical requests at %d: %s/%f vs %s/%f",
					i, first[i].DocID(), first[i].Score(), again[i].DocID(), again[i].Score())
			}
		}
	}
}

func TestSearch_PartialFailureDegrades(t *testing.T) {
	ret := &mockRetriever{
		lexical: makeRankedHits(strategy.Lexical, "a", "b"),
		textErr: errors.New("timeout"),
		image:   makeRankedHits(strategy.ImageVector, "a"),
	}
	props := &mockProps{docs: map[string]property.Property{}}
	svc := newTestService(ret, props, nil)

	results, err := svc.Search(context.Background(), testQuery(t, "home with pool", []string{"pool"}), 10)
	if err != nil {
		t.Fatalf("partial failure must not fail the request: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_TotalFailure(t *testing.T) {
	boom := errors.New("cluster down")
	ret := &mockRetriever{lexErr: boom, textErr: boom, imageErr: boom}
	props := &mockProps{docs: map[string]property.Property{}}
	svc := newTestService(ret, props, nil)

	_, err := svc.Search(context.Background(), testQuery(t, "home with pool", []string{"pool"}), 10)
	if !errors.Is(err, domain.ErrTotalRetrievalFailure) {
		t.Fatalf("expected ErrTotalRetrievalFailure, got %v", err)
	}
}

func TestSearch_EmptyWithoutErrorsIsEmptyResult(t *testing.T) {
	ret := &mockRetriever{}
	props := &mockProps{docs: map[string]property.Property{}}
	svc := newTestService(ret, props, nil)

	results, err := svc.Search(context.Background(), testQuery(t, "purple igloo", []string{"purple_exterior"}), 10)
	if err != nil {
		t.Fatalf("legitimately empty search must not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestSearch_BoostFavorsFullTagCoverage(t *testing.T) {
	ret := &mockRetriever{
		// "plain" slightly outranks "tagged" before boost.
		lexical: makeRankedHits(strategy.Lexical, "plain", "tagged"),
		text:    makeRankedHits(strategy.TextVector, "plain", "tagged"),
		image:   makeRankedHits(strategy.ImageVector, "plain", "tagged"),
	}
	props := &mockProps{docs: map[string]property.Property{
		"tagged": property.New("tagged", tag.NormalizeSet([]string{"pool"}), nil, "", "", nil),
		"plain":  property.New("plain", nil, nil, "", "", nil),
	}}
	svc := newTestService(ret, props, nil)

	results, err := svc.Search(context.Background(), testQuery(t, "home with pool", []string{"pool"}), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].DocID() != "tagged" {
		t.Errorf("full tag coverage should outrank a slightly better raw rank, got %s first", results[0].DocID())
	}
	if results[0].Boost() != 2.0 {
		t.Errorf("expected boost 2.0 on tagged doc, got %f", results[0].Boost())
	}
}

// End-to-end multi-feature dominance: the property matching both features on
// distinct photos outranks the single-feature property, even though the
// latter has the single best photo.
func TestSearch_MultiFeatureDominance(t *testing.T) {
	exteriorText := "white painted house exterior facade siding building"
	kitchenText := "granite stone countertops kitchen surfaces"

	imgEmb := &mockImageEmbedder{
		byText: map[string][]float32{
			exteriorText: {1, 0, 0, 0},
			kitchenText:  {0, 1, 0, 0},
		},
		fallback: []float32{0, 0, 1, 0},
	}

	// Unit vector with the given similarity against the feature axis; the
	// remainder goes on a per-document axis so photos of different listings
	// never look near-identical to the deduper.
	photo := func(sim float64, featureAxis, docAxis int) []float32 {
		v := make([]float32, 4)
		v[featureAxis] = float32(sim)
		v[docAxis] = float32(math.Sqrt(1 - sim*sim))
		return v
	}

	tags := []string{"granite_countertops", "white_exterior"}
	props := &mockProps{docs: map[string]property.Property{
		"multi": property.New("multi", tag.NormalizeSet(tags), []property.Image{
			property.NewImage("ext", photo(0.65, 0, 2), "exterior"),
			property.NewImage("kit", photo(0.72, 1, 2), "kitchen"),
		}, "", "", nil),
		"granite_only": property.New("granite_only", tag.NormalizeSet(tags), []property.Image{
			property.NewImage("yard", photo(0.28, 0, 3), ""),
			property.NewImage("kit2", photo(0.78, 1, 3), "kitchen"),
		}, "", "", nil),
	}}

	ret := &mockRetriever{
		// granite_only leads the raw lists; the greedy image signal must
		// still pull multi ahead.
		lexical: makeRankedHits(strategy.Lexical, "granite_only", "multi"),
		text:    makeRankedHits(strategy.TextVector, "granite_only", "multi"),
		image:   makeRankedHits(strategy.ImageVector, "granite_only", "multi"),
	}

	svc := newTestService(ret, props, imgEmb)
	q := testQuery(t, "white house with granite countertops", tags)

	results, err := svc.Search(context.Background(), q, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].DocID() != "multi" {
		t.Errorf("multi-feature property must rank first, got %s (scores: %s=%f, %s=%f)",
			results[0].DocID(),
			results[0].DocID(), results[0].Score(),
			results[1].DocID(), results[1].Score())
	}
}

func TestSearch_PropertyFetchFailureDegrades(t *testing.T) {
	ret := &mockRetriever{
		lexical: makeRankedHits(strategy.Lexical, "a", "b"),
	}
	props := &mockProps{err: errors.New("store offline")}
	svc := newTestService(ret, props, nil)

	results, err := svc.Search(context.Background(), testQuery(t, "home with pool", []string{"pool"}), 10)
	if err != nil {
		t.Fatalf("document fetch failure must not fail the request: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}
