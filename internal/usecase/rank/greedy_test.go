package rank

import (
	"math"
	"testing"

	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/subquery"
)

func makeSub(t *testing.T, tag string, weight float64, emb []float32) subquery.Subquery {
	t.Helper()
	sq, err := subquery.New(tag, tag, weight, subquery.Max)
	if err != nil {
		t.Fatalf("subquery.New: %v", err)
	}
	return sq.WithEmbeddings(nil, emb)
}

func TestScoreImages_DistinctAssignment(t *testing.T) {
	// Both subqueries prefer image 0, but only one can have it.
	subs := []subquery.Subquery{
		makeSub(t, "feat_a", 1.0, []float32{1, 0}),
		makeSub(t, "feat_b", 1.0, []float32{0.9, 0.1}),
	}
	images := []property.Image{
		property.NewImage("img0", []float32{1, 0}, ""),
		property.NewImage("img1", []float32{0, 1}, ""),
		property.NewImage("img2", []float32{0.5, 0.5}, ""),
	}

	_, assigned := ScoreImages(subs, images)
	if assigned[0] == assigned[1] {
		t.Fatalf("two subqueries share image %d", assigned[0])
	}
	for i, a := range assigned {
		if a < 0 {
			t.Errorf("subquery %d unassigned despite enough images", i)
		}
	}
}

func TestScoreImages_FewerImagesThanSubqueries(t *testing.T) {
	subs := []subquery.Subquery{
		makeSub(t, "feat_a", 1.0, []float32{1, 0}),
		makeSub(t, "feat_b", 1.0, []float32{0, 1}),
		makeSub(t, "feat_c", 1.0, []float32{1, 1}),
	}
	images := []property.Image{
		property.NewImage("img0", []float32{1, 0}, ""),
	}

	score, assigned := ScoreImages(subs, images)

	var assignedCount int
	for _, a := range assigned {
		if a >= 0 {
			assignedCount++
		}
	}
	if assignedCount != 1 {
		t.Fatalf("expected exactly 1 assignment, got %d", assignedCount)
	}
	// Only the matching subquery contributes.
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0 from the single assignable pair, got %f", score)
	}
}

func TestScoreImages_NoImages(t *testing.T) {
	subs := []subquery.Subquery{makeSub(t, "feat_a", 1.0, []float32{1, 0})}
	score, assigned := ScoreImages(subs, nil)
	if score != 0 {
		t.Errorf("expected 0 score, got %f", score)
	}
	if assigned[0] != -1 {
		t.Errorf("expected unassigned, got %d", assigned[0])
	}
}

// The multi-feature dominance scenario: an easy kitchen match must not serve
// the exterior subquery through the same photo. Greedy assignment yields
// 0.65*2.0 + 0.72*1.0 = 2.02 over two distinct photos.
func TestScoreImages_MultiFeatureDominance(t *testing.T) {
	exterior := makeSub(t, "white_exterior", 2.0, []float32{1, 0, 0})
	kitchen := makeSub(t, "granite_countertops", 1.0, []float32{0, 1, 0})
	subs := []subquery.Subquery{exterior, kitchen}

	// Photo embeddings built so each photo matches exactly one feature axis:
	// cosine(exterior, photoA) = 0.65, cosine(kitchen, photoB) = 0.72,
	// cross terms zero.
	photoA := property.NewImage("exterior_shot", unitWithSimilarity(0.65, 0), "exterior")
	photoB := property.NewImage("kitchen_shot", unitWithSimilarity(0.72, 1), "kitchen")
	imagesA := []property.Image{photoA, photoB}

	scoreA, assigned := ScoreImages(subs, imagesA)
	if assigned[0] == assigned[1] {
		t.Fatal("greedy assignment reused one photo for both subqueries")
	}
	if math.Abs(scoreA-2.02) > 1e-4 {
		t.Errorf("property A: expected greedy score 2.02, got %f", scoreA)
	}

	// Property B: granite-only (exterior 0.28, kitchen 0.78) scores 1.34.
	photoC := property.NewImage("yard_shot", unitWithSimilarity(0.28, 0), "")
	photoD := property.NewImage("kitchen_close", unitWithSimilarity(0.78, 1), "kitchen")
	scoreB, _ := ScoreImages(subs, []property.Image{photoC, photoD})
	if math.Abs(scoreB-1.34) > 1e-4 {
		t.Errorf("property B: expected greedy score 1.34, got %f", scoreB)
	}

	if scoreA <= scoreB {
		t.Errorf("multi-feature property (%f) must outrank single-feature property (%f)", scoreA, scoreB)
	}
}

func TestCosine(t *testing.T) {
	if c := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(c-1) > 1e-9 {
		t.Errorf("identical vectors: %f", c)
	}
	if c := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(c) > 1e-9 {
		t.Errorf("orthogonal vectors: %f", c)
	}
	if c := Cosine([]float32{1, 0}, []float32{0, 0}); c != 0 {
		t.Errorf("zero norm: %f", c)
	}
	if c := Cosine([]float32{1}, []float32{1, 0}); c != 0 {
		t.Errorf("dimension mismatch: %f", c)
	}
}

// unitWithSimilarity returns a 3D unit vector whose cosine against the given
// feature axis equals sim, with the remainder on the z axis so cosines
// against the other feature axis stay zero.
func unitWithSimilarity(sim float64, axis int) []float32 {
	v := make([]float32, 3)
	v[axis] = float32(sim)
	v[2] = float32(math.Sqrt(1 - sim*sim))
	return v
}
