package rank

import (
	"math"

	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/subquery"
)

// ScoreImages assigns each subquery its own best-matching, previously-unused
// photo of the document and returns the weighted similarity sum plus the
// assignment (image index per subquery, -1 when images ran out).
//
// Taking the best photo per subquery independently lets one easy feature
// (flooring, visible in most rooms) serve every subquery and starve the
// photo-scarce ones (exterior color, visible in one or two shots). Greedy
// matching removes both the subquery and the image from the pool on each
// pick, so with M subqueries and at least M images every subquery receives a
// distinct image. Subqueries left without an image or without an image-space
// embedding contribute 0.
//
// The similarity matrix is a flat arena with index elimination; M <= 4 and
// image counts stay small, so exhaustive max scans are cheap.
func ScoreImages(subs []subquery.Subquery, images []property.Image) (float64, []int) {
	m, n := len(subs), len(images)
	assigned := make([]int, m)
	for i := range assigned {
		assigned[i] = -1
	}
	if m == 0 || n == 0 {
		return 0, assigned
	}

	sim := make([]float64, m*n)
	for i := range subs {
		emb := subs[i].ImageEmbedding()
		for j := range images {
			sim[i*n+j] = Cosine(emb, images[j].Embedding())
		}
	}

	imgDone := make([]bool, n)

	var score float64
	rounds := m
	if n < rounds {
		rounds = n
	}
	for range rounds {
		bestI, bestJ := -1, -1
		best := math.Inf(-1)
		for i := 0; i < m; i++ {
			if assigned[i] >= 0 {
				continue
			}
			for j := 0; j < n; j++ {
				if imgDone[j] {
					continue
				}
				if sim[i*n+j] > best {
					best = sim[i*n+j]
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		assigned[bestI] = bestJ
		imgDone[bestJ] = true
		if best > 0 {
			score += subs[bestI].Weight() * best
		}
	}

	return score, assigned
}

// Cosine returns the cosine similarity of two vectors, 0 for mismatched
// dimensions or zero norms.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
