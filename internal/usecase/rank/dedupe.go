package rank

import (
	"strings"

	"github.com/proplens/rankd/internal/domain/property"
	dorank "github.com/proplens/rankd/internal/domain/rank"
)

// Dedupe parameters.
const (
	// DuplicateImageThreshold is the image cosine above which two listings
	// are considered the same property (relisted or cross-posted).
	DuplicateImageThreshold = 0.90
	// maxImagesCompared bounds the pairwise image comparison per candidate.
	maxImagesCompared = 5
)

// Deduper removes near-duplicate candidates from a boosted, score-sorted list.
type Deduper struct {
	imageThreshold float64
}

// NewDeduper creates a deduper. threshold <= 0 uses the default.
func NewDeduper(threshold float64) *Deduper {
	if threshold <= 0 {
		threshold = DuplicateImageThreshold
	}
	return &Deduper{imageThreshold: threshold}
}

// Dedupe walks the sorted candidates, skips any judged too similar to an
// already-accepted one, and stops at limit. The first candidate is always
// accepted. Candidates without a fetched document are kept: missing metadata
// is no reason to drop a result.
func (d *Deduper) Dedupe(
	results []dorank.Result, docs map[string]property.Property, limit int,
) []dorank.Result {
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}

	accepted := make([]dorank.Result, 0, limit)
	for i := range results {
		if len(accepted) == limit {
			break
		}
		doc, ok := docs[results[i].DocID()]
		if !ok || len(accepted) == 0 {
			accepted = append(accepted, results[i])
			continue
		}

		dup := false
		for j := range accepted {
			prev, ok := docs[accepted[j].DocID()]
			if !ok {
				continue
			}
			if d.similar(&doc, &prev) {
				dup = true
				break
			}
		}
		if !dup {
			accepted = append(accepted, results[i])
		}
	}

	return accepted
}

// similar judges two listings as the same property by address prefix,
// near-identical photos, or matching style with identical core metadata.
func (d *Deduper) similar(a, b *property.Property) bool {
	if addressPrefix(a.Address()) != "" && addressPrefix(a.Address()) == addressPrefix(b.Address()) {
		return true
	}
	if d.imagesNearIdentical(a.Images(), b.Images()) {
		return true
	}
	if a.Style() != "" && a.Style() == b.Style() && metadataEqual(a.Metadata(), b.Metadata()) {
		return true
	}
	return false
}

func (d *Deduper) imagesNearIdentical(a, b []property.Image) bool {
	na, nb := len(a), len(b)
	if na > maxImagesCompared {
		na = maxImagesCompared
	}
	if nb > maxImagesCompared {
		nb = maxImagesCompared
	}
	for i := 0; i < na; i++ {
		for j := 0; j < nb; j++ {
			if Cosine(a[i].Embedding(), b[j].Embedding()) >= d.imageThreshold {
				return true
			}
		}
	}
	return false
}

// addressPrefix normalizes an address down to its street part (before the
// first comma), so unit suffixes and city spelling do not defeat matching.
func addressPrefix(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if i := strings.Index(addr, ","); i >= 0 {
		addr = addr[:i]
	}
	return strings.Join(strings.Fields(addr), " ")
}

func metadataEqual(a, b map[string]string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
