package rank

import (
	"testing"

	"github.com/proplens/rankd/internal/domain/property"
	dorank "github.com/proplens/rankd/internal/domain/rank"
)

func makeDoc(id, address, style string, meta map[string]string, images ...property.Image) property.Property {
	return property.New(id, nil, images, address, style, meta)
}

func makeResults(ids ...string) []dorank.Result {
	out := make([]dorank.Result, len(ids))
	for i, id := range ids {
		out[i] = dorank.New(id, 1.0-0.1*float64(i), nil)
	}
	return out
}

func TestDedupe_FirstAlwaysAccepted(t *testing.T) {
	d := NewDeduper(0)
	docs := map[string]property.Property{
		"a": makeDoc("a", "1 Main St, Springfield", "", nil),
		"b": makeDoc("b", "1 Main St, Unit 2", "", nil),
	}

	out := d.Dedupe(makeResults("a", "b"), docs, 10)
	if len(out) == 0 || out[0].DocID() != "a" {
		t.Fatal("first candidate must always be accepted")
	}
}

func TestDedupe_AddressPrefix(t *testing.T) {
	d := NewDeduper(0)
	docs := map[string]property.Property{
		"a": makeDoc("a", "14 Oak Ave, Springfield", "", nil),
		"b": makeDoc("b", "14 Oak Ave, SPRINGFIELD", "", nil),
		"c": makeDoc("c", "15 Oak Ave, Springfield", "", nil),
	}

	out := d.Dedupe(makeResults("a", "b", "c"), docs, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 results after address dedupe, got %d", len(out))
	}
	if out[0].DocID() != "a" || out[1].DocID() != "c" {
		t.Errorf("expected [a c], got [%s %s]", out[0].DocID(), out[1].DocID())
	}
}

func TestDedupe_NearIdenticalImages(t *testing.T) {
	d := NewDeduper(0.90)
	shared := []float32{0.6, 0.8}
	docs := map[string]property.Property{
		"a": makeDoc("a", "addr one", "", nil, property.NewImage("i1", shared, "")),
		"b": makeDoc("b", "addr two", "", nil, property.NewImage("i2", shared, "")),
		"c": makeDoc("c", "addr three", "", nil, property.NewImage("i3", []float32{0.8, -0.6}, "")),
	}

	out := d.Dedupe(makeResults("a", "b", "c"), docs, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 results after image dedupe, got %d", len(out))
	}
}

func TestDedupe_StyleAndMetadata(t *testing.T) {
	d := NewDeduper(0)
	meta := map[string]string{"beds": "3", "baths": "2", "sqft": "1800"}
	docs := map[string]property.Property{
		"a": makeDoc("a", "addr one", "craftsman", meta),
		"b": makeDoc("b", "addr two", "craftsman", map[string]string{"beds": "3", "baths": "2", "sqft": "1800"}),
		"c": makeDoc("c", "addr three", "craftsman", map[string]string{"beds": "4", "baths": "2", "sqft": "2400"}),
	}

	out := d.Dedupe(makeResults("a", "b", "c"), docs, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 results after style+metadata dedupe, got %d", len(out))
	}
}

func TestDedupe_StopsAtLimit(t *testing.T) {
	d := NewDeduper(0)
	docs := map[string]property.Property{}
	out := d.Dedupe(makeResults("a", "b", "c", "d"), docs, 2)
	if len(out) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(out))
	}
}

func TestDedupe_MissingDocKept(t *testing.T) {
	d := NewDeduper(0)
	docs := map[string]property.Property{
		"a": makeDoc("a", "1 Main St", "", nil),
	}
	out := d.Dedupe(makeResults("a", "ghost"), docs, 10)
	if len(out) != 2 {
		t.Fatalf("candidate without metadata should be kept, got %d results", len(out))
	}
}
