package listing

import (
	"encoding/json"
	"fmt"

	"github.com/proplens/rankd/internal/domain/property"
	"github.com/proplens/rankd/internal/domain/tag"
)

// Record is the stored shape of one listing. Vectors arrive precomputed from
// the ingestion pipeline; the service never embeds listing content itself.
type Record struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags,omitempty"`
	Address     string            `json:"address,omitempty"`
	Style       string            `json:"style,omitempty"`
	Price       float64           `json:"price,omitempty"`
	Beds        float64           `json:"beds,omitempty"`
	Baths       float64           `json:"baths,omitempty"`
	Sqft        float64           `json:"sqft,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	TextVec     []float32         `json:"text_vec,omitempty"`
	Images      []ImageRecord     `json:"images,omitempty"`
}

// ImageRecord is one listing photo with its cross-modal embedding.
type ImageRecord struct {
	ID        string    `json:"id"`
	Category  string    `json:"category,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// toProperty converts a stored record into the read-side domain document.
func (r *Record) toProperty() property.Property {
	images := make([]property.Image, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, property.NewImage(img.ID, img.Embedding, img.Category))
	}
	return property.New(r.ID, tag.NormalizeSet(r.Tags), images, r.Address, r.Style, r.Metadata)
}

// parseRecord unwraps a JSON.GET "$" payload (a one-element array) into a Record.
func parseRecord(id string, data []byte) (Record, error) {
	var docs []Record
	if err := json.Unmarshal(data, &docs); err != nil {
		// Root path responses without the array wrapper are accepted too.
		var doc Record
		if err2 := json.Unmarshal(data, &doc); err2 != nil {
			return Record{}, fmt.Errorf("parse listing %s: %w", id, err)
		}
		docs = []Record{doc}
	}
	if len(docs) == 0 {
		return Record{}, fmt.Errorf("parse listing %s: empty payload", id)
	}
	rec := docs[0]
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}
