package property

// Image is a single listing photo with its embedding in the cross-modal space.
type Image struct {
	id        string
	embedding []float32
	category  string
}

// NewImage creates a candidate image. Category is optional (exterior,
// interior, kitchen, ...).
func NewImage(id string, embedding []float32, category string) Image {
	return Image{id: id, embedding: embedding, category: category}
}

// ID returns the image identifier.
func (i *Image) ID() string { return i.id }

// Embedding returns the image-space vector.
func (i *Image) Embedding() []float32 { return i.embedding }

// Category returns the image category, empty if unknown.
func (i *Image) Category() string { return i.category }

// Property is a candidate listing as the ranking core sees it: canonical tag
// set, photos, and opaque metadata passed through untouched. Owned by the
// storage layer; read-only here.
type Property struct {
	docID    string
	tags     map[string]struct{}
	images   []Image
	address  string
	style    string
	metadata map[string]string
}

// New creates a property document.
func New(
	docID string,
	tags map[string]struct{},
	images []Image,
	address, style string,
	metadata map[string]string,
) Property {
	return Property{
		docID: docID, tags: tags, images: images,
		address: address, style: style, metadata: metadata,
	}
}

// DocID returns the document identifier.
func (p *Property) DocID() string { return p.docID }

// Tags returns the canonical tag set.
func (p *Property) Tags() map[string]struct{} { return p.tags }

// Images returns the listing photos.
func (p *Property) Images() []Image { return p.images }

// Address returns the street address, empty if unknown.
func (p *Property) Address() string { return p.address }

// Style returns the architecture style tag, empty if unknown.
func (p *Property) Style() string { return p.style }

// Metadata returns opaque pass-through fields.
func (p *Property) Metadata() map[string]string { return p.metadata }
