package layout

// DocumentBuilder assembles a Document block by block, keeping the
// document tokenization, block start positions and token block pointers
// consistent.
type DocumentBuilder struct {
	doc *Document
}

// NewDocumentBuilder creates an empty builder.
func NewDocumentBuilder() *DocumentBuilder {
	return &DocumentBuilder{doc: &Document{}}
}

// AddPage registers a page and returns it.
func (b *DocumentBuilder) AddPage(number int, width, height float64) *Page {
	p := &Page{Number: number, Width: width, Height: height}
	b.doc.Pages = append(b.doc.Pages, p)
	return p
}

// AddBlock appends a block on the given page. Token offsets, pages and block
// pointers are assigned here; the bounding box is the union of the token
// boxes unless box is non-zero.
func (b *DocumentBuilder) AddBlock(page *Page, tokens []Token, box BoundingBox) int {
	blockPtr := len(b.doc.Blocks)
	start := len(b.doc.Tokens)

	offset := 0
	if start > 0 {
		last := b.doc.Tokens[start-1]
		offset = last.Offset + len(last.Text)
	}

	owned := make([]Token, len(tokens))
	for i, t := range tokens {
		t.BlockPtr = blockPtr
		t.Offset = offset
		if page != nil {
			t.Page = page.Number
		}
		offset += len(t.Text)
		owned[i] = t
	}

	if box == (BoundingBox{}) {
		box = unionBox(owned)
	}

	b.doc.Blocks = append(b.doc.Blocks, Block{
		Page:       page,
		X:          box.X,
		Y:          box.Y,
		Width:      box.Width,
		Height:     box.Height,
		Tokens:     owned,
		StartToken: start,
	})
	b.doc.Tokens = append(b.doc.Tokens, owned...)
	return blockPtr
}

// AddGraphic registers an image or vector graphic.
func (b *DocumentBuilder) AddGraphic(g GraphicObject) {
	b.doc.Graphics = append(b.doc.Graphics, g)
}

// Build computes document statistics and returns the document.
func (b *DocumentBuilder) Build() *Document {
	b.doc.ComputeStatistics()
	return b.doc
}

func unionBox(tokens []Token) BoundingBox {
	first := true
	var minX, minY, maxX, maxY float64
	for _, t := range tokens {
		if t.Text == "" || IsNewline(t.Text) || IsSpacey(t.Text) {
			continue
		}
		if first {
			minX, minY = t.X, t.Y
			maxX, maxY = t.X+t.Width, t.Y+t.Height
			first = false
			continue
		}
		minX = min(minX, t.X)
		minY = min(minY, t.Y)
		maxX = max(maxX, t.X+t.Width)
		maxY = max(maxY, t.Y+t.Height)
	}
	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
