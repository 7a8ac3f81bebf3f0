// Package layout holds the positioned token model produced by the PDF layout
// extraction and consumed by feature construction.
package layout

import (
	"sort"
	"strings"
)

// Token is a positioned piece of text. Tokens are immutable once produced; the
// only sanctioned rewrite is offset recomputation, see RecomputeOffsets.
type Token struct {
	Text        string  `json:"text"`
	Offset      int     `json:"offset"`
	Page        int     `json:"page"`
	BlockPtr    int     `json:"block_ptr"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Font        string  `json:"font,omitempty"`
	FontSize    float64 `json:"font_size"`
	Bold        bool    `json:"bold,omitempty"`
	Italic      bool    `json:"italic,omitempty"`
	Superscript bool    `json:"superscript,omitempty"`
}

// Page describes the geometry of one page. Coordinates are top-down: Y grows
// towards the bottom of the page.
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Block is a group of tokens laid out together, usually a paragraph-like
// region of one page.
type Block struct {
	Page       *Page   `json:"-"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Tokens     []Token `json:"tokens"`
	StartToken int     `json:"start_token"`
}

// Text returns the concatenated token text of the block.
func (b *Block) Text() string {
	return Text(b.Tokens)
}

// EndToken returns the document index of the last token of the block.
func (b *Block) EndToken() int {
	return b.StartToken + len(b.Tokens) - 1
}

// BoundingBox is an axis-aligned rectangle in top-down page coordinates.
type BoundingBox struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Intersects reports whether two boxes on the same page overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	if b.Page != o.Page {
		return false
	}
	return b.X <= o.X+o.Width && o.X <= b.X+b.Width &&
		b.Y <= o.Y+o.Height && o.Y <= b.Y+b.Height
}

// GraphicType distinguishes embedded images from vector drawings.
type GraphicType int

const (
	GraphicBitmap GraphicType = iota
	GraphicVector
	GraphicVectorBox
)

// String returns a string representation of the GraphicType
func (t GraphicType) String() string {
	switch t {
	case GraphicBitmap:
		return "BITMAP"
	case GraphicVector:
		return "VECTOR"
	case GraphicVectorBox:
		return "VECTOR_BOX"
	default:
		return "UNKNOWN"
	}
}

// GraphicObject is an image or vector drawing found on a page. BlockPtr is -1
// when the graphic is not explicitly attached to a block.
type GraphicObject struct {
	Type     GraphicType `json:"type"`
	Box      BoundingBox `json:"box"`
	BlockPtr int         `json:"block_ptr"`
	Name     string      `json:"name,omitempty"`
}

// Pointer addresses a token both in the document tokenization and inside
// its block.
type Pointer struct {
	BlockPtr      int `json:"block_ptr"`
	TokenDocPos   int `json:"token_doc_pos"`
	TokenBlockPos int `json:"token_block_pos"`
}

// Piece is an inclusive token range of the document.
type Piece struct {
	Left  Pointer `json:"left"`
	Right Pointer `json:"right"`
}

// Pieces is an ordered set of pieces.
type Pieces []Piece

// Sorted returns a copy of the pieces ordered by their left document position.
func (ps Pieces) Sorted() Pieces {
	out := make(Pieces, len(ps))
	copy(out, ps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Left.TokenDocPos < out[j].Left.TokenDocPos
	})
	return out
}

// Document is the full layout of one PDF.
type Document struct {
	Tokens   []Token         `json:"tokens"`
	Blocks   []Block         `json:"blocks"`
	Pages    []*Page         `json:"pages"`
	Graphics []GraphicObject `json:"graphics,omitempty"`

	MinBlockSpacing     float64 `json:"min_block_spacing"`
	MaxBlockSpacing     float64 `json:"max_block_spacing"`
	MinCharacterDensity float64 `json:"min_character_density"`
	MaxCharacterDensity float64 `json:"max_character_density"`
}

// WholeDocument returns a single piece covering every block of the document,
// or nil when the document has no tokens.
func (d *Document) WholeDocument() Pieces {
	if len(d.Blocks) == 0 || len(d.Tokens) == 0 {
		return nil
	}
	last := len(d.Blocks) - 1
	for last >= 0 && len(d.Blocks[last].Tokens) == 0 {
		last--
	}
	if last < 0 {
		return nil
	}
	lb := d.Blocks[last]
	return Pieces{{
		Left:  Pointer{BlockPtr: 0, TokenDocPos: d.Blocks[0].StartToken, TokenBlockPos: 0},
		Right: Pointer{BlockPtr: last, TokenDocPos: lb.EndToken(), TokenBlockPos: len(lb.Tokens) - 1},
	}}
}

// ConnectedGraphics returns the graphics attached to a block, either by
// explicit block pointer or by geometric overlap on the same page.
func (d *Document) ConnectedGraphics(blockIndex int) []GraphicObject {
	if blockIndex < 0 || blockIndex >= len(d.Blocks) {
		return nil
	}
	b := d.Blocks[blockIndex]
	if b.Page == nil {
		return nil
	}
	box := BoundingBox{Page: b.Page.Number, X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	var out []GraphicObject
	for _, g := range d.Graphics {
		if g.BlockPtr == blockIndex || (g.BlockPtr < 0 && g.Box.Intersects(box)) {
			out = append(out, g)
		}
	}
	return out
}

// IsSpacey reports whether a token text is a space-like token.
func IsSpacey(s string) bool {
	return s == " " || s == "\u00a0" || s == "\t"
}

// IsNewline reports whether a token text is a line break token.
func IsNewline(s string) bool {
	return s == "\n" || s == "\r" || s == "\r\n"
}

// Text concatenates token texts.
func Text(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// RecomputeOffsets returns a copy of tokens whose offsets are the running sum
// of the preceding token lengths.
func RecomputeOffsets(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	pos := 0
	for i, t := range tokens {
		t.Offset = pos
		pos += len(t.Text)
		out[i] = t
	}
	return out
}

// Dehyphenize drops end-of-line hyphens together with the line break that
// follows them.
func Dehyphenize(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Text == "-" && i+1 < len(tokens) && IsNewline(tokens[i+1].Text) {
			i++
			for i+1 < len(tokens) && IsSpacey(tokens[i+1].Text) {
				i++
			}
			continue
		}
		out = append(out, t)
	}
	return out
}
