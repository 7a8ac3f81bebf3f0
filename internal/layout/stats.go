package layout

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Placeholder block texts inserted by layout extraction for page breaks and
// images. They carry no characters for density purposes.
const (
	PageMarker  = "@PAGE"
	ImageMarker = "@IMAGE"
)

// IsPlaceholder reports whether a block text is a page or image placeholder.
func IsPlaceholder(text string) bool {
	return strings.Contains(text, PageMarker) || strings.Contains(text, ImageMarker)
}

// CharacterDensity returns the characters per square unit of a block, or 0
// when the block has no area or is a placeholder.
func CharacterDensity(b *Block) float64 {
	text := b.Text()
	if b.Height == 0 || b.Width == 0 || text == "" || IsPlaceholder(text) {
		return 0
	}
	return float64(utf8.RuneCountInString(text)) / (b.Height * b.Width)
}

// ComputeStatistics fills the document-wide spacing and density ranges used to
// normalise layout features. Spacing is measured between consecutive blocks of
// the same page.
func (d *Document) ComputeStatistics() {
	minSpacing, maxSpacing := math.MaxFloat64, 0.0
	minDensity, maxDensity := math.MaxFloat64, 0.0

	var prev *Block
	for i := range d.Blocks {
		b := &d.Blocks[i]
		if prev != nil && prev.Page != nil && b.Page != nil && prev.Page.Number == b.Page.Number {
			spacing := b.Y - (prev.Y + prev.Height)
			if spacing > 0 {
				minSpacing = math.Min(minSpacing, spacing)
				maxSpacing = math.Max(maxSpacing, spacing)
			}
		}
		if density := CharacterDensity(b); density > 0 {
			minDensity = math.Min(minDensity, density)
			maxDensity = math.Max(maxDensity, density)
		}
		prev = b
	}

	if minSpacing == math.MaxFloat64 {
		minSpacing = 0
	}
	if minDensity == math.MaxFloat64 {
		minDensity = 0
	}
	d.MinBlockSpacing = minSpacing
	d.MaxBlockSpacing = maxSpacing
	d.MinCharacterDensity = minDensity
	d.MaxCharacterDensity = maxDensity
}

// FullTextLength is the total text length, in runes, of the tokens covered by
// the pieces.
func (d *Document) FullTextLength(pieces Pieces) int {
	n := 0
	for _, p := range pieces {
		for i := p.Left.TokenDocPos; i <= p.Right.TokenDocPos && i < len(d.Tokens); i++ {
			if i < 0 {
				continue
			}
			n += utf8.RuneCountInString(d.Tokens[i].Text)
		}
	}
	return n
}

// PageTextLengths returns the text length, in runes, of the tokens covered by
// the pieces, per page number.
func (d *Document) PageTextLengths(pieces Pieces) map[int]int {
	out := make(map[int]int)
	for _, p := range pieces {
		for i := max(p.Left.TokenDocPos, 0); i <= p.Right.TokenDocPos && i < len(d.Tokens); i++ {
			t := d.Tokens[i]
			out[t.Page] += utf8.RuneCountInString(t.Text)
		}
	}
	return out
}
