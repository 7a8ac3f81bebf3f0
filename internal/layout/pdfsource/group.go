package pdfsource

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-medreport/internal/layout"
)

// glyph is one positioned text run as drawn by the content stream, in PDF
// bottom-up coordinates.
type glyph struct {
	S    string
	Font string
	X    float64
	Y    float64
	W    float64
	Size float64
}

type word struct {
	text        string
	font        string
	size        float64
	x, w        float64
	baseline    float64
	superscript bool
	spaceBefore bool
}

type line struct {
	baseline float64
	size     float64
	glyphs   []glyph
	words    []word
}

// Grouping thresholds, as fractions of the font size.
const (
	lineTolerance = 0.5
	wordGap       = 0.25
	blockGap      = 1.6
	fontJump      = 1.5
)

func size(g glyph) float64 {
	if g.Size <= 0 {
		return 1
	}
	return g.Size
}

// groupLines sorts glyphs top to bottom and collects those sharing a
// baseline, within half a font size, into lines ordered left to right.
func groupLines(glyphs []glyph) []*line {
	sorted := make([]glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines []*line
	var cur *line
	for _, g := range sorted {
		if cur != nil && math.Abs(g.Y-cur.baseline) <= math.Max(cur.size, size(g))*lineTolerance {
			cur.glyphs = append(cur.glyphs, g)
			cur.size = math.Max(cur.size, size(g))
			continue
		}
		cur = &line{baseline: g.Y, size: size(g), glyphs: []glyph{g}}
		lines = append(lines, cur)
	}

	for _, l := range lines {
		sort.SliceStable(l.glyphs, func(i, j int) bool {
			return l.glyphs[i].X < l.glyphs[j].X
		})
		l.baseline = lowestBaseline(l.glyphs)
		l.words = groupWords(l)
	}
	return lines
}

func lowestBaseline(glyphs []glyph) float64 {
	b := glyphs[0].Y
	for _, g := range glyphs[1:] {
		b = math.Min(b, g.Y)
	}
	return b
}

// groupWords joins the glyphs of a line into words. Blank glyphs and gaps
// wider than a quarter of the font size separate words; a font change splits
// a word without a space.
func groupWords(l *line) []word {
	var words []word
	var cur *word
	var prevEnd float64
	pendingSpace := false

	for _, g := range l.glyphs {
		if strings.TrimSpace(g.S) == "" {
			pendingSpace = true
			cur = nil
			continue
		}
		gap := g.X - prevEnd
		if cur != nil && gap > size(g)*wordGap {
			pendingSpace = true
			cur = nil
		}
		sup := size(g) < l.size*0.8 && g.Y-l.baseline > size(g)*0.2
		if cur != nil && (g.Font != cur.font || sup != cur.superscript) {
			cur = nil
		}
		if cur == nil {
			words = append(words, word{
				font:        g.Font,
				size:        size(g),
				x:           g.X,
				baseline:    g.Y,
				superscript: sup,
				spaceBefore: pendingSpace && len(words) > 0,
			})
			cur = &words[len(words)-1]
			pendingSpace = false
		}
		cur.text += strings.TrimSpace(g.S)
		cur.w = g.X + g.W - cur.x
		prevEnd = g.X + g.W
	}
	return words
}

// splitBlocks cuts lines into blocks on wide vertical gaps and on font size
// jumps.
func splitBlocks(lines []*line) [][]*line {
	var blocks [][]*line
	var cur []*line
	for i, l := range lines {
		if i > 0 {
			prev := lines[i-1]
			gap := prev.baseline - l.baseline
			if gap > math.Max(prev.size, l.size)*blockGap || math.Abs(prev.size-l.size) > fontJump {
				blocks = append(blocks, cur)
				cur = nil
			}
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

// layoutPage adds the text blocks of one page to b. Coordinates are flipped
// to top-down.
func layoutPage(b *layout.DocumentBuilder, page *layout.Page, glyphs []glyph) int {
	n := 0
	for _, block := range splitBlocks(groupLines(glyphs)) {
		var tokens []layout.Token
		for _, l := range block {
			if len(l.words) == 0 {
				continue
			}
			for i, w := range l.words {
				top := page.Height - (w.baseline + w.size)
				if w.spaceBefore && i > 0 {
					prev := l.words[i-1]
					tokens = append(tokens, layout.Token{
						Text:     " ",
						X:        prev.x + prev.w,
						Y:        top,
						Width:    math.Max(w.x-(prev.x+prev.w), 0),
						Height:   w.size,
						Font:     w.font,
						FontSize: w.size,
					})
				}
				tokens = append(tokens, wordTokens(w, top)...)
			}
			last := l.words[len(l.words)-1]
			tokens = append(tokens, layout.Token{
				Text:     "\n",
				X:        last.x + last.w,
				Y:        page.Height - (last.baseline + last.size),
				Height:   last.size,
				Font:     last.font,
				FontSize: last.size,
			})
		}
		if len(tokens) == 0 {
			continue
		}
		b.AddBlock(page, tokens, layout.BoundingBox{})
		n++
	}
	return n
}

// wordTokens tokenizes a word, spreading its width over the pieces by rune
// count.
func wordTokens(w word, top float64) []layout.Token {
	parts := layout.Tokenize(w.text)
	total := utf8.RuneCountInString(w.text)
	lower := strings.ToLower(w.font)
	bold := strings.Contains(lower, "bold") || strings.Contains(lower, "black") || strings.Contains(lower, "heavy")
	italic := strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")

	out := make([]layout.Token, 0, len(parts))
	x := w.x
	for _, p := range parts {
		width := 0.0
		if total > 0 {
			width = w.w * float64(utf8.RuneCountInString(p)) / float64(total)
		}
		out = append(out, layout.Token{
			Text:        p,
			X:           x,
			Y:           top,
			Width:       width,
			Height:      w.size,
			Font:        w.font,
			FontSize:    w.size,
			Bold:        bold,
			Italic:      italic,
			Superscript: w.superscript,
		})
		x += width
	}
	return out
}
