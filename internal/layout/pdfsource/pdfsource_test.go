package pdfsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// word glyphs of 5 points per character on the given baseline
func run(text, font string, x, y, size float64) []glyph {
	var out []glyph
	for _, r := range text {
		out = append(out, glyph{S: string(r), Font: font, X: x, Y: y, W: 5, Size: size})
		x += 5
	}
	return out
}

func texts(tokens []layout.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func TestLayoutPage(t *testing.T) {
	var glyphs []glyph
	// title, set apart by size and gap
	glyphs = append(glyphs, run("BILAN", "Helvetica-Bold", 50, 750, 16)...)
	// two body lines, given out of order
	glyphs = append(glyphs, run("suite.", "Helvetica", 50, 688, 10)...)
	glyphs = append(glyphs, run("Patient", "Helvetica", 50, 700, 10)...)
	glyphs = append(glyphs, glyph{S: " ", Font: "Helvetica", X: 85, Y: 700, W: 5, Size: 10})
	glyphs = append(glyphs, run("stable", "Helvetica", 90, 700, 10)...)
	// gap without a blank glyph
	glyphs = append(glyphs, run("ok", "Helvetica-Oblique", 130, 700, 10)...)

	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)
	n := layoutPage(b, page, glyphs)
	doc := b.Build()

	require.Equal(t, 2, n)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "BILAN\n", doc.Blocks[0].Text())
	assert.Equal(t, "Patient stable ok\nsuite.\n", doc.Blocks[1].Text())
	assert.Equal(t, []string{"Patient", " ", "stable", " ", "ok", "\n", "suite", ".", "\n"}, texts(doc.Blocks[1].Tokens))

	title := doc.Blocks[0].Tokens[0]
	assert.True(t, title.Bold)
	assert.InDelta(t, 800-(750+16), title.Y, 1e-9)
	assert.InDelta(t, 25, title.Width, 1e-9)

	ok := doc.Blocks[1].Tokens[4]
	assert.True(t, ok.Italic)
	assert.Equal(t, 1, ok.Page)
	assert.Equal(t, 1, ok.BlockPtr)

	// "suite." is split by the tokenizer, width spread by rune count
	suite := doc.Blocks[1].Tokens[6]
	assert.InDelta(t, 25, suite.Width, 1e-9)
}

func TestGroupWords_Superscript(t *testing.T) {
	glyphs := run("Figure", "Times", 50, 700, 10)
	glyphs = append(glyphs, glyph{S: "1", Font: "Times", X: 80, Y: 704, W: 3, Size: 6})

	lines := groupLines(glyphs)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].words, 2)
	assert.Equal(t, "Figure", lines[0].words[0].text)
	assert.False(t, lines[0].words[0].superscript)
	assert.True(t, lines[0].words[1].superscript)
	assert.False(t, lines[0].words[1].spaceBefore)
}

func TestVectorGraphics(t *testing.T) {
	page := &layout.Page{Number: 2, Width: 600, Height: 800}
	got := vectorGraphics(page, []pdf.Rect{
		{Min: pdf.Point{X: 10, Y: 100}, Max: pdf.Point{X: 110, Y: 101}},
		{Min: pdf.Point{X: 10, Y: 100}, Max: pdf.Point{X: 110, Y: 200}},
	})
	require.Len(t, got, 2)
	assert.Equal(t, layout.GraphicVector, got[0].Type)
	assert.Equal(t, layout.GraphicVectorBox, got[1].Type)
	assert.Equal(t, layout.BoundingBox{Page: 2, X: 10, Y: 600, Width: 100, Height: 100}, got[1].Box)
	assert.Equal(t, -1, got[1].BlockPtr)
}

func TestImagePlacer(t *testing.T) {
	ip := newImagePlacer()
	ops := []struct {
		op   string
		nums []float64
		name string
	}{
		{"q", nil, ""},
		{"cm", []float64{100, 0, 0, 50, 20, 700}, ""},
		{"Do", nil, "Logo"},
		{"Q", nil, ""},
		{"q", nil, ""},
		{"cm", []float64{1, 0, 0, 1, 10, 10}, ""},
		{"q", nil, ""},
		{"cm", []float64{200, 0, 0, 100, 0, 0}, ""},
		{"Do", nil, "Scan"},
		{"Q", nil, ""},
		{"Do", nil, "Stamp"},
		{"Q", nil, ""},
		{"Q", nil, ""}, // unbalanced restores are ignored
		{"Do", nil, "Stamp"},
	}
	for _, o := range ops {
		ip.operator(o.op, o.nums, o.name)
	}

	assert.Equal(t, []affine{{100, 0, 0, 50, 20, 700}}, ip.placed["Logo"])
	assert.Equal(t, []affine{{200, 0, 0, 100, 10, 10}}, ip.placed["Scan"])
	assert.Equal(t, []affine{{1, 0, 0, 1, 10, 10}, identity}, ip.placed["Stamp"])
}

func TestImageBox(t *testing.T) {
	page := &layout.Page{Number: 1, Width: 600, Height: 800}

	logo := imageBox(page, affine{100, 0, 0, 50, 20, 700})
	assert.Equal(t, layout.BoundingBox{Page: 1, X: 20, Y: 50, Width: 100, Height: 50}, logo)

	// a letterhead logo is not around the body text further down the page
	body := layout.BoundingBox{Page: 1, X: 20, Y: 300, Width: 500, Height: 200}
	assert.False(t, logo.Intersects(body))
	assert.True(t, logo.Intersects(layout.BoundingBox{Page: 1, X: 0, Y: 60, Width: 600, Height: 20}))

	// rotated by 90 degrees
	rotated := imageBox(page, affine{0, 100, -50, 0, 300, 400})
	assert.Equal(t, layout.BoundingBox{Page: 1, X: 250, Y: 300, Width: 50, Height: 100}, rotated)
}

func TestSource_Validate(t *testing.T) {
	dir := t.TempDir()
	s := New(Options{MaxFileSize: 8}, nil)

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	big := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(big, []byte("%PDF-1.4 too large"), 0o600))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

	tests := []struct {
		path string
		typ  errors.ErrorType
	}{
		{"", errors.ErrorTypeInvalidInput},
		{filepath.Join(dir, "missing.pdf"), errors.ErrorTypeResourceNotFound},
		{dir, errors.ErrorTypeInvalidInput},
		{txt, errors.ErrorTypeInvalidInput},
		{empty, errors.ErrorTypeInvalidInput},
		{big, errors.ErrorTypeInvalidInput},
	}
	for _, tt := range tests {
		err := s.Validate(tt.path)
		require.Error(t, err, tt.path)
		var perr *errors.ProcessingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.typ, perr.Type, tt.path)
	}
}

func TestSource_OpenInvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o600))

	_, err := New(Options{}, nil).Open(context.Background(), path)
	require.Error(t, err)
}
