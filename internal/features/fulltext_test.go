package features

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	mrerrors "github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// tok builds a token of font Times 10 whose width is five units per rune.
func tok(text string, x, y float64) layout.Token {
	return layout.Token{
		Text:     text,
		X:        x,
		Y:        y,
		Width:    5 * float64(utf8.RuneCountInString(text)),
		Height:   10,
		Font:     "Times",
		FontSize: 10,
	}
}

func twoBlockDocument() *layout.Document {
	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)
	b.AddBlock(page, []layout.Token{
		tok("Hello", 10, 100), tok(" ", 35, 100), tok("world", 40, 100), tok("\n", 65, 100),
		tok("Second", 10, 112), tok(" ", 40, 112), tok("line", 45, 112),
	}, layout.BoundingBox{})
	b.AddBlock(page, []layout.Token{
		tok("Next", 10, 200), tok(" ", 30, 200), tok("block", 35, 200),
	}, layout.BoundingBox{})
	return b.Build()
}

func statuses(records []*FullTextVector) [][3]string {
	out := make([][3]string, len(records))
	for i, r := range records {
		out[i] = [3]string{r.Text, r.LineStatus, r.BlockStatus}
	}
	return out
}

func TestFullTextBuilder_LineAndBlockStatus(t *testing.T) {
	doc := twoBlockDocument()
	res, err := NewFullTextBuilder(zaptest.NewLogger(t)).Build(doc, doc.WholeDocument())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, [][3]string{
		{"Hello", LineStart, BlockStart},
		{"world", LineEnd, BlockIn},
		{"Second", LineStart, BlockIn},
		{"line", LineEnd, BlockEnd},
		{"Next", LineStart, BlockStart},
		{"block", LineEnd, BlockEnd},
	}, statuses(res.Records))

	// every token is walked, whitespace included
	assert.Len(t, res.Tokens, len(doc.Tokens))

	lines := strings.Split(strings.TrimSuffix(res.Features, "\n"), "\n")
	require.Len(t, lines, len(res.Records))
	for _, l := range lines {
		assert.Len(t, strings.Fields(l), 30, l)
	}
	assert.True(t, strings.HasPrefix(lines[0], "Hello hello H He Hel Hell o lo llo ello BLOCKSTART LINESTART"))
}

func TestFullTextBuilder_PositionsAreMonotonic(t *testing.T) {
	doc := twoBlockDocument()
	res, err := NewFullTextBuilder(nil).Build(doc, doc.WholeDocument())
	require.NoError(t, err)

	prev := -1
	for _, r := range res.Records {
		assert.GreaterOrEqual(t, r.RelativeDocumentPosition, prev)
		assert.LessOrEqual(t, r.RelativeDocumentPosition, NbBinsPosition)
		assert.LessOrEqual(t, r.RelativePagePosition, NbBinsPosition)
		assert.LessOrEqual(t, r.SpacingWithPreviousBlock, NbBinsSpace)
		assert.LessOrEqual(t, r.CharacterDensity, NbBinsDensity)
		prev = r.RelativeDocumentPosition
	}
	assert.Equal(t, 0, res.Records[0].RelativeDocumentPosition)
}

func TestFullTextBuilder_PieceEndingInsideBlock(t *testing.T) {
	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)
	b.AddBlock(page, []layout.Token{
		tok("Foo", 10, 100), tok(" ", 25, 100), tok("bar", 30, 100), tok(" ", 45, 100), tok("baz", 50, 100),
	}, layout.BoundingBox{})
	b.AddBlock(page, []layout.Token{
		tok("Next", 10, 200), tok(" ", 30, 200), tok("block", 35, 200),
	}, layout.BoundingBox{})
	doc := b.Build()

	pieces := layout.Pieces{
		{
			Left:  layout.Pointer{BlockPtr: 1, TokenDocPos: 5, TokenBlockPos: 0},
			Right: layout.Pointer{BlockPtr: 1, TokenDocPos: 7, TokenBlockPos: 2},
		},
		{
			Left:  layout.Pointer{BlockPtr: 0, TokenDocPos: 0, TokenBlockPos: 0},
			Right: layout.Pointer{BlockPtr: 0, TokenDocPos: 2, TokenBlockPos: 2},
		},
	}
	res, err := NewFullTextBuilder(zaptest.NewLogger(t)).Build(doc, pieces)
	require.NoError(t, err)

	// bar was still inside its block when the next block started
	assert.Equal(t, [][3]string{
		{"Foo", LineStart, BlockStart},
		{"bar", LineEnd, BlockEnd},
		{"Next", LineStart, BlockStart},
		{"block", LineEnd, BlockEnd},
	}, statuses(res.Records))
}

func TestFullTextBuilder_FontsAndIndentation(t *testing.T) {
	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)

	first := tok("Alpha", 10, 100)
	second := tok("beta", 40, 100)
	second.FontSize = 12
	third := tok("Gamma", 30, 112)
	third.Font = "Arial"
	third.FontSize = 8
	third.Bold = true

	b.AddBlock(page, []layout.Token{first, tok(" ", 35, 100), second, tok("\n", 60, 100), third}, layout.BoundingBox{})
	doc := b.Build()

	res, err := NewFullTextBuilder(nil).Build(doc, doc.WholeDocument())
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	assert.Equal(t, []string{NewFont, SameFont, NewFont},
		[]string{res.Records[0].FontStatus, res.Records[1].FontStatus, res.Records[2].FontStatus})
	assert.Equal(t, []string{HigherFont, HigherFont, LowerFont},
		[]string{res.Records[0].FontSize, res.Records[1].FontSize, res.Records[2].FontSize})
	assert.True(t, res.Records[2].Bold)

	assert.Equal(t, AlignedLeft, res.Records[0].AlignmentStatus)
	assert.Equal(t, LineIndent, res.Records[2].AlignmentStatus)
}

func TestFullTextBuilder_Graphics(t *testing.T) {
	doc := twoBlockDocument()
	doc.Graphics = append(doc.Graphics, layout.GraphicObject{Type: layout.GraphicBitmap, BlockPtr: 1})

	res, err := NewFullTextBuilder(nil).Build(doc, doc.WholeDocument())
	require.NoError(t, err)
	for _, r := range res.Records {
		want := r.Token.BlockPtr == 1
		assert.Equal(t, want, r.BitmapAround, r.Text)
		assert.False(t, r.VectorAround)
	}
}

func TestFullTextBuilder_ColumnJumpSpacing(t *testing.T) {
	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)
	b.AddBlock(page, []layout.Token{tok("Alpha", 10, 100), tok(" ", 35, 100), tok("one", 40, 100)}, layout.BoundingBox{})
	b.AddBlock(page, []layout.Token{tok("Beta", 10, 150), tok(" ", 30, 150), tok("two", 35, 150)}, layout.BoundingBox{})
	// second column, starting above the bottom of the previous block
	b.AddBlock(page, []layout.Token{tok("Gamma", 300, 100), tok(" ", 325, 100), tok("three", 330, 100)}, layout.BoundingBox{})
	doc := b.Build()
	doc.MinBlockSpacing, doc.MaxBlockSpacing = 0, 100

	res, err := NewFullTextBuilder(zaptest.NewLogger(t)).Build(doc, doc.WholeDocument())
	require.NoError(t, err)
	require.Len(t, res.Records, 6)

	spacing := map[string]int{}
	for _, r := range res.Records {
		spacing[r.Text] = r.SpacingWithPreviousBlock
	}
	assert.Equal(t, 5, spacing["Alpha"])
	assert.Equal(t, 2, spacing["Beta"], "40 below the first block")
	assert.Equal(t, 1, spacing["Gamma"], "a fifth of the largest spacing")
	assert.Equal(t, 1, spacing["three"])
}

func TestFullTextBuilder_PlaceholderBlocksSkipped(t *testing.T) {
	b := layout.NewDocumentBuilder()
	page := b.AddPage(1, 600, 800)
	b.AddBlock(page, []layout.Token{tok("@IMAGE", 0, 0), tok(" ", 30, 0), tok("fig1.png", 35, 0)}, layout.BoundingBox{})
	b.AddBlock(page, []layout.Token{tok("Texte", 10, 100)}, layout.BoundingBox{})
	doc := b.Build()

	res, err := NewFullTextBuilder(nil).Build(doc, doc.WholeDocument())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Texte", res.Records[0].Text)
	assert.Equal(t, BlockStart, res.Records[0].BlockStatus)
}

func TestFullTextBuilder_NoData(t *testing.T) {
	builder := NewFullTextBuilder(nil)

	res, err := builder.Build(twoBlockDocument(), nil)
	assert.NoError(t, err)
	assert.Nil(t, res)

	res, err = builder.Build(&layout.Document{}, layout.Pieces{{}})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestFullTextBuilder_PieceOutOfRange(t *testing.T) {
	doc := twoBlockDocument()
	_, err := NewFullTextBuilder(nil).Build(doc, layout.Pieces{{
		Left:  layout.Pointer{BlockPtr: 0},
		Right: layout.Pointer{BlockPtr: 9},
	}})
	require.Error(t, err)
	assert.True(t, mrerrors.IsType(err, mrerrors.ErrorTypeInvalidInput))
}

func TestFullTextVector_String(t *testing.T) {
	v := &FullTextVector{
		Text:            "2021",
		Label:           "<paragraph>",
		LineStatus:      LineIn,
		BlockStatus:     BlockIn,
		AlignmentStatus: AlignedLeft,
		FontStatus:      SameFont,
		FontSize:        SameFontSize,
		Capitalisation:  AllCap,
		Digit:           AllDigit,
		PunctType:       NoPunct,
		Italic:          true,

		RelativeDocumentPosition: 3,
		RelativePagePositionChar: 4,
		RelativePagePosition:     5,
		SpacingWithPreviousBlock: 1,
		CharacterDensity:         2,
	}
	assert.Equal(t,
		"2021 2021 2 20 202 2021 1 21 021 2021 BLOCKIN LINEIN ALIGNEDLEFT SAMEFONT SAMEFONTSIZE 0 1 NOCAPS ALLDIGIT 0 NOPUNCT 3 4 5 0 0 1 2 0 <paragraph>\n",
		v.String())

	v.Label = ""
	assert.True(t, strings.HasSuffix(v.String(), " 0\n"))
	assert.Equal(t, "", (&FullTextVector{}).String())
}
