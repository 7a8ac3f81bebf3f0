package features

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	mrerrors "github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// FullTextVector is the feature record of one token of the full text model.
type FullTextVector struct {
	Token layout.Token
	Text  string
	Label string

	LineStatus      string
	BlockStatus     string
	AlignmentStatus string
	FontStatus      string
	FontSize        string
	Capitalisation  string
	Digit           string
	PunctType       string

	SingleChar   bool
	Bold         bool
	Italic       bool
	Superscript  bool
	BitmapAround bool
	VectorAround bool

	RelativeDocumentPosition int
	RelativePagePositionChar int
	RelativePagePosition     int
	SpacingWithPreviousBlock int
	CharacterDensity         int
}

// String serialises the record as one whitespace separated line.
func (v *FullTextVector) String() string {
	if v.Text == "" {
		return ""
	}
	var sb strings.Builder
	writeLexical(&sb, v.Text)

	for _, f := range []string{v.BlockStatus, v.LineStatus, v.AlignmentStatus, v.FontStatus, v.FontSize} {
		sb.WriteByte(' ')
		sb.WriteString(f)
	}
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.Bold))
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.Italic))

	writeCapsDigit(&sb, v.Capitalisation, v.Digit)
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.SingleChar))
	sb.WriteByte(' ')
	sb.WriteString(v.PunctType)

	for _, bin := range []int{v.RelativeDocumentPosition, v.RelativePagePositionChar, v.RelativePagePosition} {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(bin))
	}
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.BitmapAround))
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.VectorAround))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(v.SpacingWithPreviousBlock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(v.CharacterDensity))
	sb.WriteByte(' ')
	sb.WriteString(boolField(v.Superscript))

	writeLabel(&sb, v.Label)
	return sb.String()
}

// FullTextResult is the output of FullTextBuilder.Build. Tokens is the
// tokenization walked by the builder, whitespace included, and Records holds
// one record per label-bearing token in the same order.
type FullTextResult struct {
	Features string
	Tokens   []layout.Token
	Records  []*FullTextVector
}

// FullTextBuilder builds layout-aware feature records. It holds no per-call
// state and may be shared between goroutines.
type FullTextBuilder struct {
	logger *zap.Logger
}

// NewFullTextBuilder creates a builder. A nil logger disables logging.
func NewFullTextBuilder(logger *zap.Logger) *FullTextBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FullTextBuilder{logger: logger}
}

// lookback holds the last record until the next one tells whether it closes
// a block. Records leave the window in token order.
type lookback struct {
	held    *FullTextVector
	records []*FullTextVector
	out     strings.Builder
}

// closeLine marks the held record as ending its line unless it starts one.
func (w *lookback) closeLine() {
	if w.held != nil && w.held.LineStatus != LineStart {
		w.held.LineStatus = LineEnd
	}
}

func (w *lookback) push(v *FullTextVector) {
	if w.held != nil {
		// the last character of a block can be a space or a line break, so the
		// block end is only known once the next block starts
		if v.BlockStatus == BlockStart && w.held.BlockStatus == BlockIn {
			w.held.BlockStatus = BlockEnd
			w.held.LineStatus = LineEnd
		}
		w.emit(w.held)
	}
	w.held = v
}

func (w *lookback) flush() {
	if w.held != nil {
		w.emit(w.held)
		w.held = nil
	}
}

func (w *lookback) emit(v *FullTextVector) {
	w.records = append(w.records, v)
	w.out.WriteString(v.String())
}

// fullTextState is the running state of one Build call.
type fullTextState struct {
	currentFont     string
	hasFont         bool
	currentFontSize int
	hasFontSize     bool

	mm          int // page position
	nn          int // document position
	lineStartX  float64
	indented    bool
	lowestPos   float64
	spacing     float64
	currentPage int
}

// Build featurises the tokens of doc covered by pieces. It returns nil
// without error when there is nothing to featurise: no pieces or a document
// without blocks. A piece pointing outside the document is an error.
func (b *FullTextBuilder) Build(doc *layout.Document, pieces layout.Pieces) (*FullTextResult, error) {
	if len(pieces) == 0 || doc == nil || len(doc.Blocks) == 0 {
		return nil, nil
	}
	pieces = pieces.Sorted()
	for _, p := range pieces {
		if p.Left.BlockPtr < 0 || p.Right.BlockPtr >= len(doc.Blocks) || p.Left.BlockPtr > p.Right.BlockPtr {
			return nil, mrerrors.Newf(mrerrors.ErrorTypeInvalidInput,
				"piece [%d, %d] outside of %d blocks", p.Left.BlockPtr, p.Right.BlockPtr, len(doc.Blocks))
		}
	}

	st := &fullTextState{lineStartX: math.NaN()}
	win := &lookback{}
	var walked []layout.Token

	fulltextLength := float64(doc.FullTextLength(pieces))
	pageLengths := doc.PageTextLengths(pieces)

	for _, piece := range pieces {
		dp1, dp2 := piece.Left, piece.Right
		for blockIndex := dp1.BlockPtr; blockIndex <= dp2.BlockPtr; blockIndex++ {
			block := &doc.Blocks[blockIndex]

			var pageHeight float64
			localPage := 0
			if block.Page != nil {
				pageHeight = block.Page.Height
				localPage = block.Page.Number
			}
			if localPage != st.currentPage {
				st.currentPage = localPage
				st.mm = 0
				st.lowestPos = 0
				st.spacing = 0
			}

			if st.lowestPos > block.Y {
				// vertical shift, usually a change of column
				st.spacing = doc.MaxBlockSpacing / 5.0
			} else {
				st.spacing = block.Y - st.lowestPos
			}

			localText := block.Text()
			if filterLine(localText) {
				continue
			}
			density := layout.CharacterDensity(block)

			graphicBitmap, graphicVector := false, false
			for _, g := range doc.ConnectedGraphics(blockIndex) {
				switch g.Type {
				case layout.GraphicBitmap:
					graphicBitmap = true
				case layout.GraphicVector, layout.GraphicVectorBox:
					graphicVector = true
				}
			}

			tokens := block.Tokens
			n := 0
			if blockIndex == dp1.BlockPtr {
				n = dp1.TokenBlockPos
			}
			lastPos := len(tokens)
			if blockIndex == dp2.BlockPtr {
				lastPos = dp2.TokenBlockPos + 1
				if lastPos > len(tokens) {
					b.logger.Warn("document pointer beyond block end",
						zap.Int("block", blockIndex),
						zap.Int("token", dp2.TokenBlockPos),
						zap.Int("block_tokens", len(tokens)))
					lastPos = len(tokens)
				}
			}

			var (
				newline         bool
				previousNewline bool
				endblock        bool
			)
			for n < lastPos {
				if blockIndex == dp2.BlockPtr && n > dp2.TokenDocPos-block.StartToken {
					break
				}

				token := tokens[n]
				walked = append(walked, token)

				text := token.Text
				if text == "" {
					n++
					continue
				}
				text = strings.ReplaceAll(text, " ", "")
				if text == "" {
					n++
					st.mm++
					st.nn++
					continue
				}
				if text == "\n" {
					newline = true
					previousNewline = true
					n++
					st.mm++
					st.nn++
					continue
				}
				newline = false

				text = strings.ReplaceAll(text, "\n", "")
				if filterLine(text) {
					n++
					continue
				}
				textLen := utf8.RuneCountInString(text)

				if previousNewline {
					newline = true
					previousNewline = false
					if win.held != nil {
						previousLineStartX := st.lineStartX
						st.lineStartX = token.X
						characterWidth := token.Width / float64(textLen)
						if !math.IsNaN(previousLineStartX) {
							// more than one character to the left ends the
							// indentation, more than one to the right starts it
							if previousLineStartX-st.lineStartX > characterWidth {
								st.indented = false
							} else if st.lineStartX-previousLineStartX > characterWidth {
								st.indented = true
							}
						}
					}
				}

				v := &FullTextVector{
					Token:        token,
					Text:         text,
					BitmapAround: graphicBitmap,
					VectorAround: graphicVector,
				}

				if newline {
					v.LineStatus = LineStart
					st.lineStartX = token.X
					win.closeLine()
				}

				v.PunctType = PunctType(text)
				if st.indented {
					v.AlignmentStatus = LineIndent
				} else {
					v.AlignmentStatus = AlignedLeft
				}

				switch {
				case n == 0:
					v.LineStatus = LineStart
					win.closeLine()
					st.lineStartX = token.X
					v.BlockStatus = BlockStart
				case n == len(tokens)-1:
					v.LineStatus = LineEnd
					previousNewline = true
					v.BlockStatus = BlockEnd
					endblock = true
				default:
					endline := false
					for ii := 1; n+ii < len(tokens); ii++ {
						next := tokens[n+ii].Text
						endloop := false
						if next == "\n" {
							endline = true
							endloop = true
						} else if next != "" && !strings.HasPrefix(next, layout.ImageMarker) &&
							!strings.HasPrefix(next, layout.PageMarker) {
							endloop = true
						}
						if n+ii == len(tokens)-1 {
							endblock = true
							endline = true
						}
						if endloop {
							break
						}
					}

					if !endline && !newline {
						v.LineStatus = LineIn
					} else if !newline {
						v.LineStatus = LineEnd
						previousNewline = true
					}

					if v.BlockStatus == "" {
						if endblock {
							v.BlockStatus = BlockEnd
						} else {
							v.BlockStatus = BlockIn
						}
					}
				}

				v.SingleChar = textLen == 1
				v.Capitalisation = Capitalisation(text)
				v.Digit = Digit(text)

				if !st.hasFont || st.currentFont != token.Font {
					st.currentFont = token.Font
					st.hasFont = true
					v.FontStatus = NewFont
				} else {
					v.FontStatus = SameFont
				}

				newFontSize := int(token.FontSize)
				switch {
				case !st.hasFontSize:
					st.currentFontSize = newFontSize
					st.hasFontSize = true
					v.FontSize = HigherFont
				case st.currentFontSize == newFontSize:
					v.FontSize = SameFontSize
				case st.currentFontSize < newFontSize:
					v.FontSize = HigherFont
					st.currentFontSize = newFontSize
				default:
					v.FontSize = LowerFont
					st.currentFontSize = newFontSize
				}

				v.Bold = token.Bold
				v.Italic = token.Italic
				v.Superscript = token.Superscript

				v.RelativeDocumentPosition = LinearScaling(float64(st.nn), fulltextLength, NbBinsPosition)
				v.RelativePagePositionChar = LinearScaling(float64(st.mm), float64(pageLengths[token.Page]), NbBinsPosition)
				v.RelativePagePosition = min(LinearScaling(token.Y, pageHeight, NbBinsPosition), NbBinsPosition)

				if st.spacing != 0 {
					v.SpacingWithPreviousBlock = LinearScaling(st.spacing-doc.MinBlockSpacing,
						doc.MaxBlockSpacing-doc.MinBlockSpacing, NbBinsSpace)
				}
				v.CharacterDensity = LinearScaling(density-doc.MinCharacterDensity,
					doc.MaxCharacterDensity-doc.MinCharacterDensity, NbBinsDensity)

				win.push(v)

				n++
				st.mm += textLen
				st.nn += textLen
			}
			st.lowestPos = block.Y + block.Height
		}
	}
	win.flush()

	return &FullTextResult{
		Features: win.out.String(),
		Tokens:   walked,
		Records:  win.records,
	}, nil
}

// filterLine reports whether a text is a layout placeholder or an image
// reference that must not be featurised.
func filterLine(text string) bool {
	if text == "" {
		return true
	}
	if layout.IsPlaceholder(text) {
		return true
	}
	for _, ext := range []string{".pbm", ".ppm", ".svg", ".jpg", ".png"} {
		if strings.Contains(text, ext) {
			return true
		}
	}
	return false
}
