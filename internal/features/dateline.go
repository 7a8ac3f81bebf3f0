package features

import (
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-medreport/internal/lexicon"
)

// NewlineMarker separates two lines in dateline training input.
const NewlineMarker = "@newline"

// DatelineVector is the feature record of one dateline token.
type DatelineVector struct {
	Text           string
	Label          string
	LineStatus     string
	Capitalisation string
	Digit          string
	PunctType      string
	WordShape      string
	SingleChar     bool
	Year           bool
	Month          bool
	Country        bool
	City           bool
}

// String serialises the record as one whitespace separated line.
func (v *DatelineVector) String() string {
	if v.Text == "" {
		return ""
	}
	var sb strings.Builder
	writeLexical(&sb, v.Text)
	sb.WriteByte(' ')
	sb.WriteString(v.LineStatus)
	writeCapsDigit(&sb, v.Capitalisation, v.Digit)
	for _, f := range []bool{v.SingleChar, v.Year, v.Month, v.Country, v.City} {
		sb.WriteByte(' ')
		sb.WriteString(boolField(f))
	}
	sb.WriteByte(' ')
	sb.WriteString(v.PunctType)
	sb.WriteByte(' ')
	sb.WriteString(v.WordShape)
	writeLabel(&sb, v.Label)
	return sb.String()
}

// DatelineBuilder featurises dateline training lines.
type DatelineBuilder struct {
	lex *lexicon.Lexicon
}

// NewDatelineBuilder creates a builder backed by lex.
func NewDatelineBuilder(lex *lexicon.Lexicon) *DatelineBuilder {
	return &DatelineBuilder{lex: lex}
}

// Build featurises lines of the form "token label". A nil line is a sequence
// separator and emits " \n", an empty line emits "\n \n", and NewlineMarker
// starts a new line. A line without a label gets the 0 label.
func (b *DatelineBuilder) Build(lines []*string) string {
	var sb strings.Builder
	newline := true

	for n, raw := range lines {
		if raw == nil {
			sb.WriteString(" \n")
			newline = true
			continue
		}
		line := strings.TrimSpace(*raw)
		if line == "" {
			sb.WriteString("\n \n")
			newline = true
			continue
		}
		if line == NewlineMarker {
			newline = true
			continue
		}

		text, tag, _ := strings.Cut(line, " ")
		v := &DatelineVector{
			Text:      text,
			Label:     tag,
			PunctType: PunctType(text),
		}

		switch {
		case newline:
			v.LineStatus = LineStart
		case n == 0:
			v.LineStatus = LineStart
		case n == len(lines)-1:
			v.LineStatus = LineEnd
		default:
			v.LineStatus = LineIn
			for _, next := range lines[n+1:] {
				if next == nil {
					continue
				}
				trimmed := strings.TrimSpace(*next)
				if trimmed == "" || *next == NewlineMarker {
					v.LineStatus = LineEnd
				}
				break
			}
		}
		newline = false

		v.SingleChar = utf8.RuneCountInString(text) == 1
		v.Capitalisation = Capitalisation(text)
		v.Digit = Digit(text)
		v.WordShape = WordShape(text)
		if b.lex != nil {
			v.Month = b.lex.IsMonth(text)
			v.Year = b.lex.IsYear(text)
			v.Country = b.lex.IsCountry(text)
			v.City = b.lex.IsCity(text)
		}

		sb.WriteString(v.String())
	}
	return sb.String()
}

// DatelineLines turns the text of a dateline training file into builder
// input: blank lines become nil separators.
func DatelineLines(text string) []*string {
	var out []*string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			out = append(out, nil)
			continue
		}
		out = append(out, &l)
	}
	return out
}
