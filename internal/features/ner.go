package features

import (
	"strings"
	"unicode/utf8"

	mrerrors "github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/lexicon"
)

// NERVector is the feature record of one token of the medical NER model.
type NERVector struct {
	Text           string
	Label          string
	LineStatus     string
	Capitalisation string
	Digit          string
	PunctType      string
	WordShape      string
	SingleChar     bool
	Location       bool
	Title          bool
	Suffix         bool
	Email          bool
	URL            bool
}

// String serialises the record as one whitespace separated line.
func (v *NERVector) String() string {
	if v.Text == "" {
		return ""
	}
	var sb strings.Builder
	writeLexical(&sb, v.Text)
	sb.WriteByte(' ')
	sb.WriteString(v.LineStatus)
	writeCapsDigit(&sb, v.Capitalisation, v.Digit)
	for _, f := range []bool{v.SingleChar, v.Location, v.Title, v.Suffix, v.Email, v.URL} {
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

// NERBuilder featurises one tokenized sequence for the NER model.
type NERBuilder struct {
	lex *lexicon.Lexicon
}

// NewNERBuilder creates a builder backed by lex.
func NewNERBuilder(lex *lexicon.Lexicon) *NERBuilder {
	return &NERBuilder{lex: lex}
}

// Build featurises tokens. labels is either nil (unlabeled input) or holds
// one label per token; whitespace tokens produce no record and their labels
// are ignored. Offsets are recomputed before matching the lexicon.
func (b *NERBuilder) Build(tokens []layout.Token, labels []string) (string, error) {
	if len(tokens) == 0 {
		return "", nil
	}
	if labels != nil && len(labels) != len(tokens) {
		return "", mrerrors.Newf(mrerrors.ErrorTypeInvalidInput,
			"%d labels for %d tokens", len(labels), len(tokens))
	}
	tokens = layout.RecomputeOffsets(tokens)

	locations := b.lex.TokenPositionsLocationNames(tokens)
	titles := b.lex.TokenPositionsPersonTitle(tokens)
	suffixes := b.lex.TokenPositionsPersonSuffix(tokens)
	emails := b.lex.TokenPositionsEmailPattern(tokens)
	urls := b.lex.TokenPositionsURLPattern(tokens)

	var sb strings.Builder
	newline := true
	seen := false
	for i, tok := range tokens {
		if layout.IsNewline(tok.Text) {
			newline = true
			continue
		}
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}

		v := &NERVector{
			Text:           text,
			PunctType:      PunctType(text),
			SingleChar:     utf8.RuneCountInString(text) == 1,
			Capitalisation: Capitalisation(text),
			Digit:          Digit(text),
			WordShape:      WordShape(text),
			Location:       lexicon.InLexicon(locations, i),
			Title:          lexicon.InLexicon(titles, i),
			Suffix:         lexicon.InLexicon(suffixes, i),
			Email:          lexicon.InLexicon(emails, i),
			URL:            lexicon.InLexicon(urls, i),
		}
		if labels != nil {
			v.Label = labels[i]
		}

		switch {
		case newline || !seen:
			v.LineStatus = LineStart
		case endsLine(tokens, i):
			v.LineStatus = LineEnd
		default:
			v.LineStatus = LineIn
		}
		newline = false
		seen = true

		sb.WriteString(v.String())
	}
	return sb.String(), nil
}

// endsLine reports whether no word token follows tokens[i] before the next
// line break or the end of the sequence.
func endsLine(tokens []layout.Token, i int) bool {
	for _, next := range tokens[i+1:] {
		if layout.IsNewline(next.Text) {
			return true
		}
		if strings.TrimSpace(next.Text) != "" {
			return false
		}
	}
	return true
}
