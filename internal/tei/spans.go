package tei

import (
	"strconv"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// Span is a figure or table region cut from labeled full text, ready to be
// written as training data for the dedicated figure and table models.
type Span struct {
	ID           string
	Tokens       []layout.Token
	FeatureBlock string
}

// Text returns the raw text of the span.
func (s Span) Text() string {
	return layout.Text(s.Tokens)
}

// FigureSpans extracts the figure regions of result. Identifiers are "Fig"
// followed by the ordinal of the region.
func FigureSpans(result string, tokens []layout.Token) []Span {
	return extractSpans(result, tokens, labels.TagFigure, "Fig")
}

// TableSpans extracts the table regions of result. Identifiers are "Tab"
// followed by the ordinal of the region.
func TableSpans(result string, tokens []layout.Token) []Span {
	return extractSpans(result, tokens, labels.TagTable, "Tab")
}

func extractSpans(result string, tokens []layout.Token, tag labels.Tag, prefix string) []Span {
	var (
		out     []Span
		spanTok []layout.Token
		block   strings.Builder
		open    bool
		nb      int
		p       int
	)

	emit := func() {
		spanTok = trimLeading(spanTok)
		if len(spanTok) > 0 {
			out = append(out, Span{
				ID:           prefix + strconv.Itoa(nb),
				Tokens:       spanTok,
				FeatureBlock: block.String(),
			})
		}
		spanTok = nil
		block.Reset()
	}

	for _, line := range labels.ParseResult(result) {
		var buffer []layout.Token
		p0 := p
		found := false
		for !found && p < len(tokens) {
			if open {
				spanTok = append(spanTok, tokens[p])
			}
			buffer = append(buffer, tokens[p])
			if strings.TrimSpace(tokens[p].Text) == line.Token {
				found = true
			}
			p++
		}
		if p == len(tokens) && p-p0 > 2 {
			p = p0
			continue
		}

		isTag := line.Labeled && line.Label.Tag == tag
		switch {
		case isTag && (!line.Label.Begin || !open):
			if !open {
				open = true
				spanTok = append(spanTok, buffer...)
			}
			block.WriteString(line.FeatureRow())
			block.WriteByte('\n')

		case isTag || open:
			// the tokens of the current record belong to what follows
			n := len(buffer)
			if n > len(spanTok) {
				n = len(spanTok)
			}
			spanTok = spanTok[:len(spanTok)-n]
			if p < len(tokens) {
				switch tokens[p].Text {
				case "\n", "\r", " ":
					spanTok = append(spanTok, tokens[p])
					p++
				}
			}
			emit()
			if isTag {
				// a begin label closes the previous region and opens the next
				spanTok = append(spanTok, buffer...)
				block.WriteString(line.FeatureRow())
				block.WriteByte('\n')
			} else {
				open = false
			}
			nb++
		}
	}
	if open {
		emit()
	}
	return out
}

func trimLeading(tokens []layout.Token) []layout.Token {
	for len(tokens) > 0 && (tokens[0].Text == "\n" || tokens[0].Text == " ") {
		tokens = tokens[1:]
	}
	return tokens
}
