package lexicon

import (
	"regexp"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/layout"
)

// OffsetPosition is an inclusive range of token indices.
type OffsetPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"]+[^\s<>".,;:)]`)
)

// TokenPositionsLocationNames returns the token spans matching a location,
// country or city entry.
func (l *Lexicon) TokenPositionsLocationNames(tokens []layout.Token) []OffsetPosition {
	return l.locations.match(tokens)
}

// TokenPositionsPersonTitle returns the token spans matching a person title.
func (l *Lexicon) TokenPositionsPersonTitle(tokens []layout.Token) []OffsetPosition {
	return l.titles.match(tokens)
}

// TokenPositionsPersonSuffix returns the token spans matching a name suffix.
func (l *Lexicon) TokenPositionsPersonSuffix(tokens []layout.Token) []OffsetPosition {
	return l.suffixes.match(tokens)
}

// TokenPositionsEmailPattern returns the token spans covered by an email address.
func (l *Lexicon) TokenPositionsEmailPattern(tokens []layout.Token) []OffsetPosition {
	return patternPositions(emailPattern, tokens)
}

// TokenPositionsURLPattern returns the token spans covered by a URL.
func (l *Lexicon) TokenPositionsURLPattern(tokens []layout.Token) []OffsetPosition {
	return patternPositions(urlPattern, tokens)
}

// InLexicon reports whether the token index falls inside one of the sorted
// positions. The scan stops at the first position starting after the index.
func InLexicon(positions []OffsetPosition, current int) bool {
	for _, p := range positions {
		if current >= p.Start && current <= p.End {
			return true
		}
		if current < p.Start {
			return false
		}
	}
	return false
}

// match finds the longest entry starting at each non-space token. Matches do
// not overlap; scanning resumes after the end of a match.
func (idx *phraseIndex) match(tokens []layout.Token) []OffsetPosition {
	var out []OffsetPosition

	// indices of the word tokens, whitespace excluded
	var wordIdx []int
	var norms []string
	for i, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		wordIdx = append(wordIdx, i)
		norms = append(norms, Normalize(t.Text))
	}

	for w := 0; w < len(norms); {
		best := 0
		for _, entry := range idx.byFirst[norms[w]] {
			if len(entry) <= best || w+len(entry) > len(norms) {
				continue
			}
			ok := true
			for k := range entry {
				if norms[w+k] != entry[k] {
					ok = false
					break
				}
			}
			if ok {
				best = len(entry)
			}
		}
		if best == 0 {
			w++
			continue
		}
		out = append(out, OffsetPosition{Start: wordIdx[w], End: wordIdx[w+best-1]})
		w += best
	}
	return out
}

func patternPositions(re *regexp.Regexp, tokens []layout.Token) []OffsetPosition {
	var sb strings.Builder
	starts := make([]int, len(tokens))
	for i, t := range tokens {
		starts[i] = sb.Len()
		sb.WriteString(t.Text)
	}
	text := sb.String()

	var out []OffsetPosition
	for _, m := range re.FindAllStringIndex(text, -1) {
		first, last := -1, -1
		for i, s := range starts {
			end := s + len(tokens[i].Text)
			if end <= m[0] || s >= m[1] {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first >= 0 {
			out = append(out, OffsetPosition{Start: first, End: last})
		}
	}
	return out
}
