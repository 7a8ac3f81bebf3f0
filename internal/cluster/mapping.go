package cluster

import (
	"regexp"
	"strings"

	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// FullTextSequences returns the token sequences covered by the given tags.
// Marker clusters do not interrupt a sequence: when a requested tag resumes
// right after one or more markers, the markers and the resumed text join the
// running sequence. A begin label always starts a new sequence.
func FullTextSequences(clusters []*Cluster, tags ...labels.Tag) [][]layout.Token {
	wanted := make(map[labels.Tag]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}

	var (
		out        [][]layout.Token
		current    []layout.Token
		pending    []layout.Token // unrequested marker tokens inside the running sequence
		markerSeen bool
		lastTag    = labels.TagNone
	)
	for _, c := range clusters {
		if c == nil {
			continue
		}
		if c.Tag().IsMarker() {
			markerSeen = true
			if wanted[c.Tag()] {
				current = append(current, pending...)
				pending = nil
				current = append(current, c.Tokens...)
			} else if len(current) > 0 {
				pending = append(pending, c.Tokens...)
			}
			continue
		}

		resumes := markerSeen && c.Tag() == lastTag && !c.Label.Begin && len(current) > 0
		if resumes {
			current = append(current, pending...)
		} else if len(current) > 0 {
			out = append(out, current)
			current = nil
		}
		pending = nil
		markerSeen = false

		if wanted[c.Tag()] {
			current = append(current, c.Tokens...)
		}
		lastTag = c.Tag()
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// ResultMapping returns, per tag, the union of the tokens of its clusters in
// document order.
func ResultMapping(clusters []*Cluster) map[labels.Tag][]layout.Token {
	out := make(map[labels.Tag][]layout.Token)
	for _, c := range clusters {
		if c == nil {
			continue
		}
		out[c.Tag()] = append(out[c.Tag()], c.Tokens...)
	}
	return out
}

// MarkerType is the numbering style of figure and table callouts.
type MarkerType int

const (
	MarkerUnknown MarkerType = iota
	MarkerNumber
	MarkerRoman
	MarkerLetter
	MarkerSymbol
)

// String returns a string representation of the MarkerType
func (m MarkerType) String() string {
	switch m {
	case MarkerNumber:
		return "NUMBER"
	case MarkerRoman:
		return "ROMAN"
	case MarkerLetter:
		return "LETTER"
	case MarkerSymbol:
		return "SYMBOL"
	default:
		return "UNKNOWN"
	}
}

var (
	numberCallout = regexp.MustCompile(`^[0-9]+[a-z]?([,\-–][0-9]+[a-z]?)*$`)
	romanCallout  = regexp.MustCompile(`^(?i)[ivxlcdm]+([,\-–][ivxlcdm]+)*$`)
	letterCallout = regexp.MustCompile(`^[A-Za-z]([,\-–][A-Za-z])*$`)
	symbolCallout = regexp.MustCompile(`^[*†‡§¶#]+$`)
)

// CalloutType classifies the text of a marker. Words such as "Figure" or
// "Tableau" and enclosing brackets are ignored.
func CalloutType(text string) MarkerType {
	t := strings.TrimSpace(text)
	for _, prefix := range []string{"Figure", "figure", "Fig.", "fig.", "Fig", "fig", "Tableau", "tableau", "Table", "table", "Tab.", "tab.", "Tab", "tab"} {
		if strings.HasPrefix(t, prefix) {
			t = strings.TrimSpace(t[len(prefix):])
			break
		}
	}
	t = strings.Trim(t, "()[] .")
	switch {
	case t == "":
		return MarkerUnknown
	case numberCallout.MatchString(t):
		return MarkerNumber
	case romanCallout.MatchString(t):
		return MarkerRoman
	case letterCallout.MatchString(t):
		return MarkerLetter
	case symbolCallout.MatchString(t):
		return MarkerSymbol
	default:
		return MarkerUnknown
	}
}

// Callouts holds the majority callout style per marker category.
type Callouts struct {
	Figure MarkerType `json:"figure"`
	Table  MarkerType `json:"table"`
}

// MajorityCallouts computes the callout style used by most distinct figure
// and table markers. A marker text is counted once.
func MajorityCallouts(clusters []*Cluster) Callouts {
	counts := map[labels.Tag]map[MarkerType]int{
		labels.TagFigureMarker: {},
		labels.TagTableMarker:  {},
	}
	seen := map[labels.Tag]map[string]bool{
		labels.TagFigureMarker: {},
		labels.TagTableMarker:  {},
	}

	for _, c := range clusters {
		if c == nil || !c.Tag().IsMarker() {
			continue
		}
		refTokens := layout.Dehyphenize(c.Tokens)
		refText := layout.Text(refTokens)
		refText = strings.ReplaceAll(refText, "\n", "")
		refText = strings.ReplaceAll(refText, " ", "")
		if strings.TrimSpace(refText) == "" {
			continue
		}
		if seen[c.Tag()][refText] {
			continue
		}
		seen[c.Tag()][refText] = true
		counts[c.Tag()][CalloutType(refText)]++
	}

	return Callouts{
		Figure: bestType(counts[labels.TagFigureMarker]),
		Table:  bestType(counts[labels.TagTableMarker]),
	}
}

// bestType returns the most frequent type. Ties go to the type listed first.
func bestType(counts map[MarkerType]int) MarkerType {
	best, maxCount := MarkerUnknown, 0
	for _, t := range []MarkerType{MarkerNumber, MarkerRoman, MarkerLetter, MarkerSymbol, MarkerUnknown} {
		if counts[t] > maxCount {
			best, maxCount = t, counts[t]
		}
	}
	return best
}
