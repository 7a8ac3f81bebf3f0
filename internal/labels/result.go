package labels

import (
	"strings"
)

// LineStartFeature flags a record that opens a visual line.
const LineStartFeature = "LINESTART"

// Line is one labeled record of tagger output: the token in the first field,
// the label in the last one and the features in between.
type Line struct {
	Raw       string
	Token     string
	Features  []string
	Label     Label
	Labeled   bool
	LineStart bool
}

// FeatureRow returns the record without its trailing label field.
func (l Line) FeatureRow() string {
	if !l.Labeled {
		return strings.TrimSpace(l.Raw)
	}
	row := strings.TrimRight(l.Raw, " \t\r")
	if i := strings.LastIndexAny(row, " \t"); i >= 0 {
		return row[:i]
	}
	return row
}

// ParseResult splits tagger output into labeled lines. Blank lines separate
// sequences and are dropped. A record made of a single field has no label.
func ParseResult(result string) []Line {
	var out []Line
	for _, raw := range strings.Split(result, "\n") {
		raw = strings.TrimRight(raw, "\r")
		fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == '\t' })
		if len(fields) == 0 {
			continue
		}
		line := Line{Raw: raw, Token: fields[0]}
		if len(fields) > 1 {
			line.Labeled = true
			line.Label = Parse(fields[len(fields)-1])
			line.Features = fields[1 : len(fields)-1]
			for _, f := range line.Features {
				if f == LineStartFeature {
					line.LineStart = true
					break
				}
			}
		}
		out = append(out, line)
	}
	return out
}

// Labels returns one label string per record of result, the format expected
// by the training file writers.
func Labels(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Label.String()
	}
	return out
}
