// Package cluster groups a labeled token stream into runs of tokens sharing
// one tag.
package cluster

import (
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// DefaultWindow is the number of tokens searched ahead of the current
// position when a labeled token does not match the tokenization.
const DefaultWindow = 10

// Cluster is a maximal run of labeled records sharing one tag. Tokens is the
// exact token sub-sequence of the run, whitespace included.
type Cluster struct {
	Label  labels.Label
	Tokens []layout.Token
	Lines  []labels.Line
}

// Tag returns the tag of the cluster.
func (c *Cluster) Tag() labels.Tag {
	return c.Label.Tag
}

// Text returns the concatenated token text.
func (c *Cluster) Text() string {
	return layout.Text(c.Tokens)
}

// FeatureBlock returns the feature rows of the cluster without their labels.
func (c *Cluster) FeatureBlock() string {
	var sb strings.Builder
	for _, l := range c.Lines {
		sb.WriteString(l.FeatureRow())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Result is the output of one clustering pass.
type Result struct {
	Clusters []*Cluster
	// Desyncs counts labeled records whose token was not found in the
	// tokenization.
	Desyncs int
}

// Clusteror aligns tagger output with the tokenization it was computed on
// and groups it into clusters. It holds no per-call state.
type Clusteror struct {
	logger *zap.Logger
	window int
}

// NewClusteror creates a clusteror. A nil logger disables logging and a
// non-positive window selects DefaultWindow.
func NewClusteror(logger *zap.Logger, window int) *Clusteror {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Clusteror{logger: logger, window: window}
}

// Cluster groups result, the tagger output, over tokens. A new cluster starts
// when the tag changes or when a record carries the begin prefix. Records
// without a label extend the current cluster.
func (c *Clusteror) Cluster(result string, tokens []layout.Token) *Result {
	lines := labels.ParseResult(result)
	spans, desyncs := c.align(lines, tokens)

	res := &Result{Desyncs: desyncs}
	var cur *Cluster
	for i, line := range lines {
		if !line.Labeled || line.Label.IsNone() {
			if cur != nil {
				cur.Tokens = append(cur.Tokens, spans[i]...)
				cur.Lines = append(cur.Lines, line)
			}
			continue
		}
		if cur == nil || line.Label.Begin || !line.Label.SameBase(cur.Label) {
			cur = &Cluster{Label: line.Label}
			res.Clusters = append(res.Clusters, cur)
		}
		cur.Tokens = append(cur.Tokens, spans[i]...)
		cur.Lines = append(cur.Lines, line)
	}
	return res
}

// align returns, per line, the tokens it covers: the matching token, any
// token skipped to reach it and the whitespace that follows it. A line whose
// token cannot be found within the window covers nothing and the position is
// kept for the next line.
func (c *Clusteror) align(lines []labels.Line, tokens []layout.Token) ([][]layout.Token, int) {
	spans := make([][]layout.Token, len(lines))
	desyncs := 0
	p := 0
	for i, line := range lines {
		found := -1
		for k, seen := p, 0; k < len(tokens) && seen <= c.window; k++ {
			norm := normalize(tokens[k].Text)
			if norm == "" {
				continue
			}
			if norm == line.Token {
				found = k
				break
			}
			seen++
		}
		if found < 0 {
			desyncs++
			c.logger.Debug("labeled token not found in tokenization",
				zap.Int("line", i),
				zap.String("token", line.Token),
				zap.Int("position", p))
			continue
		}
		end := found + 1
		for end < len(tokens) && normalize(tokens[end].Text) == "" {
			end++
		}
		spans[i] = tokens[p:end]
		p = end
	}
	if desyncs > 0 {
		c.logger.Warn("tokenization drift while clustering",
			zap.Int("desyncs", desyncs),
			zap.Int("lines", len(lines)))
	}
	return spans, desyncs
}

// normalize reduces a token text to the form written in feature records.
func normalize(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", "")
	return s
}
