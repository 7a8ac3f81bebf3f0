// Package alignment attaches labels taken from annotated training text to
// freshly computed feature lines, tolerating drift between the two streams.
package alignment

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

// Defaults used by New.
const (
	DefaultLookahead              = 5
	DefaultMaxConsecutiveFailures = 20
	DefaultMaxInvalid             = 10
)

// Aligner matches raw feature lines against labeled "token label" lines.
type Aligner struct {
	// Lookahead bounds how far past the last match a token is searched.
	Lookahead int
	// MaxConsecutiveFailures aborts the alignment once exceeded.
	MaxConsecutiveFailures int
	// MaxInvalid is the number of trailing failures from which a document
	// is rejected.
	MaxInvalid int

	logger *zap.Logger
}

// Result holds the labeled feature lines of one document.
type Result struct {
	Lines []string `json:"lines"`
	// Matched lines found their token in the labeled stream.
	Matched int `json:"matched"`
	// Reused lines were given the previous label after a miss.
	Reused int `json:"reused"`
	// Dropped lines missed before any label was known.
	Dropped int `json:"dropped"`
	// Consecutive is the run of failures at the end of the document.
	Consecutive int  `json:"consecutive"`
	Accepted    bool `json:"accepted"`
}

// String returns the labeled lines as tagger training input.
func (r *Result) String() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.Join(r.Lines, "\n") + "\n"
}

// New returns an aligner with the default thresholds.
func New(logger *zap.Logger) *Aligner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aligner{
		Lookahead:              DefaultLookahead,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		MaxInvalid:             DefaultMaxInvalid,
		logger:                 logger,
	}
}

// Normalize applies NFKC and removes every space from a token.
func Normalize(token string) string {
	token = norm.NFKC.String(token)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0':
			return -1
		}
		return r
	}, token)
}

// Align appends to every raw line the label of the same token in labeled.
// Blank raw lines are kept as separators. A token missing from the labeled
// stream takes the previous label. Once more than MaxConsecutiveFailures
// lines in a row miss, alignment stops with a desync error and the partial
// result.
func (a *Aligner) Align(raw, labeled []string) (*Result, error) {
	logger := a.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &Result{}
	q := 0
	previous := ""
	invalid := 0

	for i, line := range raw {
		if strings.TrimSpace(line) == "" {
			res.Lines = append(res.Lines, "")
			continue
		}

		token := ""
		if head, _, ok := strings.Cut(line, " "); ok {
			token = Normalize(head)
		}

		matched := false
		for pp := q; pp < len(labeled) && token != ""; pp++ {
			fields := strings.Fields(labeled[pp])
			if len(fields) >= 2 && Normalize(fields[0]) == token {
				tag := fields[1]
				res.Lines = append(res.Lines, line+" "+tag)
				res.Matched++
				previous = tag
				q = pp + 1
				invalid = 0
				matched = true
				break
			}
			if pp-q > a.Lookahead {
				break
			}
		}

		if !matched {
			invalid++
			if previous != "" {
				res.Lines = append(res.Lines, line+" "+previous)
				res.Reused++
			} else {
				res.Dropped++
			}
			logger.Debug("feature line not found in labeled text",
				zap.Int("line", i+1),
				zap.String("token", token),
				zap.Int("consecutive", invalid))
		}

		if invalid > a.MaxConsecutiveFailures {
			res.Consecutive = invalid
			return res, errors.Newf(errors.ErrorTypeDesync,
				"%d consecutive unmatched lines", invalid).WithLine(i + 1)
		}
	}

	res.Consecutive = invalid
	res.Accepted = invalid < a.MaxInvalid
	if !res.Accepted {
		logger.Warn("too many synchronization issues, document rejected",
			zap.Int("consecutive", invalid))
	}
	return res, nil
}
