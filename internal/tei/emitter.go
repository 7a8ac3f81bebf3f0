// Package tei turns labeled full text into TEI training markup.
package tei

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

// indent precedes every freshly opened block element.
const indent = "\t\t\t"

type element struct {
	open  string
	close string
}

var elements = map[labels.Tag]element{
	labels.TagOther:        {`<note type="other">`, "</note>\n\n"},
	labels.TagParagraph:    {`<p>`, "</p>\n\n"},
	labels.TagTable:        {`<figure type="table">`, "</figure>\n\n"},
	labels.TagTableMarker:  {`<ref type="table">`, "</ref>"},
	labels.TagFigure:       {`<figure>`, "</figure>\n\n"},
	labels.TagFigureMarker: {`<ref type="figure">`, "</ref>"},
	labels.TagTitle:        {`<title>`, "</title>\n"},
	labels.TagSection:      {`<head level="1">`, "</head>\n\n"},
	labels.TagSubsection:   {`<head level="2">`, "</head>\n\n"},
	labels.TagHeadnote:     {`<note place="headnote">`, "</note>\n\n"},
	labels.TagFootnote:     {`<note place="footnote">`, "</note>\n\n"},
	labels.TagItem:         {`<item>`, "</item>\n\n"},
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Escape encodes the XML special characters of a token.
func Escape(s string) string {
	return xmlEscaper.Replace(s)
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithIDs adds an xml:id attribute to every opened element. gen returns the
// identifier; nil selects random seven character identifiers.
func WithIDs(gen func() string) Option {
	return func(e *Emitter) {
		if gen == nil {
			gen = randomID
		}
		e.ids = gen
	}
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

// Emitter converts tagger output of the full text model into TEI body
// markup. It holds no per-call state and may be shared between goroutines.
type Emitter struct {
	logger *zap.Logger
	ids    func() string
}

// NewEmitter creates an emitter. A nil logger disables logging.
func NewEmitter(logger *zap.Logger, opts ...Option) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emitter{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// emission is the running state of one Emit call. open is the block element
// in progress and marker the inline reference open inside it, if any.
type emission struct {
	sb     strings.Builder
	ids    func() string
	open   *labels.Label
	marker *labels.Label
	opened int
	closed int
}

// Emit walks result, one labeled record per line, against the tokenization
// the features were built from and returns the TEI fragment. Every element
// opened is closed before the fragment ends.
func (e *Emitter) Emit(result string, tokens []layout.Token) string {
	st := &emission{ids: e.ids}

	lines := labels.ParseResult(result)
	var current *labels.Label
	p := 0
	start := true
	desyncs := 0

	for _, line := range lines {
		addSpace, newLine := false, false

		p0 := p
		found := false
		for !found && p < len(tokens) {
			switch text := tokens[p].Text; {
			case text == " " || text == "\u00a0":
				addSpace = true
			case text == "\n":
				newLine = true
			case text == line.Token:
				found = true
			}
			p++
		}
		if p == len(tokens) && p-p0 > 2 {
			// lost synchronisation, the next record starts from here again
			p = p0
			desyncs++
		}
		if line.LineStart {
			newLine = true
		}

		if newLine && !start {
			st.sb.WriteString("<lb/>")
		}
		start = false

		// a record without label continues the previous one
		if line.Labeled {
			l := line.Label
			current = &l
		}
		if current == nil {
			continue
		}
		st.write(*current, Escape(line.Token), addSpace)
	}
	st.flush()

	if desyncs > 0 {
		e.logger.Warn("tokenization drift while emitting TEI",
			zap.Int("desyncs", desyncs),
			zap.Int("records", len(lines)))
	}
	if st.opened != st.closed {
		e.logger.Error("unbalanced TEI emission",
			zap.Int("opened", st.opened),
			zap.Int("closed", st.closed))
	}
	return st.sb.String()
}

func (st *emission) write(cur labels.Label, text string, addSpace bool) {
	space := ""
	if addSpace {
		space = " "
	}

	if cur.Tag.IsMarker() {
		switch {
		case st.marker != nil && st.marker.SameBase(cur):
			st.sb.WriteString(space + text)
			return
		case st.marker != nil:
			st.closeMarker()
		}
		st.sb.WriteString(space + st.openTag(cur.Tag) + text)
		st.marker = &cur
		return
	}

	if st.marker != nil {
		st.closeMarker()
		// the element around the marker goes on, whatever the begin flag
		if st.open != nil && st.open.SameBase(cur) {
			st.sb.WriteString(space + text)
			return
		}
		st.closeOpen()
	} else if st.open != nil {
		restart := cur.Begin && (cur.Tag == labels.TagParagraph || cur.Tag == labels.TagItem)
		if st.open.SameBase(cur) && !restart {
			st.sb.WriteString(space + text)
			return
		}
		st.closeOpen()
	}

	if _, ok := elements[cur.Tag]; !ok {
		// tags outside the body model are dropped
		return
	}
	st.sb.WriteString(indent + st.openTag(cur.Tag) + text)
	st.open = &cur
}

func (st *emission) openTag(tag labels.Tag) string {
	st.opened++
	open := elements[tag].open
	if st.ids != nil {
		open = open[:len(open)-1] + ` xml:id="_` + st.ids() + `">`
	}
	return open
}

func (st *emission) closeMarker() {
	st.sb.WriteString(elements[st.marker.Tag].close)
	st.closed++
	st.marker = nil
}

func (st *emission) closeOpen() {
	if st.open == nil {
		return
	}
	st.sb.WriteString(elements[st.open.Tag].close)
	st.closed++
	st.open = nil
}

func (st *emission) flush() {
	if st.marker != nil {
		st.closeMarker()
	}
	st.closeOpen()
}
