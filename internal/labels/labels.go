// Package labels defines the closed set of tags produced by the medical
// report models and parses tagger output into labeled lines.
package labels

import (
	"strings"
)

// Tag is a model label without its begin marker.
type Tag int

const (
	TagNone Tag = iota
	TagOther
	TagParagraph
	TagTable
	TagTableMarker
	TagFigure
	TagFigureMarker
	TagTitle
	TagSection
	TagSubsection
	TagHeadnote
	TagFootnote
	TagItem

	// header model tags
	TagDateline
	TagMedic
	TagPatient
	TagAffiliation
	TagAddress
	TagOrg
	TagEmail
	TagPhone
	TagFax
	TagWeb
	TagDate
	TagPageRange
	TagDocNum
	TagDocType
	TagNote

	// TagUnknown is any label outside the closed set. Its text is kept on
	// the Label.
	TagUnknown
)

// BeginPrefix marks the first token of a new instance of a tag.
const BeginPrefix = "I-"

var tagNames = map[Tag]string{
	TagOther:        "<other>",
	TagParagraph:    "<paragraph>",
	TagTable:        "<table>",
	TagTableMarker:  "<table_marker>",
	TagFigure:       "<figure>",
	TagFigureMarker: "<figure_marker>",
	TagTitle:        "<title>",
	TagSection:      "<section>",
	TagSubsection:   "<subsection>",
	TagHeadnote:     "<headnote>",
	TagFootnote:     "<footnote>",
	TagItem:         "<item>",
	TagDateline:     "<dateline>",
	TagMedic:        "<medic>",
	TagPatient:      "<patient>",
	TagAffiliation:  "<affiliation>",
	TagAddress:      "<address>",
	TagOrg:          "<org>",
	TagEmail:        "<email>",
	TagPhone:        "<phone>",
	TagFax:          "<fax>",
	TagWeb:          "<web>",
	TagDate:         "<date>",
	TagPageRange:    "<page_range>",
	TagDocNum:       "<docnum>",
	TagDocType:      "<doctype>",
	TagNote:         "<note>",
}

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for t, n := range tagNames {
		m[n] = t
	}
	return m
}()

// String returns the tag as written by the models, "<paragraph>" for
// example. TagNone and TagUnknown have no model name.
func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	if t == TagUnknown {
		return "<unknown>"
	}
	return ""
}

// IsMarker reports whether the tag is an inline reference marker, which may
// sit inside a span of another tag without breaking it.
func (t Tag) IsMarker() bool {
	return t == TagFigureMarker || t == TagTableMarker
}

// ParseTag maps a model name such as "<title>" to its tag.
func ParseTag(name string) Tag {
	if t, ok := tagsByName[name]; ok {
		return t
	}
	if name == "" || name == "0" {
		return TagNone
	}
	return TagUnknown
}

// Label is a tag plus the begin flag carried by the "I-" prefix.
type Label struct {
	Tag   Tag
	Begin bool
	name  string // base text of an unknown tag
}

// Parse reads a label such as "I-<paragraph>" or "<other>".
func Parse(s string) Label {
	s = strings.TrimSpace(s)
	begin := strings.HasPrefix(s, BeginPrefix)
	base := strings.TrimPrefix(s, BeginPrefix)
	tag := ParseTag(base)
	l := Label{Tag: tag, Begin: begin}
	if tag == TagUnknown {
		l.name = base
	}
	return l
}

// New returns a known label.
func New(tag Tag, begin bool) Label {
	return Label{Tag: tag, Begin: begin}
}

// Base returns the label text without the begin prefix.
func (l Label) Base() string {
	if l.Tag == TagUnknown {
		return l.name
	}
	return l.Tag.String()
}

// String returns the label as written by the models.
func (l Label) String() string {
	if l.Tag == TagNone {
		return ""
	}
	if l.Begin {
		return BeginPrefix + l.Base()
	}
	return l.Base()
}

// SameBase reports whether two labels carry the same tag, ignoring the
// begin flag.
func (l Label) SameBase(o Label) bool {
	return l.Tag == o.Tag && (l.Tag != TagUnknown || l.name == o.name)
}

// IsNone reports whether the label is absent.
func (l Label) IsNone() bool {
	return l.Tag == TagNone
}
