package tei

import (
	"strings"

	"github.com/a3tai/mcp-medreport/internal/labels"
)

const (
	prolog  = "<?xml version=\"1.0\" ?>\n<tei xml:space=\"preserve\">\n"
	textTag = "\t<text xml:lang=\"fr\">\n"
	closing = "\n\t</text>\n</tei>\n"
)

// Header returns the TEI header naming the source document. An empty id
// yields an empty header element.
func Header(id string) string {
	if id == "" {
		return "\t<teiHeader/>\n"
	}
	return "\t<teiHeader>\n\t\t<fileDesc xml:id=\"" + Escape(id) + "\"/>\n\t</teiHeader>\n"
}

// Document wraps a body fragment into a complete TEI document.
func Document(id, body string) string {
	var sb strings.Builder
	sb.Grow(len(prolog) + len(body) + 128)
	sb.WriteString(prolog)
	sb.WriteString(Header(id))
	sb.WriteString(textTag)
	sb.WriteString(body)
	sb.WriteString(closing)
	return sb.String()
}

// SpansDocument writes figure or table spans as a TEI document, one element
// per span with line breaks marked.
func SpansDocument(id string, spans []Span, tag labels.Tag) string {
	open := `<figure`
	if tag == labels.TagTable {
		open = `<figure type="table"`
	}

	var body strings.Builder
	for _, s := range spans {
		body.WriteString("\t\t")
		body.WriteString(open)
		body.WriteString(` xml:id="` + Escape(s.ID) + `">`)
		text := strings.TrimRight(s.Text(), "\n ")
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			if i > 0 {
				body.WriteString("<lb/>")
			}
			body.WriteString(Escape(l))
		}
		body.WriteString("</figure>\n")
	}
	return Document(id, body.String())
}
