package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-medreport/internal/lexicon"
)

func strp(s string) *string { return &s }

func TestDatelineBuilder_Build(t *testing.T) {
	lines := []*string{
		strp("Paris <dateline>"),
		strp(NewlineMarker),
		strp("le <date>"),
		strp("12 <date>"),
		strp("mars <date>"),
		strp("2021 <date>"),
		nil,
	}

	out := NewDatelineBuilder(lexicon.MustDefault()).Build(lines)
	records := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, records, 6)
	assert.Equal(t, "Paris paris P Pa Par Pari s is ris aris LINESTART INITCAP NODIGIT 0 0 0 0 1 NOPUNCT Xxxx <dateline>", records[0])
	assert.Equal(t, "le le l le le le e le le le LINESTART NOCAPS NODIGIT 0 0 0 0 0 NOPUNCT xx <date>", records[1])
	assert.Equal(t, "12 12 1 12 12 12 2 12 12 12 LINEIN NOCAPS ALLDIGIT 0 0 0 0 0 NOPUNCT dd <date>", records[2])
	assert.Equal(t, "mars mars m ma mar mars s rs ars mars LINEIN NOCAPS NODIGIT 0 0 1 0 0 NOPUNCT xxxx <date>", records[3])
	assert.Equal(t, "2021 2021 2 20 202 2021 1 21 021 2021 LINEIN NOCAPS ALLDIGIT 0 1 0 0 0 NOPUNCT dddd <date>", records[4])
	// the nil separator
	assert.Equal(t, " ", records[5])
}

func TestDatelineBuilder_LineEnds(t *testing.T) {
	lines := []*string{
		strp("Lyon <dateline>"),
		strp(", <dateline>"),
		strp(NewlineMarker),
		strp("le <date>"),
		strp(""),
		strp("3 <date>"),
	}
	out := NewDatelineBuilder(lexicon.MustDefault()).Build(lines)

	var statuses []string
	for _, l := range strings.Split(out, "\n") {
		f := strings.Fields(l)
		if len(f) > 10 {
			statuses = append(statuses, f[0]+"/"+f[10])
		}
	}
	assert.Equal(t, []string{
		"Lyon/" + LineStart,
		",/" + LineEnd,
		"le/" + LineStart,
		"3/" + LineStart,
	}, statuses)
	assert.Contains(t, out, "\n \n")
}

func TestDatelineBuilder_UnlabeledLine(t *testing.T) {
	out := NewDatelineBuilder(nil).Build([]*string{strp("Juin")})
	assert.True(t, strings.HasSuffix(out, " 0\n"))
	// no lexicon, no lexical flags
	assert.Contains(t, out, "LINESTART INITCAP NODIGIT 0 0 0 0 0")
}

func TestDatelineLines(t *testing.T) {
	lines := DatelineLines("Paris <dateline>\n\nle <date>")
	require.Len(t, lines, 3)
	assert.Equal(t, "Paris <dateline>", *lines[0])
	assert.Nil(t, lines[1])
	assert.Equal(t, "le <date>", *lines[2])
}
