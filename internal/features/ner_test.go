package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mrerrors "github.com/a3tai/mcp-medreport/internal/errors"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/lexicon"
)

func textTokens(text string) []layout.Token {
	var out []layout.Token
	for _, s := range layout.Tokenize(text) {
		out = append(out, layout.Token{Text: s})
	}
	return out
}

func TestNERBuilder_Build(t *testing.T) {
	tokens := textTokens("Dr Martin\nParis")
	require.Len(t, tokens, 5)
	labels := []string{"<medic>", "", "<medic>", "", "<address>"}

	out, err := NewNERBuilder(lexicon.MustDefault()).Build(tokens, labels)
	require.NoError(t, err)

	records := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, records, 3)
	assert.Equal(t, "Dr dr D Dr Dr Dr r Dr Dr Dr LINESTART INITCAP NODIGIT 0 0 1 0 0 0 NOPUNCT Xx <medic>", records[0])
	assert.Contains(t, records[1], " LINEEND ")
	assert.Contains(t, records[2], " LINESTART INITCAP NODIGIT 0 1 0 0 0 0 ")
	assert.True(t, strings.HasSuffix(records[2], " <address>"))
}

func TestNERBuilder_Patterns(t *testing.T) {
	tokens := textTokens("écrire à secretariat@chu-nantes.fr")
	out, err := NewNERBuilder(lexicon.MustDefault()).Build(tokens, nil)
	require.NoError(t, err)

	var emailFlags []string
	for _, l := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		f := strings.Fields(l)
		require.Len(t, f, 22, l)
		emailFlags = append(emailFlags, f[0]+"="+f[17])
	}
	assert.Equal(t, []string{"écrire=0", "à=0", "secretariat@chu=1", "-=1", "nantes=1", ".=1", "fr=1"}, emailFlags)
}

func TestNERBuilder_Errors(t *testing.T) {
	b := NewNERBuilder(lexicon.MustDefault())

	out, err := b.Build(nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, out)

	_, err = b.Build(textTokens("a b"), []string{"x"})
	require.Error(t, err)
	assert.True(t, mrerrors.IsType(err, mrerrors.ErrorTypeInvalidInput))
}
