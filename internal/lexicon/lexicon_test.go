package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-medreport/internal/layout"
)

func toks(parts ...string) []layout.Token {
	out := make([]layout.Token, len(parts))
	for i, p := range parts {
		out[i] = layout.Token{Text: p}
	}
	return out
}

func TestDefault(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.True(t, lex.IsMonth("Janvier"))
	assert.True(t, lex.IsMonth("DÉCEMBRE"))
	assert.False(t, lex.IsMonth("lundi"))
	assert.True(t, lex.IsCountry("france"))
	assert.True(t, lex.IsCity("Paris"))
	assert.False(t, lex.IsCity("Patient"))
	assert.True(t, lex.IsYear("2019"))
	assert.True(t, lex.IsYear("12/03/1987"))
	assert.False(t, lex.IsYear("387"))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cities:\n  - Quimper\ntitles:\n  - Dr\n"), 0o600))

	lex, err := Load(path)
	require.NoError(t, err)
	assert.True(t, lex.IsCity("QUIMPER"))
	assert.False(t, lex.IsCity("Paris"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("months: [unterminated"))
	assert.Error(t, err)
}

func TestTokenPositions_MultiWord(t *testing.T) {
	lex := MustDefault()
	tokens := toks("Hôpital", " ", "de", " ", "Pays", " ", "de", " ", "la", " ", "Loire", ",", " ", "Paris")

	positions := lex.TokenPositionsLocationNames(tokens)
	require.Len(t, positions, 2)
	assert.Equal(t, OffsetPosition{Start: 4, End: 10}, positions[0])
	assert.Equal(t, OffsetPosition{Start: 13, End: 13}, positions[1])
}

func TestTokenPositions_Titles(t *testing.T) {
	lex := MustDefault()
	tokens := toks("Dr", ".", " ", "Martin", " ", "Jr", ".")

	titles := lex.TokenPositionsPersonTitle(tokens)
	require.Len(t, titles, 1)
	assert.Equal(t, OffsetPosition{Start: 0, End: 1}, titles[0])

	suffixes := lex.TokenPositionsPersonSuffix(tokens)
	require.Len(t, suffixes, 1)
	assert.Equal(t, OffsetPosition{Start: 5, End: 6}, suffixes[0])
}

func TestTokenPositions_Patterns(t *testing.T) {
	lex := MustDefault()
	tokens := toks("contact", " ", "jean", ".", "dupont", "@", "chu", "-", "lyon", ".", "fr", " ", "ou", " ",
		"https", ":", "/", "/", "www", ".", "chu", ".", "fr")

	emails := lex.TokenPositionsEmailPattern(tokens)
	require.Len(t, emails, 1)
	assert.Equal(t, OffsetPosition{Start: 2, End: 10}, emails[0])

	urls := lex.TokenPositionsURLPattern(tokens)
	require.Len(t, urls, 1)
	assert.Equal(t, OffsetPosition{Start: 14, End: 22}, urls[0])
}

func TestInLexicon(t *testing.T) {
	positions := []OffsetPosition{{Start: 2, End: 4}, {Start: 8, End: 8}}

	tests := []struct {
		pos  int
		want bool
	}{
		{0, false},
		{2, true},
		{4, true},
		{5, false},
		{8, true},
		{9, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InLexicon(positions, tt.pos), "position %d", tt.pos)
	}
	assert.False(t, InLexicon(nil, 0))
}
