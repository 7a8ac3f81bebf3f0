package cluster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/a3tai/mcp-medreport/internal/labels"
	"github.com/a3tai/mcp-medreport/internal/layout"
)

func tokenize(text string) []layout.Token {
	var out []layout.Token
	for _, s := range layout.Tokenize(text) {
		out = append(out, layout.Token{Text: s})
	}
	return out
}

func result(rows ...string) string {
	return strings.Join(rows, "\n") + "\n"
}

const markedText = "Voir la figure 1. Suite\nTexte"

var markedResult = result(
	"Voir voir LINESTART <paragraph>",
	"la la LINEIN <paragraph>",
	"figure figure LINEIN <figure_marker>",
	"1 1 LINEIN <figure_marker>",
	". . LINEIN <paragraph>",
	"Suite suite LINEEND <paragraph>",
	"Texte texte LINESTART I-<paragraph>",
)

func texts(clusters []*Cluster) []string {
	out := make([]string, len(clusters))
	for i, c := range clusters {
		out[i] = c.Label.String() + "|" + c.Text()
	}
	return out
}

func TestClusteror_Cluster(t *testing.T) {
	tokens := tokenize(markedText)
	res := NewClusteror(zaptest.NewLogger(t), 0).Cluster(markedResult, tokens)

	assert.Zero(t, res.Desyncs)
	assert.Equal(t, []string{
		"<paragraph>|Voir la ",
		"<figure_marker>|figure 1",
		"<paragraph>|. Suite\n",
		"I-<paragraph>|Texte",
	}, texts(res.Clusters))

	// concatenated clusters give back the tokenization
	var all []layout.Token
	for _, c := range res.Clusters {
		all = append(all, c.Tokens...)
	}
	assert.Equal(t, tokens, all)

	assert.Equal(t, "figure figure LINEIN\n1 1 LINEIN\n", res.Clusters[1].FeatureBlock())
}

func TestClusteror_Desync(t *testing.T) {
	tokens := tokenize("alpha beta gamma")
	res := NewClusteror(nil, 0).Cluster(result(
		"alpha x <title>",
		"ghost x <title>",
		"beta x <title>",
		"gamma x <section>",
	), tokens)

	assert.Equal(t, 1, res.Desyncs)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "alpha beta ", res.Clusters[0].Text())
	assert.Equal(t, "gamma", res.Clusters[1].Text())
}

func TestClusteror_UnlabeledRecordsExtendCluster(t *testing.T) {
	tokens := tokenize("un deux trois")
	res := NewClusteror(nil, 0).Cluster(result(
		"un <item>",
		"deux",
		"trois <item>",
	), tokens)

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "un deux trois", res.Clusters[0].Text())
	assert.Len(t, res.Clusters[0].Lines, 3)
}

func TestFullTextSequences(t *testing.T) {
	res := NewClusteror(nil, 0).Cluster(markedResult, tokenize(markedText))

	seqs := FullTextSequences(res.Clusters, labels.TagParagraph)
	require.Len(t, seqs, 2)
	assert.Equal(t, "Voir la figure 1. Suite\n", layout.Text(seqs[0]))
	assert.Equal(t, "Texte", layout.Text(seqs[1]))

	markers := FullTextSequences(res.Clusters, labels.TagFigureMarker)
	require.Len(t, markers, 1)
	assert.Equal(t, "figure 1", layout.Text(markers[0]))

	assert.Empty(t, FullTextSequences(res.Clusters, labels.TagTitle))
}

func TestFullTextSequences_MarkerBeforeOtherTag(t *testing.T) {
	res := NewClusteror(nil, 0).Cluster(result(
		"Texte <paragraph>",
		"1 <table_marker>",
		"Titre <section>",
	), tokenize("Texte 1 Titre"))

	seqs := FullTextSequences(res.Clusters, labels.TagParagraph, labels.TagSection)
	require.Len(t, seqs, 2)
	assert.Equal(t, "Texte ", layout.Text(seqs[0]))
	assert.Equal(t, "Titre", layout.Text(seqs[1]))
}

func TestResultMapping(t *testing.T) {
	res := NewClusteror(nil, 0).Cluster(markedResult, tokenize(markedText))
	m := ResultMapping(res.Clusters)

	assert.Equal(t, "Voir la . Suite\nTexte", layout.Text(m[labels.TagParagraph]))
	assert.Equal(t, "figure 1", layout.Text(m[labels.TagFigureMarker]))
	assert.NotContains(t, m, labels.TagTable)
}

func TestCalloutType(t *testing.T) {
	cases := map[string]MarkerType{
		"(1)":     MarkerNumber,
		"Fig.2":   MarkerNumber,
		"1-3":     MarkerNumber,
		"figure1": MarkerNumber,
		"II":      MarkerRoman,
		"b":       MarkerLetter,
		"*":       MarkerSymbol,
		"Figure":  MarkerUnknown,
		"voir":    MarkerUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, CalloutType(in), in)
	}
}

func TestMajorityCallouts(t *testing.T) {
	text := "fig 1 fig 1 fig 2 fig II tab A"
	res := NewClusteror(nil, 0).Cluster(result(
		"fig I-<figure_marker>",
		"1 <figure_marker>",
		"fig I-<figure_marker>",
		"1 <figure_marker>",
		"fig I-<figure_marker>",
		"2 <figure_marker>",
		"fig I-<figure_marker>",
		"II <figure_marker>",
		"tab I-<table_marker>",
		"A <table_marker>",
	), tokenize(text))

	// fig 1 is counted once: two numbers against one roman
	got := MajorityCallouts(res.Clusters)
	assert.Equal(t, MarkerNumber, got.Figure)
	assert.Equal(t, MarkerLetter, got.Table)

	assert.Equal(t, Callouts{}, MajorityCallouts(nil))
	assert.Equal(t, "UNKNOWN", Callouts{}.Figure.String())
}
