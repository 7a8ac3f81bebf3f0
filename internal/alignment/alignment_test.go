package alignment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

func TestAligner_Align(t *testing.T) {
	raw := []string{
		"Bilan bilan LINESTART",
		"sanguin sanguin LINEIN",
		"",
		"ghost g LINEIN",
		"Fin fin LINEEND",
	}
	labeled := []string{
		"Bilan I-<section>",
		"sanguin\t<section>",
		"Fin <paragraph>",
	}

	res, err := New(zaptest.NewLogger(t)).Align(raw, labeled)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Bilan bilan LINESTART I-<section>",
		"sanguin sanguin LINEIN <section>",
		"",
		"ghost g LINEIN <section>",
		"Fin fin LINEEND <paragraph>",
	}, res.Lines)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 1, res.Reused)
	assert.Zero(t, res.Consecutive)
	assert.True(t, res.Accepted)
	assert.Equal(t, "Bilan bilan LINESTART I-<section>\n", (&Result{Lines: res.Lines[:1]}).String())
}

func TestAligner_NormalisesTokens(t *testing.T) {
	res, err := New(nil).Align([]string{"ﬁn x"}, []string{"fin <paragraph>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ﬁn x <paragraph>"}, res.Lines)
	assert.Equal(t, "fin", Normalize("f in"))
}

func TestAligner_MissBeforeAnyLabelIsDropped(t *testing.T) {
	res, err := New(nil).Align([]string{"nothing x", "a x"}, []string{"a <title>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a x <title>"}, res.Lines)
	assert.Equal(t, 1, res.Dropped)
}

func TestAligner_Lookahead(t *testing.T) {
	labeled := []string{"a <p>"}
	for i := 0; i < 8; i++ {
		labeled = append(labeled, fmt.Sprintf("x%d <p>", i))
	}
	labeled = append(labeled, "far <title>")

	res, err := New(nil).Align([]string{"a x", "far x"}, labeled)
	require.NoError(t, err)
	// "far" lies beyond the lookahead window and takes the previous label
	assert.Equal(t, []string{"a x <p>", "far x <p>"}, res.Lines)
	assert.Equal(t, 1, res.Reused)
}

func TestAligner_Abort(t *testing.T) {
	a := New(nil)
	a.MaxConsecutiveFailures = 2

	raw := []string{"a x", "b x", "c x", "d x", "e x"}
	res, err := a.Align(raw, []string{"a <p>"})
	require.Error(t, err)

	var perr *errors.ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrorTypeDesync, perr.Type)
	assert.True(t, perr.Recoverable)
	assert.Equal(t, 4, perr.Line)
	assert.False(t, res.Accepted)
	assert.Len(t, res.Lines, 4)
}

func TestAligner_Rejected(t *testing.T) {
	a := New(nil)
	a.MaxInvalid = 2

	res, err := a.Align([]string{"a x", "b x", "c x"}, []string{"a <p>"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Consecutive)
	assert.False(t, res.Accepted)
}
