package tagger

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

const features = "Bilan bilan LINESTART\nsanguin sanguin LINEEND\n\nFin fin LINESTART\n"

// constant labels every record with the same tag.
func constant(tag string) Func {
	return func(_ context.Context, in string) (string, error) {
		var sb strings.Builder
		for _, line := range strings.Split(in, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString(line + " " + tag + "\n")
		}
		return sb.String(), nil
	}
}

func TestRecordCount(t *testing.T) {
	assert.Equal(t, 3, RecordCount(features))
	assert.Zero(t, RecordCount("\n \n"))
}

func TestRun(t *testing.T) {
	out, err := Run(context.Background(), constant("<paragraph>"), features)
	require.NoError(t, err)
	assert.Equal(t, "Bilan bilan LINESTART <paragraph>\nsanguin sanguin LINEEND <paragraph>\nFin fin LINESTART <paragraph>\n", out)

	out, err = Run(context.Background(), constant("<paragraph>"), "  \n")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_MalformedResult(t *testing.T) {
	short := Func(func(context.Context, string) (string, error) {
		return "Bilan <title>\n", nil
	})
	_, err := Run(context.Background(), short, features)
	require.Error(t, err)

	var perr *errors.ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrorTypeMalformedResult, perr.Type)
	assert.False(t, perr.Recoverable)
}

func TestNewExec(t *testing.T) {
	_, err := NewExec(ExecConfig{}, nil)
	require.Error(t, err)

	cfg := DefaultExecConfig()
	cfg.Model = "/models/fulltext.wapiti"
	e, err := NewExec(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "-m", "/models/fulltext.wapiti"}, e.args())
}

func TestExec_Label(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e, err := NewExec(ExecConfig{Command: "cat", Attempts: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := Run(context.Background(), e, features)
	require.NoError(t, err)
	assert.Equal(t, features, out)
}

func TestExec_RetriesAndFails(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	e, err := NewExec(ExecConfig{Command: "false", Attempts: 2, Delay: time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = e.Label(context.Background(), features)
	require.Error(t, err)

	var perr *errors.ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, errors.ErrorTypeTaggerFailure, perr.Type)
}

func TestExec_CanceledContext(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	e, err := NewExec(ExecConfig{Command: "cat", Attempts: 3, Delay: time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Label(ctx, features)
	assert.Error(t, err)
}
