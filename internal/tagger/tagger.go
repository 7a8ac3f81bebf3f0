// Package tagger runs the sequence labelling model over feature records.
package tagger

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

// Tagger labels feature records. The result holds one line per record, the
// label in its last field.
type Tagger interface {
	Label(ctx context.Context, features string) (string, error)
}

// Func adapts a function to the Tagger interface.
type Func func(ctx context.Context, features string) (string, error)

// Label calls f.
func (f Func) Label(ctx context.Context, features string) (string, error) {
	return f(ctx, features)
}

// RecordCount returns the number of non-blank lines of s.
func RecordCount(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Check verifies that result labels every record of features.
func Check(features, result string) error {
	want, got := RecordCount(features), RecordCount(result)
	if want != got {
		return errors.Newf(errors.ErrorTypeMalformedResult,
			"tagger returned %d records for %d feature records", got, want)
	}
	return nil
}

// Run labels features with t and checks the result.
func Run(ctx context.Context, t Tagger, features string) (string, error) {
	if strings.TrimSpace(features) == "" {
		return "", nil
	}
	result, err := t.Label(ctx, features)
	if err != nil {
		return "", err
	}
	if err := Check(features, result); err != nil {
		return "", err
	}
	return result, nil
}

// ModelPlaceholder in ExecConfig.Args is replaced by ExecConfig.Model.
const ModelPlaceholder = "{model}"

// ExecConfig describes an external labelling command reading feature records
// on stdin and writing labeled records on stdout.
type ExecConfig struct {
	Command  string        `mapstructure:"command" json:"command"`
	Args     []string      `mapstructure:"args" json:"args"`
	Model    string        `mapstructure:"model" json:"model"`
	Attempts uint          `mapstructure:"attempts" json:"attempts"`
	Delay    time.Duration `mapstructure:"delay" json:"delay"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultExecConfig returns the settings for a wapiti installation.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		Command:  "wapiti",
		Args:     []string{"label", "-m", ModelPlaceholder},
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		Timeout:  2 * time.Minute,
	}
}

// Exec is a Tagger backed by an external command.
type Exec struct {
	config ExecConfig
	logger *zap.Logger
}

// NewExec creates a command tagger.
func NewExec(config ExecConfig, logger *zap.Logger) (*Exec, error) {
	if config.Command == "" {
		return nil, errors.New(errors.ErrorTypeInvalidInput, "tagger command is empty")
	}
	if config.Attempts == 0 {
		config.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{config: config, logger: logger}, nil
}

func (e *Exec) args() []string {
	args := make([]string, len(e.config.Args))
	for i, a := range e.config.Args {
		args[i] = strings.ReplaceAll(a, ModelPlaceholder, e.config.Model)
	}
	return args
}

// Label runs the command, retrying failed runs.
func (e *Exec) Label(ctx context.Context, features string) (string, error) {
	var out string
	err := retry.Do(
		func() error {
			res, err := e.run(ctx, features)
			if err != nil {
				return err
			}
			out = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.config.Attempts),
		retry.Delay(e.config.Delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn("tagger run failed, retrying",
				zap.Uint("attempt", n+1),
				zap.String("command", e.config.Command),
				zap.Error(err))
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Exec) run(ctx context.Context, features string) (string, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.config.Command, e.args()...)
	cmd.Stdin = strings.NewReader(features)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(errors.ErrorTypeTaggerFailure, err).
			WithContext(strings.TrimSpace(stderr.String()))
	}
	e.logger.Debug("tagger run finished",
		zap.String("command", e.config.Command),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", stdout.Len()))
	return stdout.String(), nil
}
