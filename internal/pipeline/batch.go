package pipeline

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-medreport/internal/errors"
)

// Processor processes one file. Engine and CachedEngine implement it.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (*Result, error)
}

// Batch processes a set of files with bounded concurrency and writes their
// training data. A failing document never stops the others.
type Batch struct {
	Processor Processor
	// OutputDir receives the training files. Empty skips writing.
	OutputDir string
	// Workers bounds concurrency, defaulting to the number of CPUs.
	Workers int
	Logger  *zap.Logger
}

// BatchReport summarises a batch run.
type BatchReport struct {
	Processed int
	Empty     int
	Files     []string
	Errors    *errors.Collection
}

// Run processes paths. The returned error is only set when ctx ends; per
// document failures are collected in the report.
func (b *Batch) Run(ctx context.Context, paths []string) (*BatchReport, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	report := &BatchReport{Errors: errors.NewCollection()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.Processor.ProcessFile(gctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("document failed", zap.String("path", path), zap.Error(err))
				report.Errors.Add(DocumentID(path), err)
				return nil
			}

			var written []string
			if b.OutputDir != "" {
				written, err = WriteTrainingFiles(b.OutputDir, res)
				if err != nil {
					report.Errors.Add(res.ID, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if res.Empty {
				report.Empty++
			} else {
				report.Processed++
			}
			report.Files = append(report.Files, written...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	logger.Info("batch finished",
		zap.Int("documents", len(paths)),
		zap.Int("processed", report.Processed),
		zap.Int("empty", report.Empty),
		zap.String("errors", report.Errors.Summary()))
	return report, nil
}
