package converter

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Job is one book to convert.
type Job struct {
	InputPath  string
	OutputPath string // optional, see ConvertOptions.OutputPath
}

// BatchResult is the outcome of one Job.
type BatchResult struct {
	Job    Job
	Result *Result
	Err    error
}

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// Concurrency bounds simultaneous conversions; values below 1 mean 1.
	Concurrency int
	// Convert is the template for every job; InputPath and OutputPath
	// are taken from the Job.
	Convert ConvertOptions
}

// RunBatch converts every job and returns results in job order. A failed
// book is recorded in its BatchResult and does not stop the others.
// Cancelling ctx stops scheduling; unscheduled jobs report ctx.Err().
func RunBatch(ctx context.Context, jobs []Job, opts BatchOptions) []BatchResult {
	logger := opts.Convert.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, job := range jobs {
		results[i].Job = job
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			convOpts := opts.Convert
			convOpts.InputPath = job.InputPath
			convOpts.OutputPath = job.OutputPath
			convOpts.Logger = logger.With("input", job.InputPath)

			res, err := NewPipeline(convOpts).Convert()
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				logger.Error("conversion failed", "input", job.InputPath, "error", err)
				return nil
			}
			logger.Info("converted", "input", job.InputPath, "output", res.OutputPath,
				"pages", len(res.Resolved), "skipped", len(res.Skipped), "size", humanize.Bytes(res.Size()))
			return nil
		})
	}

	g.Wait()
	return results
}

// Failed counts results with an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
