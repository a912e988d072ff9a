// Package worker runs ticket processing with bounded concurrency over a
// shared key queue.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/pkg/models"
)

// Runner processes a single ticket. Implemented by processor.Processor.
type Runner interface {
	Process(ctx context.Context, key string) models.ProcessingResult
}

// Summary aggregates the outcomes of one pool run.
type Summary struct {
	Processed int
	Succeeded int
	Skipped   int
	Partial   int
	Failed    int
}

// Pool fans ticket keys out to a bounded set of processing goroutines.
// Each ticket is independent; a failed ticket never stops the others.
type Pool struct {
	runner      Runner
	concurrency int
}

// NewPool creates a pool running at most concurrency tickets at once.
func NewPool(runner Runner, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{runner: runner, concurrency: concurrency}
}

// Run consumes keys until the channel closes or the context is cancelled,
// then returns the aggregated summary.
func (p *Pool) Run(ctx context.Context, keys <-chan string) Summary {
	results := make(chan models.ProcessingResult)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	go func() {
		for key := range keys {
			if ctx.Err() != nil {
				break
			}
			key := key
			g.Go(func() error {
				results <- p.runner.Process(ctx, key)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	var summary Summary
	for r := range results {
		summary.Processed++
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Success:
			summary.Succeeded++
		case r.PartialSuccess():
			summary.Partial++
		default:
			summary.Failed++
		}
	}

	logging.Info("worker pool finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"partial", summary.Partial,
		"failed", summary.Failed)
	return summary
}

// RunKeys is a convenience wrapper for a fixed key list.
func (p *Pool) RunKeys(ctx context.Context, keys []string) Summary {
	ch := make(chan string, len(keys))
	for _, k := range keys {
		ch <- k
	}
	close(ch)
	return p.Run(ctx, ch)
}
