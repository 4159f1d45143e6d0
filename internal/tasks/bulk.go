package tasks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/hsx/internal/services"
	"github.com/desertthunder/hsx/internal/shared"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// BulkOpts configures a [BulkRunner].
type BulkOpts struct {
	BatchSize  int     // Identifiers per request (default: 50)
	NumWorkers int     // Concurrent requests (default: 2, max: 8)
	RateLimit  float64 // Requests per second (default: 5)
}

// BulkResult summarizes a bulk action.
type BulkResult struct {
	Action    string
	Requested int
	Affected  int
	Batches   int
	Failed    []string // Identifiers whose batch was rejected
}

// BulkRunner applies an action to many records in rate-limited batches.
type BulkRunner struct {
	actor services.Actor
	opts  BulkOpts
}

// NewBulkRunner returns a runner with defaults applied.
func NewBulkRunner(actor services.Actor, opts BulkOpts) *BulkRunner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	return &BulkRunner{actor: actor, opts: opts}
}

type bulkJob struct {
	ids []string
}

type bulkJobResult struct {
	ids      []string
	affected int
	err      error
}

// Run sends the action for every identifier. Failed batches do not stop the others; their errors
// are combined with multierr and their identifiers listed in [BulkResult.Failed].
func (b *BulkRunner) Run(ctx context.Context, prog chan<- ProgressUpdate, path, action string, ids []string) (*BulkResult, error) {
	if b.actor == nil {
		return nil, fmt.Errorf("%w: bulk actions are not available", shared.ErrNotImplemented)
	}

	result := &BulkResult{Action: action, Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	batches := slices.Collect(slices.Chunk(ids, b.opts.BatchSize))
	result.Batches = len(batches)

	limiter := rate.NewLimiter(rate.Limit(b.opts.RateLimit), 1)
	jobs := make(chan bulkJob, len(batches))
	results := make(chan bulkJobResult, len(batches))

	var wg sync.WaitGroup
	for range min(b.opts.NumWorkers, len(batches)) {
		wg.Add(1)
		go b.worker(ctx, &wg, limiter, path, action, jobs, results)
	}

	for _, batch := range batches {
		jobs <- bulkJob{ids: batch}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs error
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			errs = multierr.Append(errs, res.err)
			result.Failed = append(result.Failed, res.ids...)
			sendProgress(prog, bulkFailedUpdate(completed, len(batches), action, res.err))
			continue
		}
		result.Affected += res.affected
		sendProgress(prog, bulkBatchUpdate(completed, len(batches), action, res.affected))
	}

	return result, errs
}

// worker sends batches from the jobs channel.
func (b *BulkRunner) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	path, action string,
	jobs <-chan bulkJob,
	results chan<- bulkJobResult,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- bulkJobResult{ids: job.ids, err: err}
			continue
		}

		n, err := b.actor.Bulk(ctx, path, action, job.ids)
		if err != nil {
			err = fmt.Errorf("%s %d records: %w", action, len(job.ids), err)
		}
		results <- bulkJobResult{ids: job.ids, affected: n, err: err}
	}
}
