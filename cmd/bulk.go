package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/tasks"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

// Bulk applies an action to the given record ids in rate-limited batches and reports each batch.
func (r *Runner) Bulk(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	res, err := r.resource(args.Get(0))
	if err != nil {
		return err
	}
	action := strings.ToLower(strings.TrimSpace(args.Get(1)))
	if action == "" {
		return fmt.Errorf("%w: action", shared.ErrMissingArgument)
	}
	ids := args.Slice()[min(2, args.Len()):]
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one id", shared.ErrMissingArgument)
	}

	runner := tasks.NewBulkRunner(r.api, tasks.BulkOpts{
		BatchSize:  int(cmd.Int("batch-size")),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("  %s\n", update.Message)
		}
	}()

	r.writePlainHeader(fmt.Sprintf("%s %d %s", action, len(ids), res.Name))
	result, err := runner.Run(ctx, progress, res.APIPath(), action, ids)
	close(progress)
	<-done

	if result != nil {
		r.writePlainln("✓ %d of %d records affected in %d batches", result.Affected, result.Requested, result.Batches)
		if len(result.Failed) > 0 {
			r.writePlain("✗ failed: %s\n", strings.Join(result.Failed, ", "))
		}
	}
	if err != nil {
		for _, e := range multierr.Errors(err) {
			r.logger.Error("bulk batch failed", "action", action, "error", e)
		}
		return fmt.Errorf("bulk %s failed: %w", action, err)
	}
	return nil
}
