package main

import (
	"context"
	"time"

	"github.com/desertthunder/hsx/internal/formatter"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// watchLine is one JSON line printed by [Runner.Watch].
type watchLine struct {
	Time    time.Time `json:"time"`
	Phase   string    `json:"phase"`
	Message string    `json:"message"`
	IDs     []string  `json:"ids,omitempty"`
}

// Watch mounts a headless collection and prints every fetch, connection change and
// reconciled event until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	res, err := r.resource(cmd.StringArg("resource"))
	if err != nil {
		return err
	}
	q, err := r.queryFromFlags(cmd)
	if err != nil {
		return err
	}
	if d := cmd.Duration("for"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	asJSON := cmd.Bool("json")

	loop := tasks.NewLoop(0)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go loop.Run(loopCtx)
	defer loop.Close()

	progress := make(chan tasks.ProgressUpdate, 64)
	opts := r.collectionOpts(res, q.PageSize)
	opts.Query = &q
	opts.Poster = loop
	opts.Progress = progress
	coll := tasks.NewCollection(opts)

	var mountErr error
	loop.Do(func() { mountErr = coll.Mount(context.Background()) })
	if mountErr != nil {
		return mountErr
	}
	defer loop.Do(coll.Unmount)

	if opts.Live == nil {
		r.logger.Warn("live.url is not configured; showing the first page only", "resource", res.Name)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("watch stopped", "resource", res.Name, "reason", context.Cause(ctx))
			return nil
		case update := <-progress:
			if err := r.printUpdate(update, res.DisplayColumns(), asJSON); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) printUpdate(update tasks.ProgressUpdate, columns []string, asJSON bool) error {
	if update.Phase == tasks.FetchStarted {
		return nil
	}

	var ids []string
	switch data := update.Data.(type) {
	case models.PageResult:
		ids = data.IDs()
	case models.LiveEvent:
		ids = []string{data.Record.ID}
	}

	if asJSON {
		return r.writeJSON(watchLine{Time: time.Now().UTC(), Phase: update.Phase.String(), Message: update.Message, IDs: ids}, false)
	}

	if page, ok := update.Data.(models.PageResult); ok && update.Phase == tasks.FetchApplied {
		if err := formatter.Write(r.output, formatter.FormatTable, "", page, columns); err != nil {
			return err
		}
	}
	return r.writePlain("%s  %-18s %s\n", time.Now().Format("15:04:05"), update.Phase, update.Message)
}
