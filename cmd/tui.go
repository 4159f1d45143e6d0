package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive table screen for one collection.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	res, err := r.resource(cmd.StringArg("resource"))
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	r.SetLogger(fileLogger)

	if err := ui.Run(ctx, r.collectionOpts(res, int(cmd.Int("limit")))); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
