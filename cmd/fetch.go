package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hsx/internal/formatter"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/urfave/cli/v3"
)

// queryFromFlags builds the requested page from the shared query flags.
func (r *Runner) queryFromFlags(cmd *cli.Command) (models.QueryState, error) {
	size := int(cmd.Int("limit"))
	if size <= 0 {
		size = r.config.View.PageSize
	}
	q := models.NewQueryState(size).WithSearch(cmd.String("search"))

	for _, f := range cmd.StringSlice("filter") {
		key, value, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return q, fmt.Errorf("%w: filter %q is not key=value", shared.ErrInvalidFlag, f)
		}
		q = q.WithFilter(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	d, err := models.ParseDateRange(cmd.String("from"), cmd.String("to"))
	if err != nil {
		return q, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	q = q.WithDateRange(d)

	if key := cmd.String("sort"); key != "" {
		dir := models.Ascending
		if cmd.Bool("desc") {
			dir = models.Descending
		}
		q = q.WithSort(key, dir)
	}

	return q.WithPage(max(int(cmd.Int("page")), 1)), nil
}

// Fetch requests one page of a collection and prints or exports it.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	res, err := r.resource(cmd.StringArg("resource"))
	if err != nil {
		return err
	}
	q, err := r.queryFromFlags(cmd)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	var format formatter.Format
	if output == "" || cmd.IsSet("format") {
		if format, err = formatter.ParseFormat(cmd.String("format")); err != nil {
			return err
		}
	}

	r.logger.Debug("fetching page", "resource", res.Name, "query", q.Key())
	page, err := r.api.FetchPage(ctx, res.APIPath(), q)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", res.Name, err)
	}

	columns := res.DisplayColumns()
	if output != "" {
		path, err := formatter.WriteExport(output, format, res.Name, *page, columns)
		if err != nil {
			return err
		}
		r.logger.Info("page exported", "path", path, "records", len(page.Items))
		return nil
	}

	if err := formatter.Write(r.output, format, res.Name, *page, columns); err != nil {
		return err
	}
	if format == formatter.FormatTable {
		return r.writePlain("%s\n", formatter.Summary(*page))
	}
	return nil
}
