package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/repositories"
	"github.com/desertthunder/hsx/internal/server"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// SandboxServe runs a local admin API and push channel backed by SQLite.
func (r *Runner) SandboxServe(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open sandbox database: %w", err)
	}
	defer db.Close()

	hub := server.NewHub(r.logger)
	sandbox := server.NewSandbox(server.SandboxOpts{
		Store:     repositories.NewRecordRepository(db),
		Resources: r.config.Resources,
		Hub:       hub,
		PageSize:  r.config.View.PageSize,
		Logger:    r.logger,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	srv := server.New(addr, r.config.API.Token, sandbox, hub, r.logger)

	if cmd.Bool("open") {
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenBrowser("http://" + addr + "/"); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}()
	}

	return srv.Run(ctx)
}

// SandboxEmit writes synthetic records through the admin API so open views receive push events.
//
// Each tick either creates a record or flips the activity of one created earlier, chosen by
// --update-ratio.
func (r *Runner) SandboxEmit(ctx context.Context, cmd *cli.Command) error {
	res, err := r.resource(cmd.StringArg("resource"))
	if err != nil {
		return err
	}

	count := int(cmd.Int("count"))
	perSecond := cmd.Float("rate")
	ratio := cmd.Float("update-ratio")
	if count <= 0 || perSecond <= 0 {
		return fmt.Errorf("%w: count and rate must be positive", shared.ErrInvalidFlag)
	}
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("%w: update-ratio must be between 0 and 1", shared.ErrInvalidFlag)
	}
	if d := cmd.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	var created []models.Record
	var writes int

	for i := range count {
		// Wait fails once ctx is done or the next token would land past its deadline.
		if err := limiter.Wait(ctx); err != nil {
			r.logger.Warn("emit stopped early", "written", writes, "reason", err)
			break
		}

		var rec models.Record
		verb := "created"
		if len(created) > 0 && rand.Float64() < ratio {
			j := rand.IntN(len(created))
			target := created[j]
			rec, err = r.api.Update(ctx, res.APIPath(), target.ID, map[string]any{"isActive": target.Status != models.StatusActive})
			if err == nil {
				created[j] = rec
			}
			verb = "updated"
		} else {
			rec, err = r.api.Create(ctx, res.APIPath(), syntheticFields(res, i))
			if err == nil {
				created = append(created, rec)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to write %s record: %w", res.Name, err)
		}

		writes++
		r.logger.Debug("record written", "resource", res.Name, "id", rec.ID, "action", verb)
		r.writePlain("%s  %-7s %s\n", time.Now().Format("15:04:05"), verb, rec.ID)
	}

	r.writePlainln("✓ %d writes to %s", writes, res.Name)
	return nil
}

// syntheticFields fills the resource's searchable fields with recognizable values.
// Dotted paths are written as nested objects.
func syntheticFields(res models.Resource, n int) map[string]any {
	tag := shared.GenerateID()[:8]
	fields := map[string]any{
		"name":      fmt.Sprintf("Guest %d", n+1),
		"isActive":  true,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	for _, field := range res.SearchFields {
		value := fmt.Sprintf("%s-%s", lastSegment(field), tag)
		setPath(fields, field, value)
	}
	if res.DateField != "" {
		setPath(fields, res.DateField, time.Now().UTC().Format(time.RFC3339))
	}
	return fields
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func setPath(fields map[string]any, path string, value any) {
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		if _, ok := fields[head]; !ok {
			fields[head] = value
		}
		return
	}
	child, ok := fields[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		fields[head] = child
	}
	setPath(child, rest, value)
}
