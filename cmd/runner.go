package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/live"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/services"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	live       *live.ConnectionManager
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Live       *live.ConnectionManager // Optional; nil disables live updates
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		live:       opts.Live,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// NewRunnerFromConfig builds the API client and push channel described by config.
func NewRunnerFromConfig(ctx context.Context, config *shared.Config, configPath string, logger *log.Logger) *Runner {
	client := services.NewHTTPClient(ctx, config.API.Token, config.API.Timeout)

	return NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        services.NewAPIService(config.API.BaseURL, client),
		Live:       newLiveManager(config, logger),
		HTTPClient: client,
		Logger:     logger,
	})
}

// newLiveManager returns the push channel for config, or nil when no address can be derived.
// Nothing is dialed until a view joins a room.
func newLiveManager(config *shared.Config, logger *log.Logger) *live.ConnectionManager {
	addr := config.LiveURL()
	if addr == "" {
		return nil
	}

	var ts oauth2.TokenSource
	if config.API.Token != "" {
		ts = services.TokenSource(config.API.Token)
	}
	return live.NewConnectionManager(live.Options{
		URL:         addr,
		TokenSource: ts,
		MinBackoff:  config.Live.MinBackoff,
		MaxBackoff:  config.Live.MaxBackoff,
		Logger:      logger,
	})
}

// SetLogger replaces the logger used by subsequent commands.
//
// An unused push channel is rebuilt so its logs follow.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger == nil {
		return
	}
	r.logger = logger
	if r.live != nil && len(r.live.Rooms()) == 0 {
		r.live.Close()
		r.live = newLiveManager(r.config, logger)
	}
}

// Close releases the push channel, if one was opened.
func (r *Runner) Close() error {
	if r.live == nil {
		return nil
	}
	return r.live.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, fetchCommand, watchCommand, tuiCommand, bulkCommand, sandboxCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resource resolves a configured collection, listing the known names on failure.
func (r *Runner) resource(name string) (models.Resource, error) {
	if name == "" {
		return models.Resource{}, fmt.Errorf("%w: resource (one of %s)", shared.ErrMissingArgument, strings.Join(r.config.ResourceNames(), ", "))
	}
	res, err := r.config.Resource(name)
	if err != nil {
		return res, fmt.Errorf("%w (known: %s)", err, strings.Join(r.config.ResourceNames(), ", "))
	}
	return res, nil
}

// collectionOpts describes a collection over the configured API and push channel.
func (r *Runner) collectionOpts(res models.Resource, pageSize int) tasks.CollectionOpts {
	if pageSize <= 0 {
		pageSize = r.config.View.PageSize
	}
	opts := tasks.CollectionOpts{
		Resource: res,
		Fetcher:  r.api,
		Bulk:     tasks.NewBulkRunner(r.api, tasks.BulkOpts{}),
		PageSize: pageSize,
		Debounce: r.config.View.Debounce,
		Logger:   r.logger,
	}
	if r.live != nil {
		opts.Live = r.live
	}
	return opts
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
