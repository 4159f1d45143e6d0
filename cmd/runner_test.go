package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/repositories"
	"github.com/desertthunder/hsx/internal/server"
	"github.com/desertthunder/hsx/internal/services"
	"github.com/desertthunder/hsx/internal/shared"
	tu "github.com/desertthunder/hsx/internal/testing"
	"github.com/urfave/cli/v3"
)

// sandboxRunner points a runner at an in-memory sandbox seeded with n customers.
func sandboxRunner(t *testing.T, n int) (*Runner, *bytes.Buffer, *repositories.RecordRepository) {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := log.New(io.Discard)
	config := shared.DefaultConfig()
	store := repositories.NewRecordRepository(db)
	sandbox := server.NewSandbox(server.SandboxOpts{Store: store, Resources: config.Resources, Logger: logger})
	srv := server.New("", "", sandbox, server.NewHub(logger), logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for i := range n {
		rec := models.DecodeRecord(map[string]any{
			"id":        fmt.Sprintf("c%d", i+1),
			"name":      fmt.Sprintf("Guest %d", i+1),
			"isActive":  false,
			"createdAt": time.Date(2024, 6, 1+i, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
		if _, err := store.Create(context.Background(), "customers", rec); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	config.API.BaseURL = ts.URL
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		API:        services.NewAPIService(ts.URL, ts.Client()),
		HTTPClient: ts.Client(),
		Logger:     logger,
		Output:     output,
	})
	return runner, output, store
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "hsx", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"hsx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.live != nil {
				t.Error("expected no live manager")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.api == nil || runner.api.BaseURL() != runner.config.API.BaseURL {
				t.Error("expected api built from the config base url")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("NewRunnerFromConfig", func(t *testing.T) {
		t.Run("derives the push channel", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunnerFromConfig(context.Background(), config, "", log.New(io.Discard))
			defer runner.Close()

			if runner.live == nil {
				t.Fatal("expected a live manager")
			}
			if rooms := runner.live.Rooms(); len(rooms) != 0 {
				t.Errorf("expected no rooms before a view joins, got %v", rooms)
			}
		})

		t.Run("without a usable address", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.BaseURL = "not a url"
			runner := NewRunnerFromConfig(context.Background(), config, "", log.New(io.Discard))

			if runner.live != nil {
				t.Error("expected live updates to be off")
			}
			if err := runner.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})

		t.Run("SetLogger rebuilds an unused push channel", func(t *testing.T) {
			runner := NewRunnerFromConfig(context.Background(), shared.DefaultConfig(), "", log.New(io.Discard))
			defer runner.Close()
			before := runner.live

			logger := log.New(io.Discard)
			runner.SetLogger(logger)

			if runner.logger != logger {
				t.Error("expected logger to be replaced")
			}
			if runner.live == before || runner.live == nil {
				t.Error("expected a fresh live manager")
			}
		})
	})

	t.Run("collectionOpts", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard)})
		res, _ := runner.config.Resource("customers")

		opts := runner.collectionOpts(res, 0)
		if opts.PageSize != runner.config.View.PageSize {
			t.Errorf("expected configured page size, got %d", opts.PageSize)
		}
		if opts.Fetcher == nil || opts.Bulk == nil {
			t.Error("expected fetcher and bulk runner")
		}
		if opts.Live != nil {
			t.Error("expected no live source")
		}
		if opts = runner.collectionOpts(res, 25); opts.PageSize != 25 {
			t.Errorf("expected page size 25, got %d", opts.PageSize)
		}
	})

	t.Run("resource", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if _, err := runner.resource(""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		_, err := runner.resource("bookings")
		if !errors.Is(err, shared.ErrUnknownResource) {
			t.Fatalf("expected ErrUnknownResource, got %v", err)
		}
		if !strings.Contains(err.Error(), "customers") {
			t.Errorf("expected known names in %q", err)
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make([]string, 0, len(commands))
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}
		if got := strings.Join(names, ","); got != "setup,fetch,watch,tui,bulk,sandbox" {
			t.Errorf("unexpected commands %s", got)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("fetch prints a table page", func(t *testing.T) {
		runner, output, _ := sandboxRunner(t, 7)

		if err := run(runner, "fetch", "--limit", "3", "customers"); err != nil {
			t.Fatalf("fetch error = %v", err)
		}
		got := output.String()
		if !strings.Contains(got, "Guest 7") || strings.Contains(got, "Guest 4") {
			t.Errorf("expected the newest three customers, got:\n%s", got)
		}
		if !strings.Contains(got, "page 1 of 3, 7 records") {
			t.Errorf("expected a summary line, got:\n%s", got)
		}
	})

	t.Run("fetch applies search and page", func(t *testing.T) {
		runner, output, _ := sandboxRunner(t, 12)

		if err := run(runner, "fetch", "--search", "guest 1", "--limit", "2", "--page", "2", "--format", "json", "customers"); err != nil {
			t.Fatalf("fetch error = %v", err)
		}

		var page struct {
			Data       []models.Record `json:"data"`
			Pagination struct {
				Page  int `json:"page"`
				Total int `json:"total"`
			} `json:"pagination"`
		}
		if err := json.Unmarshal(output.Bytes(), &page); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, output.String())
		}
		// Guest 1, 10, 11, 12 match
		if page.Pagination.Total != 4 || page.Pagination.Page != 2 || len(page.Data) != 2 {
			t.Errorf("unexpected page: %+v items=%d", page.Pagination, len(page.Data))
		}
	})

	t.Run("fetch exports by extension", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 3)
		path := filepath.Join(t.TempDir(), "customers.csv")

		if err := run(runner, "fetch", "--output", path, "customers"); err != nil {
			t.Fatalf("fetch error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected export file: %v", err)
		}
		if !strings.Contains(string(data), "Guest 2") {
			t.Errorf("unexpected export:\n%s", data)
		}
	})

	t.Run("fetch rejects malformed flags", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 0)

		tests := [][]string{
			{"fetch", "--filter", "status", "customers"},
			{"fetch", "--from", "yesterday", "customers"},
			{"fetch", "--format", "xml", "customers"},
		}
		for _, args := range tests {
			if err := run(runner, args...); err == nil {
				t.Errorf("expected an error for %v", args)
			}
		}
		if err := run(runner, tests[0]...); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("fetch unknown resource", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 0)

		if err := run(runner, "fetch", "bookings"); !errors.Is(err, shared.ErrUnknownResource) {
			t.Errorf("expected ErrUnknownResource, got %v", err)
		}
	})

	t.Run("bulk activates records", func(t *testing.T) {
		runner, output, store := sandboxRunner(t, 4)

		if err := run(runner, "bulk", "--batch-size", "1", "--rate", "100", "customers", "activate", "c1", "c3"); err != nil {
			t.Fatalf("bulk error = %v", err)
		}
		if got := output.String(); !strings.Contains(got, "2 of 2 records affected in 2 batches") {
			t.Errorf("unexpected output:\n%s", got)
		}
		rec, err := store.Get(context.Background(), "customers", "c3")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.Status != models.StatusActive {
			t.Errorf("expected c3 to be active, got %v", rec.Status)
		}
	})

	t.Run("bulk requires ids", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 0)

		if err := run(runner, "bulk", "customers", "delete"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := run(runner, "bulk", "customers"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("bulk reports rejected actions", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 2)

		if err := run(runner, "bulk", "--rate", "100", "customers", "archive", "c1"); err == nil {
			t.Error("expected the unsupported action to fail")
		}
	})

	t.Run("sandbox emit creates records", func(t *testing.T) {
		runner, output, store := sandboxRunner(t, 0)

		if err := run(runner, "sandbox", "emit", "--count", "3", "--rate", "200", "--update-ratio", "0", "customers"); err != nil {
			t.Fatalf("emit error = %v", err)
		}
		n, err := store.Count(context.Background(), "customers")
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 3 {
			t.Errorf("expected 3 records, got %d", n)
		}
		if !strings.Contains(output.String(), "3 writes to customers") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	t.Run("sandbox emit validates flags", func(t *testing.T) {
		runner, _, _ := sandboxRunner(t, 0)

		if err := run(runner, "sandbox", "emit", "--update-ratio", "2", "customers"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("watch prints the first page as JSON lines", func(t *testing.T) {
		runner, output, _ := sandboxRunner(t, 3)

		if err := run(runner, "watch", "--json", "--for", "300ms", "customers"); err != nil {
			t.Fatalf("watch error = %v", err)
		}

		var line watchLine
		first, _, _ := strings.Cut(output.String(), "\n")
		if err := json.Unmarshal([]byte(first), &line); err != nil {
			t.Fatalf("expected a JSON line, got %q: %v", first, err)
		}
		if line.Phase != "fetch_applied" || len(line.IDs) != 3 {
			t.Errorf("unexpected line %+v", line)
		}
	})

	t.Run("setup config from curl", func(t *testing.T) {
		dir := t.TempDir()
		curl := filepath.Join(dir, "request.txt")
		body := `curl 'https://admin.example.com/api/v1/customers?page=1' -H 'Authorization: Bearer secret-token'`
		if err := os.WriteFile(curl, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		configPath := filepath.Join(dir, "config.toml")
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

		if err := run(runner, "setup", "config", "--config", configPath, "--from-curl", curl); err != nil {
			t.Fatalf("setup error = %v", err)
		}
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if loaded.API.Token != "secret-token" {
			t.Errorf("expected token from the request, got %q", loaded.API.Token)
		}
		if err := run(runner, "setup", "config", "--config", configPath); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument without --force, got %v", err)
		}
	})

	t.Run("setup database status", func(t *testing.T) {
		dir := t.TempDir()
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "hsx.db")
		configPath := filepath.Join(dir, "config.toml")
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatal(err)
		}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: output})

		if err := run(runner, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("migrate error = %v", err)
		}
		if err := run(runner, "setup", "database", "--config", configPath, "--action", "status"); err != nil {
			t.Fatalf("status error = %v", err)
		}
		if !strings.Contains(output.String(), "applied") || strings.Contains(output.String(), "pending") {
			t.Errorf("expected every migration applied:\n%s", output.String())
		}
		if err := run(runner, "setup", "database", "--config", configPath, "--action", "drop"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}
