// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/hsx/internal/models"
)

// FetchCall records one request made to a [FakeFetcher].
type FetchCall struct {
	Path  string
	Query models.QueryState
}

// FakeFetcher is a test double for [services.Fetcher].
//
// Handler answers each request; when nil, every request gets an empty page for its query.
type FakeFetcher struct {
	Handler func(ctx context.Context, path string, q models.QueryState) (*models.PageResult, error)

	mu    sync.Mutex
	calls []FetchCall
}

func (f *FakeFetcher) FetchPage(ctx context.Context, path string, q models.QueryState) (*models.PageResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FetchCall{Path: path, Query: q})
	f.mu.Unlock()

	if f.Handler == nil {
		p := models.EmptyPage(q)
		return &p, nil
	}
	return f.Handler(ctx, path, q)
}

// Calls returns the requests made so far.
func (f *FakeFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchCall(nil), f.calls...)
}

// BulkCall records one request made to a [FakeActor].
type BulkCall struct {
	Path   string
	Action string
	IDs    []string
}

// FakeActor is a test double for [services.Actor]. Requests for ids listed in Fail are rejected.
type FakeActor struct {
	Fail map[string]error

	mu    sync.Mutex
	calls []BulkCall
}

func (f *FakeActor) Bulk(ctx context.Context, path, action string, ids []string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, BulkCall{Path: path, Action: action, IDs: ids})
	f.mu.Unlock()

	for _, id := range ids {
		if err, ok := f.Fail[id]; ok {
			return 0, err
		}
	}
	return len(ids), nil
}

// Calls returns the requests made so far.
func (f *FakeActor) Calls() []BulkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BulkCall(nil), f.calls...)
}

// Records builds n records with ids prefix1..prefixN and a name field.
func Records(prefix string, n int) []models.Record {
	out := make([]models.Record, n)
	for i := range n {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		out[i] = models.DecodeRecord(map[string]any{"id": id, "name": "Name " + id, "isActive": true})
	}
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
