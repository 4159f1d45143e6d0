// package services defines the admin API client used to load remote collections
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
	"golang.org/x/oauth2"
)

// Fetcher loads one server-filtered, server-paginated page of a collection.
type Fetcher interface {
	// FetchPage requests the page described by q from the collection at path.
	//
	// Failures are reported as [*NetworkError] or [*ServerError].
	FetchPage(ctx context.Context, path string, q models.QueryState) (*models.PageResult, error)
}

// Actor applies one action to many records of a collection.
type Actor interface {
	// Bulk applies action to the records with the given ids and reports how many were affected.
	Bulk(ctx context.Context, path, action string, ids []string) (int, error)
}

// Client is the full admin API surface used by the list views.
type Client interface {
	Fetcher
	Actor
}

// NetworkError reports a transport failure: the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{shared.ErrNetwork, e.Err}
}

// ServerError reports a non-2xx response or an envelope with success set to false.
//
// Message is the server's message verbatim.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

func (e *ServerError) Unwrap() error {
	return shared.ErrServer
}

// IsNetworkError reports whether err is (or wraps) a [*NetworkError].
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// NewHTTPClient returns a client that authenticates every request with a static bearer token.
//
// An empty token yields a plain client with the timeout applied.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	if token == "" {
		return &http.Client{Timeout: timeout}
	}

	client := oauth2.NewClient(ctx, TokenSource(token))
	client.Timeout = timeout
	return client
}

// TokenSource wraps a static API token.
func TokenSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// AuthHeader returns request headers carrying the token, for transports that cannot use an
// [http.Client] (the websocket dialer).
func AuthHeader(ts oauth2.TokenSource) (http.Header, error) {
	h := http.Header{}
	if ts == nil {
		return h, nil
	}

	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	tok.SetAuthHeader(&http.Request{Header: h})
	return h, nil
}
