package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
	tu "github.com/desertthunder/hsx/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/api/", customClient)

			if srv.baseURL != "http://example.com/api" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != "http://localhost:8080" {
				t.Errorf("expected default baseURL 'http://localhost:8080', got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("FetchPage", func(t *testing.T) {
		t.Run("Encodes Query and Decodes Envelope", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/customers" {
					t.Errorf("expected path '/customers', got %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("page") != "2" || q.Get("limit") != "2" {
					t.Errorf("unexpected paging: %s", r.URL.RawQuery)
				}
				if q.Get("search") != "ann" || q.Get("status") != "Active" {
					t.Errorf("unexpected filters: %s", r.URL.RawQuery)
				}
				if q.Get("sortBy") != "name" || q.Get("sortOrder") != "desc" {
					t.Errorf("unexpected sort: %s", r.URL.RawQuery)
				}

				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{
					"success": true,
					"data": [{"_id": "a1", "name": "Ann", "isActive": true}, {"id": 7, "name": "Anna", "status": "aktiv"}],
					"pagination": {"page": 2, "limit": 2, "total": 5, "totalPages": 3, "hasNextPage": true, "hasPrevPage": true}
				}`)
			}))
			defer server.Close()

			q := models.NewQueryState(2).
				WithSearch("ann").
				WithFilter("status", "Active").
				WithSort("name", models.Descending).
				WithPage(2)

			srv := NewAPIService(server.URL, nil)
			page, err := srv.FetchPage(context.Background(), "/customers", q)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if ids := page.IDs(); len(ids) != 2 || ids[0] != "a1" || ids[1] != "7" {
				t.Errorf("unexpected ids: %v", ids)
			}
			if page.Items[1].Status != models.StatusActive {
				t.Errorf("expected status normalized to active, got %v", page.Items[1].Status)
			}
			if page.Total != 5 || page.TotalPages != 3 || !page.HasNext || !page.HasPrev {
				t.Errorf("unexpected pagination: %+v", page)
			}
		})

		t.Run("Missing Pagination Is One Page", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"success": true, "data": [{"id": "1"}]}`)
			}))
			defer server.Close()

			page, err := NewAPIService(server.URL, nil).FetchPage(context.Background(), "/rooms", models.NewQueryState(10))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if page.Total != 1 || page.TotalPages != 1 || page.HasNext {
				t.Errorf("unexpected pagination: %+v", page)
			}
		})

		t.Run("Server Error Carries Message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"success": false, "message": "Bu əməliyyat üçün icazəniz yoxdur"}`)
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).FetchPage(context.Background(), "/staff", models.NewQueryState(10))

			var se *ServerError
			if !errors.As(err, &se) {
				t.Fatalf("expected ServerError, got %v", err)
			}
			if se.Status != http.StatusForbidden || se.Message != "Bu əməliyyat üçün icazəniz yoxdur" {
				t.Errorf("unexpected server error: %+v", se)
			}
			if !errors.Is(err, shared.ErrServer) {
				t.Error("expected error to wrap ErrServer")
			}
		})

		t.Run("Success False Is Server Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"success": false, "message": "invalid filter"}`)
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).FetchPage(context.Background(), "/staff", models.NewQueryState(10))
			if err == nil || err.Error() != "invalid filter" {
				t.Errorf("expected verbatim message, got %v", err)
			}
		})

		t.Run("Non-JSON Error Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				io.WriteString(w, "upstream down\n")
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).FetchPage(context.Background(), "/staff", models.NewQueryState(10))

			var se *ServerError
			if !errors.As(err, &se) || se.Message != "upstream down" {
				t.Errorf("expected body as message, got %v", err)
			}
		})

		t.Run("Transport Failure Is Network Error", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
			}

			_, err := NewAPIService("http://example.com", client).FetchPage(context.Background(), "/staff", models.NewQueryState(10))

			if !IsNetworkError(err) {
				t.Fatalf("expected NetworkError, got %v", err)
			}
			if !errors.Is(err, shared.ErrNetwork) {
				t.Error("expected error to wrap ErrNetwork")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			_, err := NewAPIService("http://example.com", client).FetchPage(context.Background(), "/staff", models.NewQueryState(10))
			if !IsNetworkError(err) || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read failure as NetworkError, got %v", err)
			}
		})

		t.Run("Malformed Data", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"success": true, "data": {"id": 1}}`)
			}))
			defer server.Close()

			_, err := NewAPIService(server.URL, nil).FetchPage(context.Background(), "/staff", models.NewQueryState(10))

			var se *ServerError
			if !errors.As(err, &se) {
				t.Errorf("expected ServerError for non-array data, got %v", err)
			}
		})
	})

	t.Run("Bulk", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/reservations/bulk" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %s", ct)
			}

			var body struct {
				Action string   `json:"action"`
				IDs    []string `json:"ids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Action != "approve" || len(body.IDs) != 2 {
				t.Errorf("unexpected body: %+v", body)
			}

			json.NewEncoder(w).Encode(map[string]any{"success": true, "affected": len(body.IDs)})
		}))
		defer server.Close()

		n, err := NewAPIService(server.URL, nil).Bulk(context.Background(), "/reservations", "approve", []string{"r1", "r2"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 affected, got %d", n)
		}
	})

	t.Run("Create and Update", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var fields map[string]any
			json.NewDecoder(r.Body).Decode(&fields)

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/activities":
				fields["id"] = "new-1"
			case r.Method == http.MethodPatch && r.URL.Path == "/activities/new-1":
				fields["id"] = "new-1"
			default:
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "data": fields})
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		rec, err := srv.Create(context.Background(), "/activities", map[string]any{"action": "login"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.ID != "new-1" || rec.Text("action") != "login" {
			t.Errorf("unexpected record: %+v", rec)
		}

		rec, err = srv.Update(context.Background(), "/activities", "new-1", map[string]any{"isActive": false})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Status != models.StatusInactive {
			t.Errorf("expected inactive, got %v", rec.Status)
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil).Get(context.Background(), "/health")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON || string(resp.Body) != "plain text response" {
				t.Errorf("unexpected response: %+v", resp)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			_, err := NewAPIService("http://example.com", nil).Get(context.Background(), "/test\x00invalid")

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})
	})
}

func TestHTTPClient(t *testing.T) {
	t.Run("Sends Bearer Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("expected bearer token, got %q", got)
			}
			io.WriteString(w, `{"success": true, "data": []}`)
		}))
		defer server.Close()

		client := NewHTTPClient(context.Background(), "secret", time.Second)
		if _, err := NewAPIService(server.URL, client).FetchPage(context.Background(), "/staff", models.NewQueryState(10)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Without Token", func(t *testing.T) {
		client := NewHTTPClient(context.Background(), "", time.Second)
		if client.Timeout != time.Second || client.Transport != nil {
			t.Errorf("expected plain client, got %+v", client)
		}
	})

	t.Run("AuthHeader", func(t *testing.T) {
		h, err := AuthHeader(TokenSource("secret"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected header: %v", h)
		}

		h, err = AuthHeader(nil)
		if err != nil || len(h) != 0 {
			t.Errorf("expected empty header, got %v %v", h, err)
		}
	})
}
