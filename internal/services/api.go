// API service for the admin REST API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/hsx/internal/models"
)

// APIService talks to the admin REST API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the API root without a trailing slash.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// envelope is the response wrapper shared by every admin endpoint.
type envelope struct {
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Affected   int             `json:"affected"`
	Pagination *pagination     `json:"pagination"`
}

type pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Patch performs a PATCH request with the given JSON data and returns the raw response.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPatch, path, data)
}

// FetchPage implements [Fetcher].
//
// The query is encoded as page, limit, search, startDate, endDate, sortBy, sortOrder and one
// parameter per column filter. A response without pagination metadata is treated as a single
// page holding every returned record.
func (a *APIService) FetchPage(ctx context.Context, path string, q models.QueryState) (*models.PageResult, error) {
	resp, err := a.Get(ctx, path+"?"+q.Values().Encode())
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var items []models.Record
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed data: %v", err)}
		}
	}

	page := models.NewPageResult(items, len(items), q.Page, q.PageSize)
	if p := env.Pagination; p != nil {
		page = models.NewPageResult(items, p.Total, firstPositive(p.Page, q.Page), firstPositive(p.Limit, q.PageSize))
	}
	return &page, nil
}

// Bulk implements [Actor] with POST <path>/bulk and body {"action", "ids"}.
func (a *APIService) Bulk(ctx context.Context, path, action string, ids []string) (int, error) {
	body, err := json.Marshal(map[string]any{"action": action, "ids": ids})
	if err != nil {
		return 0, fmt.Errorf("failed to encode bulk request: %w", err)
	}

	resp, err := a.Post(ctx, path+"/bulk", body)
	if err != nil {
		return 0, err
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return 0, err
	}
	return env.Affected, nil
}

// Create posts a new record to the collection and returns the stored record.
func (a *APIService) Create(ctx context.Context, path string, fields map[string]any) (models.Record, error) {
	return a.write(ctx, http.MethodPost, path, fields)
}

// Update patches the record with the given id and returns the stored record.
func (a *APIService) Update(ctx context.Context, path, id string, fields map[string]any) (models.Record, error) {
	return a.write(ctx, http.MethodPatch, path+"/"+id, fields)
}

func (a *APIService) write(ctx context.Context, method, path string, fields map[string]any) (models.Record, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to encode record: %w", err)
	}

	resp, err := a.do(ctx, method, path, body)
	if err != nil {
		return models.Record{}, err
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return models.Record{}, err
	}

	var rec models.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return models.Record{}, &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed data: %v", err)}
	}
	return rec, nil
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "failed to read response", Err: err}
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// decodeEnvelope turns non-2xx statuses, undecodable bodies and success=false into [*ServerError].
func decodeEnvelope(resp *APIResponse) (*envelope, error) {
	var env envelope
	decodeErr := json.Unmarshal(resp.Body, &env)

	if !resp.OK() {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(resp.Body))
		}
		return nil, &ServerError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", decodeErr)}
	}
	if env.Success != nil && !*env.Success {
		return nil, &ServerError{Status: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
