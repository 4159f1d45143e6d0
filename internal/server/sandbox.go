package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/query"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/table"
)

const maxBodyBytes = 1 << 20

// Store is the persistence the sandbox serves from.
type Store interface {
	models.Repository
	DeleteMany(ctx context.Context, resource string, ids []string) (int, error)
	UpdateMany(ctx context.Context, resource string, ids []string, patch models.Record) ([]models.Record, error)
	Count(ctx context.Context, resource string) (int, error)
}

// Broadcaster delivers push events to a topic's room.
type Broadcaster interface {
	Broadcast(topic, event string, data any) (int, error)
}

// SandboxOpts configures a [Sandbox].
type SandboxOpts struct {
	Store     Store
	Resources []models.Resource
	Hub       Broadcaster // Optional; nil disables push events
	PageSize  int
	Logger    *log.Logger
}

// Sandbox serves the admin REST contract for every configured resource.
//
//	GET    <path>            list (page, limit, search, startDate, endDate, sortBy, sortOrder, filters)
//	POST   <path>            create
//	GET    <path>/<id>       read
//	PATCH  <path>/<id>       partial update
//	DELETE <path>/<id>       delete
//	POST   <path>/bulk       {"action", "ids"}
//
// Creates and updates are broadcast to the resource's topic using its configured event names.
type Sandbox struct {
	store     Store
	hub       Broadcaster
	resources []models.Resource
	pageSize  int
	logger    *log.Logger
}

// bulkPatches maps status-changing bulk actions onto the patch they apply.
var bulkPatches = map[string]map[string]any{
	"activate":   {"isActive": true},
	"deactivate": {"isActive": false},
	"approve":    {"status": "Approved"},
	"reject":     {"status": "Rejected"},
}

// NewSandbox creates a sandbox handler.
func NewSandbox(opts SandboxOpts) *Sandbox {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultPageSize
	}
	return &Sandbox{
		store:     opts.Store,
		hub:       opts.Hub,
		resources: opts.Resources,
		pageSize:  opts.PageSize,
		logger:    opts.Logger,
	}
}

// Routes implements [Handler].
func (s *Sandbox) Routes() []string {
	routes := []string{"GET /{$}"}
	for _, res := range s.resources {
		routes = append(routes, res.APIPath(), res.APIPath()+"/")
	}
	return routes
}

// ServeHTTP dispatches on the resource path and method.
func (s *Sandbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.index(w, r)
		return
	}

	res, rest, ok := s.resolve(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.list(w, r, res)
	case rest == "" && r.Method == http.MethodPost:
		s.create(w, r, res)
	case rest == "bulk" && r.Method == http.MethodPost:
		s.bulk(w, r, res)
	case rest != "" && !strings.Contains(rest, "/"):
		switch r.Method {
		case http.MethodGet:
			s.get(w, r, res, rest)
		case http.MethodPatch, http.MethodPut:
			s.update(w, r, res, rest)
		case http.MethodDelete:
			s.delete(w, r, res, rest)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// resolve finds the resource owning a path and returns the remainder after its prefix.
func (s *Sandbox) resolve(path string) (models.Resource, string, bool) {
	for _, res := range s.resources {
		rest, ok := strings.CutPrefix(path, res.APIPath())
		if !ok {
			continue
		}
		if rest == "" {
			return res, "", true
		}
		if after, ok := strings.CutPrefix(rest, "/"); ok {
			return res, strings.TrimSuffix(after, "/"), true
		}
	}
	return models.Resource{}, "", false
}

type resourceInfo struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Topic  string   `json:"topic,omitempty"`
	Count  int      `json:"count"`
	Events []string `json:"events,omitempty"`
}

func (s *Sandbox) index(w http.ResponseWriter, r *http.Request) {
	out := make([]resourceInfo, 0, len(s.resources))
	for _, res := range s.resources {
		n, err := s.store.Count(r.Context(), res.Name)
		if err != nil {
			s.fail(w, err)
			return
		}
		out = append(out, resourceInfo{
			Name:   res.Name,
			Path:   res.APIPath(),
			Topic:  res.Topic,
			Count:  n,
			Events: slices.Sorted(maps.Keys(res.Events)),
		})
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: out})
}

func (s *Sandbox) list(w http.ResponseWriter, r *http.Request, res models.Resource) {
	q, err := models.ParseQueryState(r.URL.Query(), s.pageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: %v", shared.ErrInvalidQuery, err))
		return
	}

	records, err := s.store.List(r.Context(), res.Name)
	if err != nil {
		s.fail(w, err)
		return
	}

	view := table.NewEngine(query.FieldsOf(res)).View(records, q)
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Data:    view.Items,
		Pagination: &pagination{
			Page:        view.Page,
			Limit:       view.PageSize,
			Total:       view.Filtered,
			TotalPages:  view.TotalPages,
			HasNextPage: view.HasNext,
			HasPrevPage: view.HasPrev,
		},
	})
}

func (s *Sandbox) get(w http.ResponseWriter, r *http.Request, res models.Resource, id string) {
	rec, err := s.store.Get(r.Context(), res.Name, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: rec})
}

func (s *Sandbox) create(w http.ResponseWriter, r *http.Request, res models.Resource) {
	body, err := readRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Create(r.Context(), res.Name, body)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.publish(res, models.Created, rec, rec)
	writeJSON(w, http.StatusCreated, response{Success: true, Data: rec})
}

func (s *Sandbox) update(w http.ResponseWriter, r *http.Request, res models.Resource, id string) {
	patch, err := readRecord(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Update(r.Context(), res.Name, id, patch)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.publish(res, models.Updated, rec, patch)
	writeJSON(w, http.StatusOK, response{Success: true, Data: rec})
}

func (s *Sandbox) delete(w http.ResponseWriter, r *http.Request, res models.Resource, id string) {
	if err := s.store.Delete(r.Context(), res.Name, id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Affected: 1})
}

type bulkRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

func (s *Sandbox) bulk(w http.ResponseWriter, r *http.Request, res models.Resource) {
	var req bulkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: %v", shared.ErrInvalidInput, err))
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if req.Action == "delete" {
		n, err := s.store.DeleteMany(r.Context(), res.Name, req.IDs)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, Affected: n})
		return
	}

	fields, ok := bulkPatches[req.Action]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported action %q", req.Action))
		return
	}

	patch := models.DecodeRecord(maps.Clone(fields))
	updated, err := s.store.UpdateMany(r.Context(), res.Name, req.IDs, patch)
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, rec := range updated {
		s.publish(res, models.Updated, rec, patch)
	}
	writeJSON(w, http.StatusOK, response{Success: true, Affected: len(updated)})
}

// publish broadcasts a change to the resource's room under the matching event name.
func (s *Sandbox) publish(res models.Resource, kind models.EventKind, rec, change models.Record) {
	if s.hub == nil || res.Topic == "" {
		return
	}
	name, ok := eventFor(res, kind, change)
	if !ok {
		return
	}

	var payload any = rec
	if isStatusChange(change) && strings.Contains(name, "status") {
		payload = map[string]any{"customerId": rec.ID, "isActive": rec.Value("isActive"), "status": rec.Value("status")}
	}

	if _, err := s.hub.Broadcast(res.Topic, name, payload); err != nil {
		s.logger.Error("broadcast failed", "resource", res.Name, "event", name, "err", err)
	}
}

// eventFor picks the configured event name for a change.
//
// Status-only changes prefer an event whose name mentions status; other changes avoid one.
func eventFor(res models.Resource, kind models.EventKind, change models.Record) (string, bool) {
	kinds, err := res.EventKinds()
	if err != nil {
		return "", false
	}

	var names []string
	for _, name := range slices.Sorted(maps.Keys(kinds)) {
		if kinds[name] == kind {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}

	wantStatus := kind == models.Updated && isStatusChange(change)
	for _, name := range names {
		if strings.Contains(name, "status") == wantStatus {
			return name, true
		}
	}
	return names[0], true
}

func isStatusChange(change models.Record) bool {
	if len(change.Fields) == 0 {
		return false
	}
	for k := range change.Fields {
		if k != "isActive" && k != "status" && k != "id" {
			return false
		}
	}
	return true
}

func (s *Sandbox) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func readRecord(r *http.Request) (models.Record, error) {
	var raw map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return models.Record{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return models.DecodeRecord(raw), nil
}
