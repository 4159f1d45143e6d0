package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/live"
	"github.com/desertthunder/hsx/internal/merge"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/query"
	"github.com/desertthunder/hsx/internal/services"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/table"
)

// Bridge is the part of the push channel a list view uses. [*live.ConnectionManager] satisfies it.
type Bridge interface {
	Join(topic string) (release func())
	SubscribeRecords(name string, kind models.EventKind, h func(models.LiveEvent)) (unsubscribe func())
	OnState(h live.StateHandler) (unsubscribe func())
}

// CollectionOpts configures a [Collection].
type CollectionOpts struct {
	Resource models.Resource
	Fetcher  services.Fetcher
	Bulk     *BulkRunner        // Optional; enables [Collection.Bulk]
	Live     Bridge             // Optional; enables live updates
	Poster   Poster             // Required; owner of all Collection state
	PageSize int                // Default: [models.DefaultPageSize]
	Query    *models.QueryState // Optional first query; PageSize applies when it has none
	Debounce time.Duration      // Search and text filter delay (default: [DefaultDebounce])
	Logger   *log.Logger
	Progress chan<- ProgressUpdate // Optional; receives non-blocking state updates
}

// Collection is the controller of one server-paginated list view.
//
// Every method must be called from the goroutine behind the configured [Poster]; fetch
// completions, pushed events and debounce expiries are posted back to it. A generation counter
// discards fetch results that are not for the latest request, and an active flag discards
// anything arriving after [Collection.Unmount].
type Collection struct {
	res      models.Resource
	fields   query.Fields
	fetcher  services.Fetcher
	bulk     *BulkRunner
	bridge   Bridge
	poster   Poster
	logger   *log.Logger
	progress chan<- ProgressUpdate
	debounce *Debouncer

	ctx         context.Context
	cancel      context.CancelFunc
	cancelFetch context.CancelFunc
	teardown    []func()

	active     bool
	generation uint64
	query      models.QueryState
	page       models.PageResult
	resident   *table.Table // Rows of page and their selection
	loading    bool
	busy       bool
	bulkStatus string
	notice     string
	err        error
	conn       live.State
	connected  bool
}

// NewCollection returns an unmounted collection.
func NewCollection(opts CollectionOpts) *Collection {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	q := models.NewQueryState(opts.PageSize)
	if opts.Query != nil {
		q = opts.Query.WithPage(opts.Query.Page)
		if q.PageSize <= 0 {
			q.PageSize = models.NewQueryState(opts.PageSize).PageSize
		}
	}

	return &Collection{
		res:       opts.Resource,
		fields:    query.FieldsOf(opts.Resource),
		fetcher:   opts.Fetcher,
		bulk:      opts.Bulk,
		bridge:    opts.Live,
		poster:    opts.Poster,
		logger:    shared.WithLogger(logger, "resource", opts.Resource.Name),
		progress:  opts.Progress,
		debounce:  NewDebouncer(opts.Debounce),
		query:     q,
		page:      models.EmptyPage(q),
		resident:  table.New(table.NewEngine(query.Fields{}), q.PageSize),
	}
}

// Resource returns the described collection.
func (c *Collection) Resource() models.Resource { return c.res }

// Query returns the current query snapshot.
func (c *Collection) Query() models.QueryState { return c.query }

// Page returns the resident page.
func (c *Collection) Page() models.PageResult { return c.page }

// Selection returns the selected identifiers.
func (c *Collection) Selection() *table.Selection { return c.resident.Selection() }

// Loading reports whether the latest fetch is outstanding.
func (c *Collection) Loading() bool { return c.loading }

// Busy reports whether a bulk action is running.
func (c *Collection) Busy() bool { return c.busy }

// Notice is the message shown after the last failure; empty after a successful fetch.
func (c *Collection) Notice() string { return c.notice }

// BulkStatus describes the outcome of the last bulk action.
func (c *Collection) BulkStatus() string { return c.bulkStatus }

// Err is the error behind [Collection.Notice].
func (c *Collection) Err() error { return c.err }

// Connection returns the last observed push channel state.
func (c *Collection) Connection() live.State { return c.conn }

// Active reports whether the view is mounted.
func (c *Collection) Active() bool { return c.active }

// Mount starts the view: it joins the resource room, subscribes to its events and fetches the
// first page. Mounting an active collection is a no-op.
func (c *Collection) Mount(ctx context.Context) error {
	if c.active {
		return nil
	}
	if c.fetcher == nil || c.poster == nil {
		return fmt.Errorf("%w: collection needs a fetcher and a poster", shared.ErrInvalidConfig)
	}

	kinds, err := c.res.EventKinds()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.active = true

	if c.bridge != nil && c.res.Topic != "" {
		c.teardown = append(c.teardown, c.bridge.OnState(func(s live.State) {
			c.poster.Post(func() { c.onState(s) })
		}))
		for name, kind := range kinds {
			c.teardown = append(c.teardown, c.bridge.SubscribeRecords(name, kind, func(ev models.LiveEvent) {
				c.poster.Post(func() { c.HandleEvent(ev) })
			}))
		}
		c.teardown = append(c.teardown, c.bridge.Join(c.res.Topic))
	}

	c.logger.Info("mounted", "topic", c.res.Topic, "events", len(kinds))
	c.fetch()
	return nil
}

// Unmount stops the view. Outstanding fetches, debounced searches and queued events are dropped.
// The shared push channel stays open.
func (c *Collection) Unmount() {
	if !c.active {
		return
	}
	c.active = false
	c.debounce.Cancel()
	c.cancel()

	for i := len(c.teardown) - 1; i >= 0; i-- {
		c.teardown[i]()
	}
	c.teardown = nil
	c.loading = false
	c.logger.Info("unmounted")
}

// SetSearch replaces the search term and fetches the first page after the debounce delay.
func (c *Collection) SetSearch(term string) {
	if term == c.query.Search {
		return
	}
	c.query = c.query.WithSearch(term)
	c.fetchDebounced()
}

// SetFilter sets or clears (empty value) a column filter. Text filters are debounced.
func (c *Collection) SetFilter(key, value string) {
	if c.query.Filters[key] == value {
		return
	}
	c.query = c.query.WithFilter(key, value)
	if c.res.IsTextFilter(key) {
		c.fetchDebounced()
		return
	}
	c.fetch()
}

// SetDateRange replaces the date range and fetches the first page.
func (c *Collection) SetDateRange(d *models.DateRange) {
	c.query = c.query.WithDateRange(d)
	c.fetch()
}

// SetSort orders by one key and fetches the first page.
func (c *Collection) SetSort(key string, dir models.Direction) {
	c.query = c.query.WithSort(key, dir)
	c.fetch()
}

// ToggleSort sorts ascending by a new key or flips the direction of the current one.
func (c *Collection) ToggleSort(key string) {
	dir := models.Ascending
	if s := c.query.Sort; s != nil && s.Key == key && s.Direction == models.Ascending {
		dir = models.Descending
	}
	c.SetSort(key, dir)
}

// SetPage navigates to a page, clamped to the known page count.
func (c *Collection) SetPage(page int) {
	page = table.ClampPage(page, c.page.TotalPages)
	if page == c.query.Page {
		return
	}
	c.query = c.query.WithPage(page)
	c.fetch()
}

// Next moves to the following page when there is one.
func (c *Collection) Next() {
	if c.page.HasNext {
		c.SetPage(c.query.Page + 1)
	}
}

// Prev moves to the preceding page when there is one.
func (c *Collection) Prev() {
	if c.query.Page > 1 {
		c.SetPage(c.query.Page - 1)
	}
}

// SetPageSize changes the page size and fetches the first page.
func (c *Collection) SetPageSize(size int) {
	if size == c.query.PageSize {
		return
	}
	c.query = c.query.WithPageSize(size)
	c.fetch()
}

// Refresh refetches the current page.
func (c *Collection) Refresh() {
	c.fetch()
}

// ToggleRow flips the selection of one resident record.
func (c *Collection) ToggleRow(id string) bool {
	return c.resident.ToggleRow(id)
}

// ToggleAll complements the selection of the resident page.
func (c *Collection) ToggleAll() {
	c.resident.ToggleAll()
}

// ClearSelection deselects everything.
func (c *Collection) ClearSelection() {
	c.resident.Selection().Clear()
}

// HandleEvent reconciles one pushed event into the resident page under the current query.
func (c *Collection) HandleEvent(ev models.LiveEvent) {
	if !c.active {
		return
	}

	next, out := merge.Reconcile(c.page, ev, c.query, c.fields)
	if out.Changed() {
		c.page = next
		c.resident.Replace(next.Items)
		c.logger.Info("event applied", "event", ev.Name, "id", ev.Record.ID, "outcome", out)
	} else {
		c.logger.Debug("event ignored", "event", ev.Name, "id", ev.Record.ID, "outcome", out)
	}
	sendProgress(c.progress, eventUpdate(ev, out, c.page))
}

// Bulk applies an action to every selected record, then clears the selection and refetches.
func (c *Collection) Bulk(action string) error {
	ids := c.resident.Selection().Selected()
	switch {
	case !c.active:
		return fmt.Errorf("%w: view is not mounted", shared.ErrInvalidInput)
	case c.bulk == nil:
		return fmt.Errorf("%w: bulk actions are not available", shared.ErrNotImplemented)
	case len(ids) == 0:
		return fmt.Errorf("%w: nothing selected", shared.ErrMissingArgument)
	case c.busy:
		return fmt.Errorf("%w: a bulk action is already running", shared.ErrInvalidInput)
	}

	c.busy = true
	ctx, path := c.ctx, c.res.APIPath()
	go func() {
		res, err := c.bulk.Run(ctx, c.progress, path, action, ids)
		c.poster.Post(func() { c.applyBulk(res, err) })
	}()
	return nil
}

func (c *Collection) applyBulk(res *BulkResult, err error) {
	c.busy = false
	if !c.active {
		return
	}

	c.resident.Selection().Clear()
	if res != nil {
		update := bulkAppliedUpdate(res)
		c.bulkStatus = update.Message
		c.logger.Info("bulk action applied", "action", res.Action, "affected", res.Affected, "requested", res.Requested)
		sendProgress(c.progress, update)
	}
	if err != nil {
		c.bulkStatus = err.Error()
		c.logger.Error("bulk action failed", "err", err)
	}
	c.fetch()
}

func (c *Collection) onState(s live.State) {
	if !c.active {
		return
	}
	c.conn = s
	sendProgress(c.progress, connectionUpdate(s))

	if s != live.Connected {
		return
	}
	// Events pushed while disconnected are lost; refetch after a reconnect.
	if c.connected {
		c.logger.Info("reconnected, refreshing")
		c.fetch()
	}
	c.connected = true
}

func (c *Collection) fetchDebounced() {
	c.debounce.Trigger(func() {
		c.poster.Post(func() {
			if c.active {
				c.fetch()
			}
		})
	})
}

// fetch issues a request for the current query. Only the newest request can be applied.
func (c *Collection) fetch() {
	if !c.active {
		return
	}
	c.debounce.Cancel()
	if c.cancelFetch != nil {
		c.cancelFetch()
	}

	c.generation++
	gen, q := c.generation, c.query
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelFetch = cancel
	c.loading = true

	c.logger.Debug("fetching", "generation", gen, "query", q.Key())
	sendProgress(c.progress, fetchStartedUpdate(q))

	path := c.res.APIPath()
	go func() {
		page, err := c.fetcher.FetchPage(ctx, path, q)
		c.poster.Post(func() { c.applyFetch(gen, q, page, err) })
	}()
}

func (c *Collection) applyFetch(gen uint64, q models.QueryState, page *models.PageResult, err error) {
	if !c.active || gen != c.generation || !q.Equal(c.query) {
		c.logger.Debug(shared.ErrStaleResponse.Error(), "generation", gen, "current", c.generation)
		return
	}
	c.loading = false
	c.cancelFetch = nil

	if err != nil {
		c.applyFetchError(q, err)
		return
	}
	if page == nil {
		empty := models.EmptyPage(q)
		page = &empty
	}

	next := page.Normalize()
	c.setPage(next)
	c.notice, c.err = "", nil
	sendProgress(c.progress, fetchAppliedUpdate(next))

	// A delete can leave the requested page past the end.
	if len(next.Items) == 0 && q.Page > 1 && next.TotalPages > 0 && q.Page > next.TotalPages {
		c.SetPage(next.TotalPages)
	}
}

func (c *Collection) applyFetchError(q models.QueryState, err error) {
	c.err = err

	var se *services.ServerError
	if errors.As(err, &se) {
		c.notice = se.Message
		if c.notice == "" {
			c.notice = se.Error()
		}
		c.logger.Warn("server rejected request", "status", se.Status, "message", se.Message)
		sendProgress(c.progress, fetchFailedUpdate(c.notice, err))
		return
	}

	c.setPage(models.EmptyPage(q))
	c.notice = fmt.Sprintf("Could not load %s", c.res.Name)
	c.logger.Warn("fetch failed", "err", err)
	sendProgress(c.progress, fetchFailedUpdate(c.notice, err))
}

// setPage installs a fetched page. The selection is cleared when the resident ids change.
func (c *Collection) setPage(p models.PageResult) {
	c.page = p
	c.resident.SetPageSize(max(p.PageSize, len(p.Items), 1))
	c.resident.SetSource(p.Items)
}
