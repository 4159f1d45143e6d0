package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/hsx/internal/formatter"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/desertthunder/hsx/internal/tasks"
)

// Mode is the input state of the screen.
type Mode int

const (
	BrowseMode Mode = iota
	SearchMode
	FilterMode
	DateMode
	ActionMode
	ConfirmMode
)

// Lines used by everything but the table.
const chromeHeight = 10

var pageSizes = []int{5, 10, 20, 50, 100}

// Model is the list screen of one collection.
//
// Every collection completion arrives as an apply message, so the collection is only ever
// touched from Update.
type Model struct {
	ctx      context.Context
	coll     *tasks.Collection
	progress <-chan tasks.ProgressUpdate
	fields   []string
	mode     Mode
	table    table.Model
	input    textinput.Model
	action   string // bulk action awaiting confirmation
	previous string // search term restored by esc
	sortCol  int
	activity string
	err      error
	fatal    error
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// NewModel creates the screen for a collection. progress may be nil.
func NewModel(ctx context.Context, coll *tasks.Collection, progress <-chan tasks.ProgressUpdate) *Model {
	keys := newKeyMap()
	fields := coll.Resource().DisplayColumns()

	t := table.New(
		table.WithColumns(buildColumns(fields, coll.Page())),
		table.WithFocused(true),
		table.WithHeight(coll.Query().PageSize+1),
		table.WithStyles(styles.Table()),
	)
	t.KeyMap = tableKeyMap(keys)

	input := textinput.New()
	input.PromptStyle = styles.prompt
	input.CharLimit = 120

	return &Model{
		ctx:      ctx,
		coll:     coll,
		progress: progress,
		fields:   fields,
		table:    t,
		input:    input,
		help:     help.New(),
		keys:     keys,
	}
}

// Mode returns the current input mode.
func (m *Model) Mode() Mode { return m.mode }

// Err returns the last input or action error.
func (m *Model) Err() error { return m.err }

// Init mounts the collection from inside the event loop and starts listening for progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return mountMsg() }, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.mode {
		case BrowseMode:
			cmd = m.handleBrowseKeys(msg)
		case ConfirmMode:
			m.handleConfirmKeys(msg)
		default:
			cmd = m.handleInputKeys(msg)
		}
		m.sync()
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgMount:
			if err := m.coll.Mount(m.ctx); err != nil {
				m.fatal = err
				return m, tea.Quit
			}
		case MsgApply:
			if fn, ok := msg.data.(func()); ok {
				fn()
			}
		case MsgProgressUpdate:
			m.observe(msg.data.(tasks.ProgressUpdate))
			m.sync()
			return m, m.waitForProgress()
		case MsgProgressClosed:
			m.progress = nil
		}
		m.sync()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) tea.Cmd {
	q := m.coll.Query()
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.quit):
		m.coll.Unmount()
		return tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.next):
		m.coll.Next()
	case key.Matches(msg, m.keys.prev):
		m.coll.Prev()
	case key.Matches(msg, m.keys.refresh):
		m.coll.Refresh()
	case key.Matches(msg, m.keys.search):
		m.previous = q.Search
		return m.prompt(SearchMode, "search: ", q.Search, "name, email, room")
	case key.Matches(msg, m.keys.filter):
		return m.prompt(FilterMode, "filter: ", "", "status=Active")
	case key.Matches(msg, m.keys.dates):
		current := ""
		if q.DateRange != nil && !q.DateRange.IsZero() {
			current = formatRange(*q.DateRange)
		}
		return m.prompt(DateMode, "dates: ", current, "2024-01-01..2024-01-31")
	case key.Matches(msg, m.keys.sort):
		if len(m.fields) > 0 {
			if q.Sort != nil {
				m.sortCol = (m.sortCol + 1) % len(m.fields)
			}
			m.coll.SetSort(m.fields[m.sortCol], models.Ascending)
		}
	case key.Matches(msg, m.keys.flip):
		if len(m.fields) > 0 {
			m.coll.ToggleSort(m.fields[m.sortCol])
		}
	case key.Matches(msg, m.keys.toggle):
		if id := m.cursorID(); id != "" {
			m.coll.ToggleRow(id)
		}
	case key.Matches(msg, m.keys.toggleAll):
		m.coll.ToggleAll()
	case key.Matches(msg, m.keys.clear):
		m.coll.ClearSelection()
	case key.Matches(msg, m.keys.remove):
		m.err = m.confirm("delete")
	case key.Matches(msg, m.keys.action):
		return m.prompt(ActionMode, "action: ", "", "activate, deactivate, approve, reject")
	case key.Matches(msg, m.keys.grow):
		m.coll.SetPageSize(stepPageSize(q.PageSize, 1))
	case key.Matches(msg, m.keys.shrink):
		m.coll.SetPageSize(stepPageSize(q.PageSize, -1))
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.back):
		if m.mode == SearchMode {
			m.coll.SetSearch(m.previous)
		}
		m.closePrompt()
		return nil
	case key.Matches(msg, m.keys.enter):
		mode, value := m.mode, strings.TrimSpace(m.input.Value())
		m.closePrompt()
		m.err = m.submit(mode, value)
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == SearchMode {
		m.coll.SetSearch(m.input.Value())
	}
	return cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.err = m.coll.Bulk(m.action)
		m.mode = BrowseMode
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.mode = BrowseMode
	}
	if m.mode == BrowseMode {
		m.action = ""
	}
}

func (m *Model) submit(mode Mode, value string) error {
	switch mode {
	case SearchMode:
		m.coll.SetSearch(value)
	case FilterMode:
		k, v, err := parseFilter(value)
		if err != nil {
			return err
		}
		m.coll.SetFilter(k, v)
	case DateMode:
		d, err := parseDates(value)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		m.coll.SetDateRange(d)
	case ActionMode:
		if value == "" {
			return fmt.Errorf("%w: action", shared.ErrMissingArgument)
		}
		return m.confirm(strings.ToLower(value))
	}
	return nil
}

func (m *Model) prompt(mode Mode, label, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.input.Prompt = label
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.table.Blur()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.mode = BrowseMode
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

func (m *Model) confirm(action string) error {
	if m.coll.Selection().Len() == 0 {
		return fmt.Errorf("%w: nothing selected", shared.ErrMissingArgument)
	}
	m.action = action
	m.mode = ConfirmMode
	return nil
}

// observe keeps the latest push, connection and bulk message for the status area.
func (m *Model) observe(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchStarted, tasks.FetchApplied:
		return
	}
	if update.Message != "" {
		m.activity = update.Message
	}
}

func (m *Model) cursorID() string {
	items := m.coll.Page().Items
	if i := m.table.Cursor(); i >= 0 && i < len(items) {
		return items[i].ID
	}
	return ""
}

// sync rebuilds the table from the resident page and selection.
func (m *Model) sync() {
	page := m.coll.Page()
	m.table.SetColumns(buildColumns(m.fields, page))
	m.table.SetRows(buildRows(m.fields, page, m.coll.Selection()))
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progress == nil {
		return nil
	}
	ch := m.progress
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return progressClosedMsg()
		}
		return progressUpdateMsg(update)
	}
}

// View renders the screen.
func (m *Model) View() string {
	if m.fatal != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.fatal)) + "\n"
	}

	var b strings.Builder
	res := m.coll.Resource()

	b.WriteString(styles.title.Render(res.Name))
	b.WriteString("  ")
	if res.Topic != "" {
		b.WriteString(styles.Connection(m.coll.Connection()))
	} else {
		b.WriteString(styles.muted.Render("live updates off"))
	}
	b.WriteString("\n")
	b.WriteString(styles.muted.Render(describeQuery(m.coll.Query())))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(m.status())
	b.WriteString("\n")

	if n := m.coll.Notice(); n != "" {
		b.WriteString(styles.warn.Render(n) + "\n")
	} else if err := m.coll.Err(); err != nil {
		b.WriteString(styles.err.Render(err.Error()) + "\n")
	}
	if s := m.coll.BulkStatus(); s != "" {
		b.WriteString(styles.ok.Render(s) + "\n")
	}
	if m.activity != "" {
		b.WriteString(styles.help.Render(m.activity) + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(m.err.Error()) + "\n")
	}

	switch m.mode {
	case BrowseMode:
		b.WriteString("\n" + m.help.View(m.keys))
	case ConfirmMode:
		question := fmt.Sprintf("Apply %q to %d records?", m.action, m.coll.Selection().Len())
		b.WriteString("\n" + styles.prompt.Render(question) + " ")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	default:
		b.WriteString("\n" + m.input.View() + "\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back}))
	}
	return b.String()
}

func (m *Model) status() string {
	parts := []string{formatter.Summary(m.coll.Page())}
	if n := m.coll.Selection().Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if m.coll.Loading() {
		parts = append(parts, "loading…")
	}
	if m.coll.Busy() {
		parts = append(parts, "applying…")
	}
	return strings.Join(parts, " · ")
}

func stepPageSize(current, dir int) int {
	i, found := slices.BinarySearch(pageSizes, current)
	switch {
	case dir > 0 && found:
		i++
	case dir < 0:
		i--
	}
	return pageSizes[min(max(i, 0), len(pageSizes)-1)]
}

// Run shows the collection screen until the user quits or ctx is cancelled.
//
// The collection's poster and progress channel are replaced so its completions are delivered
// to the program as messages.
func Run(ctx context.Context, opts tasks.CollectionOpts) error {
	var program *tea.Program
	progress := make(chan tasks.ProgressUpdate, 64)

	opts.Progress = progress
	opts.Poster = tasks.PostFunc(func(fn func()) {
		program.Send(applyMsg(fn))
	})

	coll := tasks.NewCollection(opts)
	model := NewModel(ctx, coll, progress)
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := program.Run()
	coll.Unmount()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	if fm, ok := final.(*Model); ok && fm.fatal != nil {
		return fm.fatal
	}
	return nil
}
