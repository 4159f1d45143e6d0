package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	next      key.Binding
	prev      key.Binding
	search    key.Binding
	filter    key.Binding
	dates     key.Binding
	sort      key.Binding
	flip      key.Binding
	toggle    key.Binding
	toggleAll key.Binding
	clear     key.Binding
	refresh   key.Binding
	remove    key.Binding
	action    key.Binding
	grow      key.Binding
	shrink    key.Binding
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:      key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/n", "next page")),
		prev:      key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/p", "prev page")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		dates:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "date range")),
		sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		flip:      key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "flip sort")),
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		toggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		remove:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		action:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "bulk action")),
		grow:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more rows")),
		shrink:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer rows")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.prev, k.search, k.toggle, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.next, k.prev},
		{k.search, k.filter, k.dates, k.sort, k.flip},
		{k.toggle, k.toggleAll, k.clear, k.remove, k.action},
		{k.refresh, k.grow, k.shrink, k.help, k.quit},
	}
}

// tableKeyMap leaves only row movement to the table so screen bindings take precedence.
func tableKeyMap(k keyMap) table.KeyMap {
	none := key.NewBinding(key.WithDisabled())
	return table.KeyMap{
		LineUp:       k.up,
		LineDown:     k.down,
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		HalfPageUp:   none,
		HalfPageDown: none,
		GotoTop:      key.NewBinding(key.WithKeys("home", "g")),
		GotoBottom:   key.NewBinding(key.WithKeys("end", "G")),
	}
}
