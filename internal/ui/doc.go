// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The screen hosts one [tasks.Collection]: a server-paginated table with search, filters, a
// date range, sorting, row selection and bulk actions. Fetch completions, pushed events and
// debounce expiries are posted to the program as messages and applied inside Update, so the
// collection is never touched from two goroutines.
//
// Text entry (search, key=value filters, start..end dates, action names) uses
// charmbracelet/bubbles/textinput; the table is charmbracelet/bubbles/table with a leading
// selection column. Keyboard help is rendered by charmbracelet/bubbles/help (press ?).
package ui
