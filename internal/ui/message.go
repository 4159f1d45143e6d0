package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/hsx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgMount MsgKind = iota
	MsgApply
	MsgProgressUpdate
	MsgProgressClosed
)

// mountMsg is the constructor for [MsgMount]
func mountMsg() Msg {
	return Msg{kind: MsgMount}
}

// applyMsg is the constructor for [MsgApply]: a collection completion to run inside Update.
func applyMsg(fn func()) Msg {
	return Msg{kind: MsgApply, data: fn}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// progressClosedMsg is the constructor for [MsgProgressClosed]
func progressClosedMsg() Msg {
	return Msg{kind: MsgProgressClosed}
}
