package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/meetingbaas/settings/internal/tasks"
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
	MsgLoaded MsgKind = iota
	MsgApplied
	MsgResent
	MsgProgressUpdate
)

type outcome struct {
	label string
	err   error
}

// loadedMsg is the constructor for [MsgLoaded]
func loadedMsg(err error) Msg {
	return Msg{kind: MsgLoaded, data: outcome{err: err}}
}

// appliedMsg is the constructor for [MsgApplied]
func appliedMsg(label string, err error) Msg {
	return Msg{kind: MsgApplied, data: outcome{label: label, err: err}}
}

// resentMsg is the constructor for [MsgResent]
func resentMsg(label string, err error) Msg {
	return Msg{kind: MsgResent, data: outcome{label: label, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}
