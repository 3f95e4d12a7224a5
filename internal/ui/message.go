package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/stores"
	"github.com/desertthunder/reelx/internal/tasks"
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
	MsgFeedLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSessionChanged
	MsgWatchlistChanged
	MsgCollectionsChanged
	MsgAuthResult
	MsgActionDone
)

type feedLoaded struct {
	result *tasks.FeedResult
	err    error
}

type authResult struct {
	session models.Session
	err     error
}

// feedLoadedMsg is the constructor for [MsgFeedLoaded]
func feedLoadedMsg(result *tasks.FeedResult, err error) Msg {
	return Msg{kind: MsgFeedLoaded, data: feedLoaded{result, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(s models.Session) Msg {
	return Msg{kind: MsgSessionChanged, data: s}
}

// watchlistChangedMsg is the constructor for [MsgWatchlistChanged]
func watchlistChangedMsg(c stores.WatchlistChange) Msg {
	return Msg{kind: MsgWatchlistChanged, data: c}
}

// collectionsChangedMsg is the constructor for [MsgCollectionsChanged]
func collectionsChangedMsg(c stores.CollectionsChange) Msg {
	return Msg{kind: MsgCollectionsChanged, data: c}
}

// authResultMsg is the constructor for [MsgAuthResult]
func authResultMsg(s models.Session, err error) Msg {
	return Msg{kind: MsgAuthResult, data: authResult{s, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]; status is shown in the footer.
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{status, err}}
}

type actionDone struct {
	status string
	err    error
}
