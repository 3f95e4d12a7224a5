package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up          key.Binding
	down        key.Binding
	enter       key.Binding
	back        key.Binding
	feed        key.Binding
	watchlist   key.Binding
	collections key.Binding
	nextTab     key.Binding
	prevTab     key.Binding
	nextPage    key.Binding
	prevPage    key.Binding
	toggle      key.Binding
	favorite    key.Binding
	toWatch     key.Binding
	watched     key.Binding
	remove      key.Binding
	trailer     key.Binding
	account     key.Binding
	switchMode  key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		feed:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "feed")),
		watchlist:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "watchlist")),
		collections: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "collections")),
		nextTab:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next tab")),
		prevTab:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev tab")),
		nextPage:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		prevPage:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev page")),
		toggle:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watchlist ±")),
		favorite:    key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "favorite")),
		toWatch:     key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "to watch")),
		watched:     key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "watched")),
		remove:      key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		trailer:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open trailer")),
		account:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "sign in/out")),
		switchMode:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "sign in ⇄ sign up")),
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.feed, k.watchlist, k.collections, k.account, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.nextPage, k.prevPage, k.nextTab, k.prevTab},
		{k.toggle, k.favorite, k.toWatch, k.watched, k.remove},
		{k.trailer, k.account, k.quit},
	}
}
