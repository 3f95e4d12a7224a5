// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three top-level views plus an auth form:
//  1. [FeedView] : Browse popular movies page by page
//  2. [WatchlistView] : The watchlist for the current scope (guest or signed-in user)
//  3. [CollectionsView] : Favorites, To Watch and Watched tabs (signed-in only)
//  4. [AuthView] : Sign in or sign up with email and password
//
// Selecting a movie opens a detail overlay with watchlist, collection and trailer actions.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Store changes arrive on subscription channels and are re-armed after every message, so
// every view reflects a mutation without a manual refresh.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
