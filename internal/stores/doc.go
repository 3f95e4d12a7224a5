// Package stores holds the application state shared by the CLI and the TUI.
//
// # Stores
//
//   - [SessionStore] : the signed-in identity, persisted under the "session" key so
//     separate CLI invocations share it
//   - [WatchlistStore] : one ordered movie list per [models.Scope]
//   - [CollectionsStore] : the Favorites, To Watch and Watched lists of a signed-in user
//   - [Settings] : small user preferences such as the display name
//
// Every store persists through [repositories.Storage] and writes before it returns,
// so the in-memory state never runs ahead of storage. Changes are announced on
// channels returned by Subscribe; each channel keeps only the latest value.
//
// Callers pass the session explicitly into the watchlist and collections stores.
// When the session changes they reload with the new scope.
package stores
