// Package services defines the interfaces for the remote backends the watchlist client talks to and implements them.
//
// # Catalog
//
// [TMDBService] implements [CatalogService] against the TMDB v3 API. Requests carry the
// api_key and language query parameters and are paced by an optional [rate.Limiter].
// [APIService] issues raw GETs against the same API for the `api` debugging commands.
//
// # Identity and Documents
//
// A [Backend] is an [IdentityProvider] plus a [DocumentStore]:
//
//   - [LocalBackend] keeps accounts in SQLite with bcrypt password hashes and opaque session tokens.
//   - [FirebaseBackend] calls the Identity Toolkit REST API (accounts:signInWithPassword,
//     accounts:signUp, accounts:lookup) and reads/writes users/{uid} Firestore documents
//     with the ID token as an [oauth2] bearer token. Expired ID tokens are refreshed through
//     the secure token endpoint with the oauth2 refresh flow.
//
// Sessions carry an [oauth2.Token] regardless of backend.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrInvalidCredentials] : wrong email or password
//   - [shared.ErrNetworkUnavailable] : transport failure or 5xx / non-2xx catalog status
//   - [shared.ErrBackendRejected] : the backend refused a well-formed request (email taken, token revoked)
//   - [shared.ErrMalformedResponse] : the body could not be decoded
//
// The catalog returns an empty, non-nil slice alongside any FetchPopular error so views can degrade to an empty feed.
package services
