// Package models defines domain entities and persistence interfaces for the reelx watchlist client.
//
// The package contains two categories of types:
//
// 1. Value types: plain structs describing catalog data and client state
//   - [Movie] : A catalog title as returned by the provider and as stored in lists
//   - [MovieList] : Ordered set of movies keyed by provider id, shared by the watchlist and collections
//   - [Collections] : The fixed named buckets owned by one user
//   - [Session] : The signed-in identity, or a guest when zero
//   - [Scope] : The storage partition a list lives under
//   - [UserDocument] : The per-user document provisioned at sign-up
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Local accounts with a bcrypt password hash
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
