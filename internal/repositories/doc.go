// Package repositories implements persistence for the watchlist client.
//
// Two kinds of persistence live here:
//
//   - [Storage] : the key-value port the stores read and write whole values through.
//     [SQLiteStorage] uses the kv table, [FileStorage] keeps one JSON file per key on an
//     afero filesystem, and [MemoryStorage] is the in-process fake.
//   - SQL repositories for the local identity backend: [UserRepository] for accounts,
//     [DocumentRepository] for per-user documents and [SessionRepository] for issued tokens.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
