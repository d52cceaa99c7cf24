// Package store provides SQLite-backed snapshot storage.
//
// A snapshot is one row in snapshots plus one row per saved node in
// snapshot_nodes. Saving under an existing name replaces the previous
// snapshot in a single transaction; the node rows go with it through
// ON DELETE CASCADE.
//
// # Critical Patterns
//
// CP-1: Canonical Values
//   - Endpoint values are stored as canonical JSON (RFC 8785) with their
//     type tag, so 1.0 reloads as a float and equal snapshots store equal
//     bytes
//
// CP-2: Deterministic Reads
//   - Nodes are read back ORDER BY position, which is the order Save
//     produced (parents before children)
//   - Listings are ORDER BY name COLLATE BINARY
package store
