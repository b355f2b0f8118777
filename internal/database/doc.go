// Package database provides the SQLite-backed file index for opendir.
//
// A Store holds three tables:
//   - file_index: one row per discovered file with its header metadata
//   - tags: free-form labels
//   - file_tags: the many-to-many link between the two
//
// Stores are located through Source descriptors. A Resolver turns a
// descriptor (the default store, a path, a URL, raw bytes, or a registered
// alias) into an open Store.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. A finished index can be published and searched by others as-is
package database
