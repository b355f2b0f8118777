// Package model defines the core data structures shared by the crawler, the
// index store and the command line front end.
//
// This package contains the following main types:
//   - FileRecord: A remote file discovered in an open directory listing
//   - Tag: A free-form label attached to file records
//   - Head: The lower-cased HTTP response headers of a classified resource
//
// It also holds the record builder (NewFileRecord and its URL helpers) and the
// error types returned across package boundaries.
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler produces FileRecords, the database persists them and
// the search and report packages consume them.
package model
