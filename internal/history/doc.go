// Package history journals completed renames in a local SQLite database.
//
// The journal is append-only and never consulted when processing events; it
// exists so users can see what a screenshot used to be called.
package history
