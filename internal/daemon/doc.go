// Package daemon coordinates the long-running watch process.
//
// It wires the directory watcher to the rename pipeline under a flock-based
// lock per watched directory, so two processes never race on the same files.
// Startup checks and configuration loading live with the caller; the daemon
// focuses on lifecycle.
package daemon
