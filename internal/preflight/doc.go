// Package preflight verifies the watch directory and captioning service before
// the daemon starts and backs the `shotnamer check` command.
package preflight
