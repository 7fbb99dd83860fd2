// Package logging assembles structured slog loggers and formatting helpers used
// across shotnamer.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with the
// file, stage, and correlation ID of the event being handled. NewNop provides
// a discarding logger for tests and wiring code that cannot fail.
package logging
