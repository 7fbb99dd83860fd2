// Package services defines shared utilities consumed by the rename pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp file names, stage names, and correlation
//     identifiers for logging.
//   - Failure markers plus the Wrap helper that tag errors with a kind
//     (filtered out, invocation failed, move failed, service unavailable) so
//     callers branch with errors.Is instead of matching strings.
//
// Use these helpers when wiring new stages so error handling and observability
// stay uniform.
package services
