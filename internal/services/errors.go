package services

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds shared by the rename pipeline and its collaborators. Callers
// branch on them with errors.Is.
var (
	// ErrFilteredOut marks an event skipped by the inclusion filter. It is an
	// expected outcome, not a failure.
	ErrFilteredOut = errors.New("filtered out")
	// ErrInvocationFailed marks a captioning call that was unreachable, timed
	// out, or returned an unusable response.
	ErrInvocationFailed = errors.New("caption invocation failed")
	// ErrMoveFailed marks a rename that could not be completed.
	ErrMoveFailed = errors.New("move failed")
	// ErrServiceUnavailable marks a captioning service that failed the startup
	// connectivity check.
	ErrServiceUnavailable = errors.New("captioning service unavailable")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInvocationFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the failure marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFilteredOut):
		return "filtered_out"
	case errors.Is(err, ErrInvocationFailed):
		return "invocation_failed"
	case errors.Is(err, ErrMoveFailed):
		return "move_failed"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
