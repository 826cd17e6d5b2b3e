package sign

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation reports malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound reports a name with no matching animation or preset.
	ErrNotFound = errors.New("not found")
	// ErrConnection marks failures to reach or talk to the sign. The worker
	// absorbs these and reconnects; callers only see them in job results.
	ErrConnection = errors.New("connection error")
	// ErrStopped is returned for submissions after the worker has stopped and
	// is the failure reason given to jobs still queued at shutdown.
	ErrStopped = errors.New("sign worker stopped")
	// ErrQueueFull rejects submissions when a queue limit is configured and reached.
	ErrQueueFull = errors.New("queue full")
	// ErrNothingToResume reports a resume request before any animation succeeded.
	ErrNothingToResume = errors.New("nothing to resume")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above; a nil marker leaves the error
// unclassified.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "sign failure"
	}
	return strings.Join(parts, ": ")
}
