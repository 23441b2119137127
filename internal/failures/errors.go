package failures

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat      = errors.New("format error")
	ErrConsistency = errors.New("consistency error")
	ErrPolicyGap   = errors.New("policy gap")
	ErrPersistence = errors.New("persistence error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConsistency
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err must abort the whole run. Persistence failures
// always do; consistency failures only when strict is set. Format errors and
// policy gaps never do.
func Fatal(err error, strict bool) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPersistence):
		return true
	case errors.Is(err, ErrConsistency):
		return strict
	case errors.Is(err, ErrFormat), errors.Is(err, ErrPolicyGap):
		return false
	default:
		return true
	}
}

// Kind returns a short label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	case errors.Is(err, ErrPolicyGap):
		return "policy_gap"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "record linkage failure"
	}
	return strings.Join(parts, ": ")
}
