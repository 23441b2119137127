package failures

import (
	"strconv"
	"strings"
)

// ConsistencyError reports a cross-reference group that cannot be merged
// safely. It unwraps to ErrConsistency.
type ConsistencyError struct {
	Group         []string
	ControlNumber string
	Reason        string
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	b.WriteString("inconsistent")
	if e.ControlNumber != "" {
		b.WriteString(" record ")
		b.WriteString(strconv.Quote(e.ControlNumber))
	}
	if len(e.Group) > 0 {
		b.WriteString(" in group [")
		b.WriteString(strings.Join(e.Group, ","))
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }
