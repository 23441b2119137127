package merge

import (
	"fmt"

	"marclink/internal/failures"
)

// Warning is a merge conflict resolved by keeping the survivor's field.
type Warning struct {
	ControlNumber string
	Tag           string
	Reason        string
}

func (w Warning) Error() string {
	return fmt.Sprintf("merge %s field %s: %s", w.ControlNumber, w.Tag, w.Reason)
}

func (w Warning) Unwrap() error { return failures.ErrPolicyGap }
