package transform

import (
	"errors"
	"fmt"
)

// ErrNoTextFound means extraction technically succeeded but produced
// nothing usable. The user can fix this with a clearer photo, so it is
// reported separately from adapter failures.
var ErrNoTextFound = errors.New("no text could be extracted from this image; try a clearer photo with more visible text")

// QuotaExceededError rejects a transform because the free-tier monthly
// limit is spent. It carries the counters the client shows the user.
type QuotaExceededError struct {
	CurrentUsage int
	Limit        int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly transform limit reached (%d/%d)", e.CurrentUsage, e.Limit)
}
