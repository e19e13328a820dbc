package browser

import (
	"context"
	"time"
)

// RetryPolicy bounds a polling loop: at most Attempts evaluations, with
// Interval between consecutive ones.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// Poll evaluates pred until it reports true, returns an error, or the
// attempts run out. It reports whether pred was satisfied. Running out of
// attempts is not an error; a cancelled ctx is.
func (p RetryPolicy) Poll(ctx context.Context, clock Clock, pred func(context.Context) (bool, error)) (bool, error) {
	for i := 0; i < p.Attempts; i++ {
		if i > 0 {
			if err := clock.Sleep(ctx, p.Interval); err != nil {
				return false, err
			}
		}
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
