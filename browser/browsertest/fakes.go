package browsertest

import (
	"context"
	"io"
	"time"

	"github.com/use-agent/rednote/browser"
)

// Clock is a browser.Clock that records requested delays and never blocks.
type Clock struct {
	Sleeps []time.Duration
}

var _ browser.Clock = (*Clock)(nil)

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Sleeps = append(c.Sleeps, d)
	return nil
}

// Total is the sum of all recorded sleeps.
func (c *Clock) Total() time.Duration {
	var t time.Duration
	for _, d := range c.Sleeps {
		t += d
	}
	return t
}

// Launcher hands out a fixed page, or fails with Err.
type Launcher struct {
	Page browser.Page
	Err  error

	Launches int
	Closes   int
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(ctx context.Context) (browser.Page, io.Closer, error) {
	l.Launches++
	if l.Err != nil {
		return nil, nil, l.Err
	}
	return l.Page, closerFunc(func() error {
		l.Closes++
		return nil
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
