package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/rednote/browser"
	"github.com/use-agent/rednote/browser/browsertest"
)

func TestRetryPolicyPoll(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		attempts   int
		succeedOn  int // 1-based call that returns true; 0 never
		failOn     int // 1-based call that returns an error; 0 never
		wantOK     bool
		wantErr    error
		wantCalls  int
		wantSleeps int
	}{
		{name: "first try", attempts: 5, succeedOn: 1, wantOK: true, wantCalls: 1, wantSleeps: 0},
		{name: "third try", attempts: 5, succeedOn: 3, wantOK: true, wantCalls: 3, wantSleeps: 2},
		{name: "exhausted", attempts: 4, wantOK: false, wantCalls: 4, wantSleeps: 3},
		{name: "predicate error", attempts: 5, failOn: 2, wantErr: boom, wantCalls: 2, wantSleeps: 1},
		{name: "zero attempts", attempts: 0, succeedOn: 1, wantOK: false, wantCalls: 0, wantSleeps: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &browsertest.Clock{}
			calls := 0
			p := browser.RetryPolicy{Attempts: tt.attempts, Interval: 5 * time.Second}

			ok, err := p.Poll(context.Background(), clock, func(context.Context) (bool, error) {
				calls++
				if calls == tt.failOn {
					return false, boom
				}
				return calls == tt.succeedOn, nil
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(clock.Sleeps) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(clock.Sleeps), tt.wantSleeps)
			}
			if got, want := clock.Total(), time.Duration(tt.wantSleeps)*5*time.Second; got != want {
				t.Errorf("total wait = %v, want %v", got, want)
			}
		})
	}
}

func TestRetryPolicyPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := browser.RetryPolicy{Attempts: 3, Interval: time.Second}
	ok, err := p.Poll(ctx, &browsertest.Clock{}, func(context.Context) (bool, error) {
		return false, nil
	})
	if ok || !errors.Is(err, context.Canceled) {
		t.Errorf("Poll = %v, %v; want false, context.Canceled", ok, err)
	}
}

func TestRealClockHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := browser.RealClock{}.Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep ignored the cancelled context")
	}
}
