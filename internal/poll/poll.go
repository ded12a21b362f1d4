// Package poll repeats a device query until its answer stops being the
// operation's "not ready" sentinel or the wait budget runs out.
package poll

import (
	"context"
	"fmt"
	"time"
)

// State is the poll state machine position.
type State int

const (
	Polling State = iota
	Succeeded
	TimedOut
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the implicit wait applied to search-style operations.
type Config struct {
	Wait     time.Duration
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Wait:     3 * time.Second,
		Interval: 500 * time.Millisecond,
	}
}

// Clock abstracts time so the state machine can be driven deterministically.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Outcome is the terminal result of one poll run.
type Outcome struct {
	State    State
	Value    string
	Attempts int
	Elapsed  time.Duration
}

// Found reports whether polling ended on a non-sentinel value.
func (o Outcome) Found() bool { return o.State == Succeeded }

// Func is one device query.
type Func func(ctx context.Context) (string, error)

// Poller runs the Polling -> Succeeded | TimedOut state machine.
type Poller struct {
	Config Config
	Clock  Clock
}

func New(cfg Config) *Poller {
	return &Poller{Config: cfg, Clock: SystemClock{}}
}

// Until calls fn until it returns something other than sentinel.
func (p *Poller) Until(ctx context.Context, sentinel string, fn Func) (Outcome, error) {
	return p.UntilAny(ctx, []string{sentinel}, fn)
}

// UntilAny treats every value in sentinels as "not ready". A timed out run
// reports the last sentinel observed.
func (p *Poller) UntilAny(ctx context.Context, sentinels []string, fn Func) (Outcome, error) {
	clock := p.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	start := clock.Now()
	out := Outcome{State: Polling}
	for out.State == Polling {
		value, err := fn(ctx)
		out.Attempts++
		if err != nil {
			out.Elapsed = clock.Now().Sub(start)
			return out, err
		}
		out.Value = value
		out.State = p.next(value, sentinels, clock.Now().Sub(start))
		if out.State != Polling {
			break
		}
		if err := clock.Sleep(ctx, p.Config.Interval); err != nil {
			out.Elapsed = clock.Now().Sub(start)
			return out, err
		}
	}
	out.Elapsed = clock.Now().Sub(start)
	record(out)
	return out, nil
}

func (p *Poller) next(value string, sentinels []string, elapsed time.Duration) State {
	for _, s := range sentinels {
		if value == s {
			if elapsed > p.Config.Wait {
				return TimedOut
			}
			return Polling
		}
	}
	return Succeeded
}
