package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/poll"
	"github.com/danmuck/botectl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const loginScript = `
name: login
wait: 2s
interval: 500ms
steps:
  - command: findImage
    args: ["/sdcard/login.png", 0, 0, 0, 0, 0.9, 0, 0, 255, 1]
    until_not: "-1.0|-1.0"
    required: true
    save: login
  - command: click
    args: ["${login.0}", "${login.1}"]
    expect: "true"
  - command: sendKeys
    args: ["user ${login}", true, null]
`

type call struct {
	name string
	args []any
}

type scriptedInvoker struct {
	replies map[string][]string
	calls   []call
	err     error
}

func (s *scriptedInvoker) Invoke(_ context.Context, name string, args ...any) (string, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if s.err != nil {
		return "", s.err
	}
	q := s.replies[name]
	if len(q) == 0 {
		return "true", nil
	}
	if len(q) > 1 {
		s.replies[name] = q[1:]
	}
	return q[0], nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

func TestParseScript(t *testing.T) {
	s, err := Parse([]byte(loginScript))
	require.NoError(t, err)
	require.Equal(t, "login", s.Name)
	require.Equal(t, 2*time.Second, s.Wait)
	require.Equal(t, 500*time.Millisecond, s.Interval)
	require.Len(t, s.Steps, 3)
	require.Equal(t, "-1.0|-1.0", *s.Steps[0].UntilNot)
	require.Equal(t, []any{"/sdcard/login.png", 0, 0, 0, 0, 0.9, 0, 0, 255, 1}, s.Steps[0].Args)
}

func TestParseRejectsInvalidScripts(t *testing.T) {
	cases := map[string]string{
		"no steps":       "name: x\n",
		"no command":     "steps:\n  - args: [1]\n",
		"unsaved ref":    "steps:\n  - command: click\n    args: [\"${p}\"]\n",
		"required alone": "steps:\n  - command: click\n    required: true\n",
		"bad yaml":       "steps: [",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		require.ErrorIs(t, err, ErrInvalidScript, name)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.yaml")
	require.NoError(t, os.WriteFile(path, []byte(loginScript), 0o644))
	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "login", s.Name)
}

func TestRunPollsSavesAndSubstitutes(t *testing.T) {
	testlog.Start(t)
	inv := &scriptedInvoker{replies: map[string][]string{
		"findImage": {"-1.0|-1.0", "-1.0|-1.0", "40|80"},
	}}
	s, err := Parse([]byte(loginScript))
	require.NoError(t, err)

	r := &Runner{Invoker: inv, Clock: &fakeClock{now: time.Unix(0, 0)}}
	rep, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, rep.Steps, 3)
	require.Equal(t, 3, rep.Steps[0].Attempts)
	require.Equal(t, poll.Succeeded, rep.Steps[0].State)
	require.Equal(t, "40|80", rep.Vars["login"])

	require.Len(t, inv.calls, 5)
	require.Equal(t, []any{"40", "80"}, inv.calls[3].args)
	require.Equal(t, []any{"user 40|80", true, nil}, inv.calls[4].args)
}

func TestRunRequiredStepTimesOut(t *testing.T) {
	testlog.Start(t)
	inv := &scriptedInvoker{replies: map[string][]string{"findImage": {"-1.0|-1.0"}}}
	s, err := Parse([]byte(loginScript))
	require.NoError(t, err)

	r := &Runner{Invoker: inv, Clock: &fakeClock{now: time.Unix(0, 0)}}
	rep, err := r.Run(context.Background(), s)
	require.ErrorIs(t, err, ErrStepTimedOut)
	require.Len(t, rep.Steps, 1)
	require.Equal(t, poll.TimedOut, rep.Steps[0].State)
	require.Equal(t, 6, rep.Steps[0].Attempts)
}

func TestRunExpectMismatch(t *testing.T) {
	testlog.Start(t)
	inv := &scriptedInvoker{replies: map[string][]string{
		"findImage": {"1|2"},
		"click":     {"false"},
	}}
	s, err := Parse([]byte(loginScript))
	require.NoError(t, err)

	r := &Runner{Invoker: inv, Clock: &fakeClock{now: time.Unix(0, 0)}}
	_, err = r.Run(context.Background(), s)
	var expErr *ExpectError
	require.ErrorAs(t, err, &expErr)
	require.Equal(t, 1, expErr.Step)
	require.Equal(t, "false", expErr.Got)
}

func TestRunStopsOnInvokeError(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("reset")
	inv := &scriptedInvoker{err: boom}
	s, err := Parse([]byte("steps:\n  - command: click\n  - command: swipe\n"))
	require.NoError(t, err)

	r := &Runner{Invoker: inv}
	rep, err := r.Run(context.Background(), s)
	require.ErrorIs(t, err, boom)
	require.Len(t, rep.Steps, 1)
	require.Len(t, inv.calls, 1)
}

func TestWaitPrecedence(t *testing.T) {
	r := &Runner{Wait: poll.Config{Wait: time.Second, Interval: time.Second}}
	require.Equal(t, poll.Config{Wait: time.Second, Interval: time.Second}, r.waitFor(Script{}, Step{}))
	require.Equal(t, poll.Config{Wait: 4 * time.Second, Interval: 200 * time.Millisecond},
		r.waitFor(Script{Wait: 3 * time.Second, Interval: 200 * time.Millisecond}, Step{Wait: 4 * time.Second}))
	require.Equal(t, poll.DefaultConfig(), (&Runner{}).waitFor(Script{}, Step{}))
}
