package script

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/botectl/internal/poll"
	"github.com/rs/zerolog/log"
)

var ErrStepTimedOut = errors.New("script: required step timed out")

// ExpectError reports a response that differs from the step's expect value.
type ExpectError struct {
	Step    int
	Command string
	Want    string
	Got     string
}

func (e *ExpectError) Error() string {
	return fmt.Sprintf("script: step %d %s: want %q, got %q", e.Step, e.Command, e.Want, e.Got)
}

// Invoker is satisfied by command.Invoker and device.Device.
type Invoker interface {
	Invoke(ctx context.Context, name string, args ...any) (string, error)
}

type Runner struct {
	Invoker Invoker
	// Wait is used when neither the script nor the step sets one.
	Wait  poll.Config
	Clock poll.Clock
}

type StepReport struct {
	Index    int
	Command  string
	Response string
	State    poll.State
	Attempts int
	Elapsed  time.Duration
}

type Report struct {
	Name  string
	Steps []StepReport
	Vars  map[string]string
}

// Run executes s in order and stops at the first failing step. The report
// covers every step that ran, including the failing one.
func (r *Runner) Run(ctx context.Context, s Script) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}
	rep := Report{Name: s.Name, Vars: make(map[string]string)}
	log.Info().Msgf("script.Run name=%q steps=%d", s.Name, len(s.Steps))
	for i, step := range s.Steps {
		sr, err := r.runStep(ctx, s, i, step, rep.Vars)
		rep.Steps = append(rep.Steps, sr)
		if err != nil {
			log.Error().Msgf("script.Run name=%q step=%d command=%s err=%v", s.Name, i, step.Command, err)
			return rep, err
		}
		if step.Save != "" {
			rep.Vars[step.Save] = sr.Response
		}
	}
	return rep, nil
}

func (r *Runner) runStep(ctx context.Context, s Script, i int, step Step, vars map[string]string) (StepReport, error) {
	args := expand(step.Args, vars)
	sr := StepReport{Index: i, Command: step.Command}
	fn := func(ctx context.Context) (string, error) {
		return r.Invoker.Invoke(ctx, step.Command, args...)
	}

	if step.UntilNot == nil {
		start := time.Now()
		resp, err := fn(ctx)
		sr.Attempts, sr.Elapsed = 1, time.Since(start)
		if err != nil {
			return sr, err
		}
		sr.Response, sr.State = resp, poll.Succeeded
	} else {
		p := &poll.Poller{Config: r.waitFor(s, step), Clock: r.Clock}
		out, err := p.Until(ctx, *step.UntilNot, fn)
		sr.Response, sr.State, sr.Attempts, sr.Elapsed = out.Value, out.State, out.Attempts, out.Elapsed
		if err != nil {
			return sr, err
		}
		if !out.Found() && step.Required {
			return sr, fmt.Errorf("%w: step %d %s after %s", ErrStepTimedOut, i, step.Command, out.Elapsed)
		}
	}
	log.Debug().Msgf("script.step index=%d command=%s state=%s attempts=%d", i, step.Command, sr.State, sr.Attempts)

	if step.Expect != nil && sr.Response != *step.Expect {
		return sr, &ExpectError{Step: i, Command: step.Command, Want: *step.Expect, Got: sr.Response}
	}
	return sr, nil
}

func (r *Runner) waitFor(s Script, step Step) poll.Config {
	cfg := r.Wait
	if cfg.Interval <= 0 {
		cfg = poll.DefaultConfig()
	}
	if s.Wait > 0 {
		cfg.Wait = s.Wait
	}
	if s.Interval > 0 {
		cfg.Interval = s.Interval
	}
	if step.Wait > 0 {
		cfg.Wait = step.Wait
	}
	return cfg
}

// ${name} is the saved response; ${name.N} is its N-th "|" field.
var refRE = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:\.(\d+))?\}`)

func refs(args []any) []string {
	var out []string
	for _, a := range args {
		s, ok := a.(string)
		if !ok {
			continue
		}
		for _, m := range refRE.FindAllStringSubmatch(s, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func expand(args []any, vars map[string]string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			out[i] = a
			continue
		}
		out[i] = refRE.ReplaceAllStringFunc(s, func(ref string) string {
			m := refRE.FindStringSubmatch(ref)
			v := vars[m[1]]
			if m[2] == "" {
				return v
			}
			n, _ := strconv.Atoi(m[2])
			fields := strings.Split(v, "|")
			if n >= len(fields) {
				return ""
			}
			return fields[n]
		})
	}
	return out
}
