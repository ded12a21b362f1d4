// Package device is the typed operation surface for a remote automation
// agent. Every method frames one command through the invoker; search-style
// methods wrap that call in the poll state machine and map the platform's
// sentinel to NotFound.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/botectl/internal/poll"
	"github.com/danmuck/botectl/internal/protocol/command"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupported       = errors.New("device: operation not supported by profile")
	ErrMalformedResponse = errors.New("device: malformed response")
)

// ResponseError reports a payload that does not fit the operation's shape.
type ResponseError struct {
	Command string
	Payload string
	Err     error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device: %s response %q: %v", e.Command, e.Payload, e.Err)
	}
	return fmt.Sprintf("device: %s response %q", e.Command, e.Payload)
}

func (e *ResponseError) Unwrap() error { return ErrMalformedResponse }

// Conn is the session surface a Device needs.
type Conn interface {
	command.RoundTripper
	ImplicitWait() poll.Config
}

type Device struct {
	conn    Conn
	inv     *command.Invoker
	profile Profile
	clock   poll.Clock
}

type Option func(*Device)

// WithClock replaces the wall clock used while polling.
func WithClock(c poll.Clock) Option {
	return func(d *Device) {
		d.clock = c
	}
}

// WithInvoker replaces the default invoker built over conn.
func WithInvoker(inv *command.Invoker) Option {
	return func(d *Device) {
		d.inv = inv
	}
}

func New(conn Conn, profile Profile, opts ...Option) *Device {
	d := &Device{conn: conn, profile: profile, clock: poll.SystemClock{}}
	for _, opt := range opts {
		opt(d)
	}
	if d.inv == nil {
		d.inv = command.New(conn)
	}
	return d
}

func (d *Device) Profile() Profile { return d.profile }

// Invoke sends an arbitrary command and returns its text response.
func (d *Device) Invoke(ctx context.Context, name string, args ...any) (string, error) {
	return d.inv.Invoke(ctx, name, args...)
}

// pollUntil polls name until the response differs from sentinel. A timed
// out run is reported as found=false with no error.
func (d *Device) pollUntil(ctx context.Context, wait *poll.Config, sentinel, name string, args ...any) (string, bool, error) {
	return d.pollFunc(ctx, wait, sentinel, name, func(ctx context.Context) (string, error) {
		return d.inv.Invoke(ctx, name, args...)
	})
}

func (d *Device) pollFunc(ctx context.Context, wait *poll.Config, sentinel, name string, fn poll.Func) (string, bool, error) {
	cfg := d.conn.ImplicitWait()
	if wait != nil {
		cfg = *wait
	}
	p := &poll.Poller{Config: cfg, Clock: d.clock}
	out, err := p.Until(ctx, sentinel, fn)
	if err != nil {
		return "", false, err
	}
	log.Debug().Msgf("device.poll command=%s state=%s attempts=%d elapsed=%s",
		name, out.State, out.Attempts, out.Elapsed)
	return out.Value, out.Found(), nil
}

// call invokes name and decodes a boolean acknowledgement.
func (d *Device) call(ctx context.Context, name string, args ...any) (bool, error) {
	resp, err := d.inv.Invoke(ctx, name, args...)
	if err != nil {
		return false, err
	}
	return parseBool(name, resp)
}

// pollBool polls name until it stops answering "false".
func (d *Device) pollBool(ctx context.Context, wait *poll.Config, name string, args ...any) (bool, error) {
	resp, found, err := d.pollUntil(ctx, wait, SentinelFalse, name, args...)
	if err != nil || !found {
		return false, err
	}
	return parseBool(name, resp)
}

// scoped prepends the window handle for profiles that address windows.
func (d *Device) scoped(window string, args ...any) []any {
	if !d.profile.WindowScoped {
		return args
	}
	return append([]any{window}, args...)
}

// withMode appends the background flag for profiles that accept it.
func (d *Device) withMode(mode bool, args ...any) []any {
	if !d.profile.ModeFlag {
		return args
	}
	return append(args, mode)
}

func (d *Device) require(supported bool, op string) error {
	if !supported {
		return fmt.Errorf("%w: %s on %s", ErrUnsupported, op, d.profile.Name)
	}
	return nil
}

func parseBool(name, resp string) (bool, error) {
	switch resp {
	case "true":
		return true, nil
	case SentinelFalse:
		return false, nil
	default:
		return false, &ResponseError{Command: name, Payload: resp}
	}
}
