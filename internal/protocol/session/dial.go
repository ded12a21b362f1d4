package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/danmuck/botectl/internal/tools"
	"github.com/rs/zerolog/log"
)

type dialOptions struct {
	starter    tools.ProcessStarter
	driver     string
	driverArgs []string
	rng        *rand.Rand
}

type DialOption func(*dialOptions)

// WithDriver launches a companion driver process before dialing. The driver
// is stopped when the Session closes or the dial gives up.
func WithDriver(starter tools.ProcessStarter, name string, args ...string) DialOption {
	return func(o *dialOptions) {
		o.starter = starter
		o.driver = name
		o.driverArgs = append([]string(nil), args...)
	}
}

// WithRand fixes the jitter source for backoff delays.
func WithRand(rng *rand.Rand) DialOption {
	return func(o *dialOptions) {
		o.rng = rng
	}
}

// Dial connects to a driver listening at addr, retrying with backoff until
// MaxConnectAttempts is reached (0 retries forever) or ctx ends.
func Dial(ctx context.Context, addr string, cfg Config, opts ...DialOption) (*Session, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, ErrAddressRequired
	}
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}
	o := dialOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var driver tools.Process
	if strings.TrimSpace(o.driver) != "" {
		starter := o.starter
		if starter == nil {
			starter = tools.ExecStarter{}
		}
		// the driver outlives the dial context; Session.Close owns it
		p, err := starter.Start(context.WithoutCancel(ctx), o.driver, o.driverArgs...)
		if err != nil {
			return nil, fmt.Errorf("session: start driver %q: %w", o.driver, err)
		}
		driver = p
		log.Info().Msgf("session.Dial driver started name=%q pid=%d", o.driver, p.Pid())
	}

	var attempt int
	for {
		attempt++
		conn, err := dialOnce(ctx, addr, cfg)
		if err == nil {
			s := newSession(conn, cfg)
			s.driver = driver
			return s, nil
		}
		log.Warn().Msgf("session.Dial attempt=%d addr=%q err=%v", attempt, addr, err)
		if !shouldRetry(cfg, attempt) {
			stopDriver(driver)
			return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, o.rng); err != nil {
			stopDriver(driver)
			return nil, err
		}
	}
}

func dialOnce(ctx context.Context, addr string, cfg Config) (net.Conn, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if !cfg.TLS.Enabled {
		return rawConn, nil
	}
	tlsCfg, err := cfg.clientTLSConfig(addr)
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	hctx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(hctx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

func shouldRetry(cfg Config, attempt int) bool {
	if cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < cfg.MaxConnectAttempts
}

func sleepBackoff(ctx context.Context, cfg BackoffConfig, attempt int, rng *rand.Rand) error {
	timer := time.NewTimer(NextBackoffDelay(cfg, attempt, rng))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func stopDriver(p tools.Process) {
	if p == nil {
		return
	}
	if err := p.Stop(); err != nil {
		log.Warn().Msgf("session.Dial stop driver pid=%d err=%v", p.Pid(), err)
	}
}
