package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/danmuck/botectl/internal/observability"
	"github.com/danmuck/botectl/internal/poll"
	"github.com/danmuck/botectl/internal/protocol/frame"
	"github.com/danmuck/botectl/internal/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is one live device connection. RoundTrip calls are serialized so
// exactly one request/response pair is in flight.
type Session struct {
	id     string
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	broken error

	waitMu sync.RWMutex
	wait   poll.Config

	driver    tools.Process
	closeOnce sync.Once
	closeErr  error
}

func newSession(conn net.Conn, cfg Config) *Session {
	id := uuid.NewString()
	wait := cfg.Wait
	if wait.Wait < 0 {
		wait.Wait = 0
	}
	s := &Session{
		id:     id,
		conn:   conn,
		reader: bufio.NewReader(conn),
		cfg:    cfg,
		wait:   wait,
		logger: observability.SessionLogger(id, conn.RemoteAddr().String()),
	}
	observability.SessionOpened()
	s.logger.Info().Msgf("session.open local=%q", conn.LocalAddr().String())
	return s
}

// NewFromConn wraps an established connection. The Session owns conn.
func NewFromConn(conn net.Conn, cfg Config) *Session {
	return newSession(conn, cfg.WithDefaults())
}

func (s *Session) ID() string { return s.id }

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }

// Connected reports whether the session can still carry requests.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken == nil
}

// ImplicitWait returns the wait budget used by search-style operations.
func (s *Session) ImplicitWait() poll.Config {
	s.waitMu.RLock()
	defer s.waitMu.RUnlock()
	return s.wait
}

// SetImplicitWait changes the wait budget for this session only.
func (s *Session) SetImplicitWait(wait, interval time.Duration) {
	if wait < 0 {
		wait = 0
	}
	if interval <= 0 {
		interval = poll.DefaultConfig().Interval
	}
	s.waitMu.Lock()
	s.wait = poll.Config{Wait: wait, Interval: interval}
	s.waitMu.Unlock()
	s.logger.Debug().Msgf("session.SetImplicitWait wait=%s interval=%s", wait, interval)
}

// RoundTrip writes one request frame and reads exactly one response payload.
// Any socket or framing failure marks the session broken.
func (s *Session) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionClosed, s.broken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.SetWriteDeadline(s.deadline(ctx, s.cfg.WriteTimeout)); err != nil {
		return nil, s.fail("set write deadline", err)
	}
	if _, err := s.conn.Write(request); err != nil {
		return nil, s.fail("write", ctxErr(ctx, err))
	}

	if err := s.conn.SetReadDeadline(s.deadline(ctx, s.cfg.ReadTimeout)); err != nil {
		return nil, s.fail("set read deadline", err)
	}
	payload, err := frame.ReadResponse(s.reader, s.cfg.Limits)
	if err != nil {
		return nil, s.fail("read", ctxErr(ctx, err))
	}
	return payload, nil
}

// Close releases the connection and stops a companion driver, if any.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// closing first unblocks an in-flight RoundTrip holding mu
		s.closeErr = s.conn.Close()
		s.mu.Lock()
		if s.broken == nil {
			s.broken = ErrSessionClosed
		}
		s.mu.Unlock()
		if s.driver != nil {
			if err := s.driver.Stop(); err != nil {
				s.logger.Warn().Msgf("session.Close stop driver pid=%d err=%v", s.driver.Pid(), err)
			}
		}
		observability.SessionClosed()
		s.logger.Info().Msg("session.close")
	})
	if errors.Is(s.closeErr, net.ErrClosed) {
		return nil
	}
	return s.closeErr
}

func (s *Session) fail(op string, err error) error {
	terr := &TransportError{Op: op, Addr: s.conn.RemoteAddr().String(), Err: err}
	s.broken = terr
	s.logger.Error().Msgf("session.RoundTrip op=%s timeout=%t err=%v", op, terr.Timeout(), err)
	_ = s.conn.Close()
	return terr
}

func (s *Session) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

// ctxErr prefers the context error when cancellation forced the deadline.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	return err
}
