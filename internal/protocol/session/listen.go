package session

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
)

// Listener accepts devices that dial in to this process.
type Listener struct {
	ln  net.Listener
	cfg Config
}

// Listen binds addr using the configured transport policy.
func Listen(addr string, cfg Config) (*Listener, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, ErrAddressRequired
	}
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateServerTransport(); err != nil {
		return nil, err
	}
	var (
		ln  net.Listener
		err error
	)
	if cfg.TLS.Enabled {
		tlsCfg, tlsErr := cfg.serverTLSConfig()
		if tlsErr != nil {
			return nil, tlsErr
		}
		ln, err = tls.Listen("tcp", addr, tlsCfg)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, &TransportError{Op: "listen", Addr: addr, Err: err}
	}
	log.Info().Msgf("session.Listen addr=%q tls=%t", ln.Addr().String(), cfg.TLS.Enabled)
	return &Listener{ln: ln, cfg: cfg}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error {
	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Accept blocks until one device connects. Cancelling ctx closes the
// listener.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.Close()
	})
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "accept", Addr: l.ln.Addr().String(), Err: err}
	}
	if tlsConn, ok := conn.(*tls.Conn); ok {
		hctx, cancel := context.WithTimeout(ctx, l.cfg.HandshakeTimeout)
		err := tlsConn.HandshakeContext(hctx)
		cancel()
		if err != nil {
			_ = conn.Close()
			return nil, &TransportError{Op: "tls handshake", Addr: conn.RemoteAddr().String(), Err: err}
		}
	}
	log.Info().Msgf("session.Accept device connected remote=%q", conn.RemoteAddr().String())
	return newSession(conn, l.cfg), nil
}

// AcceptOne listens on addr, waits for a single device, and stops listening.
func AcceptOne(ctx context.Context, addr string, cfg Config) (*Session, error) {
	l, err := Listen(addr, cfg)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Accept(ctx)
}
