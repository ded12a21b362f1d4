package session

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrTransport       = errors.New("session: transport failure")
	ErrSessionClosed   = errors.New("session: closed")
	ErrAddressRequired = errors.New("session: address required")
)

// TransportError is a socket-level failure. It is fatal to the Session that
// produced it.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Timeout reports whether the failure was a read/write deadline.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
