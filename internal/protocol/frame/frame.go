package frame

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// LengthSep separates declared lengths in a request header and ends the
	// declared length of a response.
	LengthSep byte = '/'
	// HeaderEnd terminates the request header line.
	HeaderEnd byte = '\n'
)

var (
	ErrEncoding        = errors.New("frame: unsupported argument")
	ErrInvalidLength   = errors.New("frame: invalid declared length")
	ErrHeaderTooLarge  = errors.New("frame: header too large")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrTruncated       = errors.New("frame: truncated frame")
	ErrLengthMismatch  = errors.New("frame: declared lengths do not match payload")
)

// Limits constrains frame decode memory use.
type Limits struct {
	MaxHeaderBytes  int
	MaxPayloadBytes int64
}

func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes:  64 * 1024,
		MaxPayloadBytes: 64 * 1024 * 1024,
	}
}

// WithDefaults fills zero limits from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = def.MaxHeaderBytes
	}
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = def.MaxPayloadBytes
	}
	return l
}

// ReadResponse reads one `<declaredLen>/<payload>` frame. Short reads are
// accumulated until the declared length is satisfied.
func ReadResponse(r *bufio.Reader, limits Limits) ([]byte, error) {
	limits = limits.WithDefaults()
	prefix, err := readUntil(r, LengthSep, limits.MaxHeaderBytes)
	if err != nil {
		return nil, err
	}
	size, err := parseLength(bytes.TrimSpace(prefix))
	if err != nil {
		return nil, err
	}
	if int64(size) > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: declared=%d max=%d", ErrPayloadTooLarge, size, limits.MaxPayloadBytes)
	}
	payload := make([]byte, size)
	if size == 0 {
		return payload, nil
	}
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: want %d payload bytes", ErrTruncated, size)
		}
		return nil, err
	}
	return payload, nil
}

// WriteResponse writes payload as one response frame.
func WriteResponse(w io.Writer, payload []byte) error {
	head := strconv.AppendInt(nil, int64(len(payload)), 10)
	head = append(head, LengthSep)
	if _, err := w.Write(append(head, payload...)); err != nil {
		return err
	}
	return nil
}

// EncodeResponse returns the response frame bytes for payload.
func EncodeResponse(payload string) []byte {
	var buf bytes.Buffer
	_ = WriteResponse(&buf, []byte(payload))
	return buf.Bytes()
}

// DecodePayload trims surrounding whitespace from a response payload.
func DecodePayload(payload []byte) string {
	return string(bytes.TrimSpace(payload))
}

// readUntil returns the bytes before delim, consuming delim. io.EOF is
// returned untouched when nothing was read so callers can tell a clean close
// from a torn frame.
func readUntil(r *bufio.Reader, delim byte, max int) ([]byte, error) {
	var out []byte
	for {
		chunk, err := r.ReadSlice(delim)
		out = append(out, chunk...)
		if len(out) > max {
			return nil, ErrHeaderTooLarge
		}
		switch {
		case err == nil:
			return out[:len(out)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(out) == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: missing %q delimiter", ErrTruncated, delim)
		default:
			return nil, err
		}
	}
}

func parseLength(raw []byte) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidLength)
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLength, raw)
		}
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLength, raw)
	}
	return n, nil
}
