package frame

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// EncodingError reports an argument that has no wire spelling.
type EncodingError struct {
	Index int
	Type  string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("frame: argument %d has unsupported type %s", e.Index, e.Type)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }

// EncodeRequest builds `<len0>/<len1>/...\n<arg0><arg1>...` with the command
// name as argument 0.
func EncodeRequest(command string, args ...any) ([]byte, error) {
	parts := make([][]byte, 0, len(args)+1)
	parts = append(parts, []byte(command))
	for i, arg := range args {
		b, err := ArgBytes(arg)
		if err != nil {
			if encErr, ok := err.(*EncodingError); ok {
				encErr.Index = i + 1
			}
			return nil, err
		}
		parts = append(parts, b)
	}
	return JoinRequest(parts), nil
}

// EncodeFile builds a push request whose third argument is data, appended
// without any text conversion.
func EncodeFile(command, remotePath string, data []byte) ([]byte, error) {
	return JoinRequest([][]byte{[]byte(command), []byte(remotePath), data}), nil
}

// JoinRequest lays out already-converted arguments as one request frame.
func JoinRequest(parts [][]byte) []byte {
	size := 1
	for _, p := range parts {
		size += len(p) + 21
	}
	out := make([]byte, 0, size)
	for i, p := range parts {
		if i > 0 {
			out = append(out, LengthSep)
		}
		out = strconv.AppendInt(out, int64(len(p)), 10)
	}
	out = append(out, HeaderEnd)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ArgBytes converts one argument to its wire bytes. Booleans use the
// lowercase literals the device agents expect.
func ArgBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte{}, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case bool:
		return []byte(strconv.FormatBool(x)), nil
	case int:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int64:
		return strconv.AppendInt(nil, x, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(x), 10), nil
	case uint64:
		return strconv.AppendUint(nil, x, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, x, 'f', -1, 64), nil
	case fmt.Stringer:
		return []byte(x.String()), nil
	default:
		return nil, &EncodingError{Type: reflect.TypeOf(v).String()}
	}
}

// ParseHeader returns the declared argument lengths of a request header
// line (without the trailing newline).
func ParseHeader(line []byte) ([]int, error) {
	fields := bytes.Split(line, []byte{LengthSep})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := parseLength(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// DecodeRequest splits one complete request frame back into its arguments.
func DecodeRequest(b []byte) ([][]byte, error) {
	idx := bytes.IndexByte(b, HeaderEnd)
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing header terminator", ErrTruncated)
	}
	lengths, err := ParseHeader(b[:idx])
	if err != nil {
		return nil, err
	}
	return splitArgs(lengths, b[idx+1:])
}

// ReadRequest reads one request frame from r. It is the device-agent side of
// the exchange.
func ReadRequest(r *bufio.Reader, limits Limits) ([][]byte, error) {
	limits = limits.WithDefaults()
	line, err := readUntil(r, HeaderEnd, limits.MaxHeaderBytes)
	if err != nil {
		return nil, err
	}
	lengths, err := ParseHeader(line)
	if err != nil {
		return nil, err
	}
	total, ok := declaredTotal(lengths, limits.MaxPayloadBytes)
	if !ok {
		return nil, fmt.Errorf("%w: declared lengths exceed max=%d", ErrPayloadTooLarge, limits.MaxPayloadBytes)
	}
	body := make([]byte, total)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: want %d argument bytes: %v", ErrTruncated, total, err)
	}
	return splitArgs(lengths, body)
}

func splitArgs(lengths []int, body []byte) ([][]byte, error) {
	total, ok := declaredTotal(lengths, int64(len(body)))
	if !ok {
		return nil, fmt.Errorf("%w: declared lengths exceed actual=%d", ErrLengthMismatch, len(body))
	}
	if total != int64(len(body)) {
		return nil, fmt.Errorf("%w: declared=%d actual=%d", ErrLengthMismatch, total, len(body))
	}
	out := make([][]byte, 0, len(lengths))
	off := 0
	for _, n := range lengths {
		out = append(out, body[off:off+n])
		off += n
	}
	return out, nil
}

// declaredTotal sums lengths and reports false as soon as the running total
// would pass limit. Lengths are never negative.
func declaredTotal(lengths []int, limit int64) (int64, bool) {
	var total int64
	for _, n := range lengths {
		if int64(n) > limit-total {
			return 0, false
		}
		total += int64(n)
	}
	return total, true
}
