package frame

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/danmuck/botectl/internal/testutil/testlog"
)

func TestEncodeRequestClickScenario(t *testing.T) {
	testlog.Start(t)
	got, err := EncodeRequest("click", 100, 200)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != "5/3/3\nclick100200" {
		t.Fatalf("unexpected frame: %q", got)
	}
}

func TestEncodeRequestBooleanLiterals(t *testing.T) {
	testlog.Start(t)
	got, err := EncodeRequest("cmd", true, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(got, []byte("true")) || !bytes.Contains(got, []byte("false")) {
		t.Fatalf("missing lowercase literals: %q", got)
	}
	if bytes.Contains(got, []byte("True")) || bytes.Contains(got, []byte("False")) {
		t.Fatalf("capitalized literal on the wire: %q", got)
	}
	if string(got) != "3/4/5\ncmdtruefalse" {
		t.Fatalf("unexpected frame: %q", got)
	}
}

func TestEncodeRequestNilAndFloats(t *testing.T) {
	testlog.Start(t)
	got, err := EncodeRequest("findImage", nil, 0.95, float32(1.5), int64(-3))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != "9/0/4/3/2\nfindImage0.951.5-3" {
		t.Fatalf("unexpected frame: %q", got)
	}
}

func TestEncodeRequestUsesByteLengths(t *testing.T) {
	testlog.Start(t)
	got, err := EncodeRequest("sendKeys", "héllo")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(string(got), "8/6\n") {
		t.Fatalf("expected utf-8 byte length 6, got %q", got)
	}
}

func TestEncodeRequestUnsupportedType(t *testing.T) {
	testlog.Start(t)
	_, err := EncodeRequest("click", 1, struct{}{})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	var encErr *EncodingError
	if !errors.As(err, &encErr) || encErr.Index != 2 {
		t.Fatalf("unexpected encoding error: %#v", err)
	}
}

func TestEncodeRequestDeterministic(t *testing.T) {
	testlog.Start(t)
	a, err := EncodeRequest("swipe", 1, 2, 3, 4, 0.5, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeRequest("swipe", 1, 2, 3, 4, 0.5, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("non-deterministic encode: %q vs %q", a, b)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	testlog.Start(t)
	cases := [][]any{
		{"getColor", 10, 20},
		{"sendKeys", "a/b\nc", ""},
		{"setClipboard", "日本語", true, nil},
		{"noArgs"},
	}
	for _, args := range cases {
		b, err := EncodeRequest(args[0].(string), args[1:]...)
		if err != nil {
			t.Fatalf("encode %v: %v", args, err)
		}
		parts, err := DecodeRequest(b)
		if err != nil {
			t.Fatalf("decode %q: %v", b, err)
		}
		if len(parts) != len(args) {
			t.Fatalf("arg count mismatch: got=%d want=%d", len(parts), len(args))
		}
		for i, arg := range args {
			want, _ := ArgBytes(arg)
			if !bytes.Equal(parts[i], want) {
				t.Fatalf("arg %d mismatch: got=%q want=%q", i, parts[i], want)
			}
		}
	}
}

func TestEncodeFileKeepsRawBytes(t *testing.T) {
	testlog.Start(t)
	data := []byte{0x00, 0xff, 0xfe, '\n', '/'}
	b, err := EncodeFile("pushFile", "/sdcard/a.bin", data)
	if err != nil {
		t.Fatalf("encode file: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("8/13/5\n")) {
		t.Fatalf("unexpected header: %q", b)
	}
	parts, err := ReadRequest(bufio.NewReader(bytes.NewReader(b)), DefaultLimits())
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if !bytes.Equal(parts[2], data) {
		t.Fatalf("file payload altered: %v", parts[2])
	}
}

func TestReadResponseScenarios(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"9/-1.0|-1.0": "-1.0|-1.0",
		"4/true":      "true",
		"0/":          "",
		"6/ null ":    "null",
	}
	for raw, want := range cases {
		got, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), DefaultLimits())
		if err != nil {
			t.Fatalf("read %q: %v", raw, err)
		}
		if DecodePayload(got) != want {
			t.Fatalf("decode %q: got=%q want=%q", raw, DecodePayload(got), want)
		}
	}
}

func TestReadResponseAccumulatesShortReads(t *testing.T) {
	testlog.Start(t)
	payload := strings.Repeat("x|y/", 2048)
	raw := EncodeResponse(payload)
	r := bufio.NewReaderSize(iotest.OneByteReader(bytes.NewReader(raw)), 16)
	got, err := ReadResponse(r, DefaultLimits())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != payload {
		t.Fatalf("payload mismatch: len=%d want=%d", len(got), len(payload))
	}
}

func TestReadResponseDoesNotOverread(t *testing.T) {
	testlog.Start(t)
	r := bufio.NewReader(strings.NewReader("4/true5/false"))
	first, err := ReadResponse(r, DefaultLimits())
	if err != nil || string(first) != "true" {
		t.Fatalf("first response: %q err=%v", first, err)
	}
	second, err := ReadResponse(r, DefaultLimits())
	if err != nil || string(second) != "false" {
		t.Fatalf("second response: %q err=%v", second, err)
	}
	if _, err := ReadResponse(r, DefaultLimits()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on clean close, got %v", err)
	}
}

func TestReadResponseErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := ReadResponse(bufio.NewReader(strings.NewReader("10/short")), DefaultLimits()); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if _, err := ReadResponse(bufio.NewReader(strings.NewReader("12")), DefaultLimits()); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for missing delimiter, got %v", err)
	}
	if _, err := ReadResponse(bufio.NewReader(strings.NewReader("x1/a")), DefaultLimits()); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	limits := Limits{MaxPayloadBytes: 4}
	if _, err := ReadResponse(bufio.NewReader(strings.NewReader("5/false")), limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeRequestLengthMismatch(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeRequest([]byte("5/3\nclick10")); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if _, err := DecodeRequest([]byte("5/3")); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestOversizedRequestHeaderIsRejected(t *testing.T) {
	testlog.Start(t)
	const huge = "9223372036854775807"

	_, err := ReadRequest(bufio.NewReader(strings.NewReader(huge+"/"+huge+"\nxx")), DefaultLimits())
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	_, err = DecodeRequest([]byte(huge + "/" + huge + "/4\nxx"))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	_, err = DecodeRequest([]byte("1/" + huge + "\nxx"))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
