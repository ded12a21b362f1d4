package device

import (
	"fmt"
	"strconv"
	"strings"
)

type Point struct {
	X float64
	Y float64
}

func (p Point) String() string {
	return formatFloat(p.X) + "|" + formatFloat(p.Y)
}

// Rect is a screen region. The zero Rect means the full screen.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

func (r Rect) Center() Point {
	return Point{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// args flattens r into four positional command arguments.
func (r Rect) args() []any {
	return []any{r.Left, r.Top, r.Right, r.Bottom}
}

type Size struct {
	Width  float64
	Height float64
}

// ParsePoint parses "x|y".
func ParsePoint(s string) (Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return Point{}, err
	}
	return Point{X: v[0], Y: v[1]}, nil
}

// ParseRect parses "left|top|right|bottom".
func ParseRect(s string) (Rect, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return Rect{}, err
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// ParsePoints parses slash separated points, "x|y/x|y/...".
func ParsePoints(s string) ([]Point, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	out := make([]Point, 0, len(parts))
	for _, part := range parts {
		p, err := ParsePoint(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Split(strings.TrimSpace(s), "|")
	if len(fields) != n {
		return nil, fmt.Errorf("%w: want %d fields in %q", ErrMalformedResponse, n, s)
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d of %q: %v", ErrMalformedResponse, i, s, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
