package device

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Word is one recognized text run and its bounding quadrilateral.
type Word struct {
	Quad       [4]Point
	Text       string
	Confidence float64
}

// Center is the midpoint of the quad's diagonal.
func (w Word) Center() Point {
	return Point{
		X: (w.Quad[0].X + w.Quad[2].X) / 2,
		Y: (w.Quad[0].Y + w.Quad[2].Y) / 2,
	}
}

const (
	num     = `\s*(-?[\d.]+(?:[eE][-+]?\d+)?)\s*`
	corner  = `\[` + num + `,` + num + `\]`
	quoted  = `(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`
	wordPat = `\[\s*\[\s*` + corner + `\s*,\s*` + corner + `\s*,\s*` + corner + `\s*,\s*` + corner +
		`\s*\]\s*,\s*\(\s*` + quoted + `\s*,` + num + `\)\s*\]`
)

var wordRE = regexp.MustCompile(wordPat)

// ParseOCR extracts every word entry from an agent OCR payload. Entries look
// like [[[x1, y1], [x2, y2], [x3, y3], [x4, y4]], ('text', 0.98)].
func ParseOCR(payload string) []Word {
	matches := wordRE.FindAllStringSubmatch(payload, -1)
	out := make([]Word, 0, len(matches))
	for _, m := range matches {
		var w Word
		for i := 0; i < 4; i++ {
			w.Quad[i] = Point{X: atof(m[1+2*i]), Y: atof(m[2+2*i])}
		}
		w.Text = m[9]
		if w.Text == "" {
			w.Text = m[10]
		}
		w.Text = unescape(w.Text)
		w.Confidence = atof(m[11])
		out = append(out, w)
	}
	return out
}

// OCR recognizes text in opts.Region.
func (d *Device) OCR(ctx context.Context, opts OCROptions) ([]Word, error) {
	args := append(opts.Region.args(), opts.Threshold.args()...)
	args = append(args, opts.scale())
	resp, err := d.inv.Invoke(ctx, "ocr", d.withMode(opts.Mode, d.scoped(opts.Window, args...)...)...)
	if err != nil {
		return nil, err
	}
	if resp == SentinelNull || resp == "" {
		return nil, nil
	}
	return ParseOCR(resp), nil
}

// Words returns all recognized text in reading order, concatenated.
func (d *Device) Words(ctx context.Context, opts OCROptions) (string, error) {
	words, err := d.OCR(ctx, opts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Text)
	}
	return b.String(), nil
}

// FindWords polls OCR until a word containing query appears and returns
// the center of the first such word.
func (d *Device) FindWords(ctx context.Context, query string, opts OCROptions) (Result[Point], error) {
	var hit Point
	_, found, err := d.pollFunc(ctx, opts.Wait, wordMissing, "ocr", func(ctx context.Context) (string, error) {
		words, err := d.OCR(ctx, opts)
		if err != nil {
			return "", err
		}
		for _, w := range words {
			if strings.Contains(w.Text, query) {
				hit = w.Center()
				return wordFound, nil
			}
		}
		return wordMissing, nil
	})
	if err != nil || !found {
		return NotFound[Point](), err
	}
	return Found(hit), nil
}

// In-band poll markers for FindWords. They never reach the wire, so a word
// centered on a profile sentinel still counts as found.
const (
	wordMissing = "\x00missing"
	wordFound   = "\x00found"
)

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}
