package device

import (
	"time"

	"github.com/danmuck/botectl/internal/poll"
)

const DefaultSimilarity = 0.9

// Threshold is the binarization applied before matching.
type Threshold struct {
	Type  int
	Value float64
	Max   float64
}

func (t *Threshold) args() []any {
	if t == nil {
		return []any{0, 0, 255}
	}
	return []any{t.Type, t.Value, t.Max}
}

// SearchOptions tunes image searches. Zero values select the defaults.
type SearchOptions struct {
	// Window is the target window handle on window-scoped profiles.
	Window     string
	Region     Rect
	Similarity float64
	Threshold  *Threshold
	// Multi is the number of matches requested by FindImages.
	Multi int
	Mode  bool
	// Wait overrides the session's implicit wait for this call.
	Wait *poll.Config
}

func (o SearchOptions) similarity() float64 {
	if o.Similarity <= 0 {
		return DefaultSimilarity
	}
	return o.Similarity
}

func (o SearchOptions) multi() int {
	if o.Multi <= 0 {
		return 1
	}
	return o.Multi
}

// ColorOptions tunes color searches and comparisons.
type ColorOptions struct {
	Window string
	Region Rect
	// SubColors is the agent's offset list, "dx|dy|#rrggbb,..."; empty
	// matches the main color alone.
	SubColors  string
	Similarity float64
	Mode       bool
	Wait       *poll.Config
}

func (o ColorOptions) similarity() float64 {
	if o.Similarity <= 0 {
		return DefaultSimilarity
	}
	return o.Similarity
}

// OCROptions tunes text recognition.
type OCROptions struct {
	Window    string
	Region    Rect
	Threshold *Threshold
	// Scale enlarges the capture before recognition; 0 means 1.
	Scale float64
	Mode  bool
	Wait  *poll.Config
}

func (o OCROptions) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// SwipeOptions tunes swipes and long presses.
type SwipeOptions struct {
	Duration time.Duration
}

func (o SwipeOptions) millis() int64 {
	if o.Duration <= 0 {
		return 300
	}
	return o.Duration.Milliseconds()
}

// ElementOptions tunes xpath element lookups.
type ElementOptions struct {
	Window string
	Wait   *poll.Config
}
