package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "botectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	invokeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botectl",
			Subsystem: "invoke",
			Name:      "requests_total",
			Help:      "Device commands sent, by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	invokeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "botectl",
			Subsystem: "invoke",
			Name:      "duration_seconds",
			Help:      "Device command round trip in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command", "outcome"},
	)
	pollRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botectl",
			Subsystem: "poll",
			Name:      "runs_total",
			Help:      "Poll runs by terminal state.",
		},
		[]string{"state"},
	)
	pollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "botectl",
			Subsystem: "poll",
			Name:      "attempts",
			Help:      "Device queries issued per poll run.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"state"},
	)
	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "botectl",
			Subsystem: "poll",
			Name:      "duration_seconds",
			Help:      "Poll run wall time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "botectl",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open device sessions.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			invokeRequests, invokeDuration,
			pollRuns, pollAttempts, pollDuration,
			activeSessions,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// otherCommand labels every command outside the agent vocabulary.
const otherCommand = "other"

var knownCommands = map[string]struct{}{
	"appIsRunning": {}, "click": {}, "clickElement": {}, "clickMouse": {},
	"compareColor": {}, "existsElement": {}, "findColor": {}, "findImage": {},
	"findWindow": {}, "getClipboardText": {}, "getColor": {}, "getElementRect": {},
	"getElementText": {}, "getWindowPos": {}, "getWindowSize": {}, "longClick": {},
	"moveMouse": {}, "ocr": {}, "pullFile": {}, "pushFile": {},
	"saveScreenshot": {}, "sendKeys": {}, "sendVk": {}, "setClipboardText": {},
	"setElementText": {}, "showToast": {}, "showWindow": {}, "startApp": {},
	"swipe": {}, "takeScreenshot": {},
}

func commandLabel(command string) string {
	if _, ok := knownCommands[command]; ok {
		return command
	}
	return otherCommand
}

// RecordInvoke counts one command round trip. outcome is "ok" or an error class.
// Ad-hoc command names share the "other" label.
func RecordInvoke(command, outcome string, duration time.Duration) {
	RegisterMetrics()
	label := commandLabel(command)
	invokeRequests.WithLabelValues(label, outcome).Inc()
	invokeDuration.WithLabelValues(label, outcome).Observe(duration.Seconds())
}

func RecordPoll(state string, attempts int, duration time.Duration) {
	RegisterMetrics()
	pollRuns.WithLabelValues(state).Inc()
	pollAttempts.WithLabelValues(state).Observe(float64(attempts))
	pollDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func SessionOpened() {
	RegisterMetrics()
	activeSessions.Inc()
}

func SessionClosed() {
	RegisterMetrics()
	activeSessions.Dec()
}
