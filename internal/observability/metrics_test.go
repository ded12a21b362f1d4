package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/botectl/internal/auth"
	"github.com/danmuck/botectl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/healthz", 200, 12*time.Millisecond)
	RecordInvoke("click", "ok", 3*time.Millisecond)
	RecordPoll("timed_out", 7, 3*time.Second)
	SessionOpened()
	SessionClosed()
}

func TestAdminRouterHealthAndSessions(t *testing.T) {
	testlog.Start(t)
	h := NewAdminRouter(zerolog.Nop(), func() []SessionStatus {
		return []SessionStatus{{ID: "s-1", Remote: "127.0.0.1:5000", Profile: "android", Connected: true}}
	}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("sessions status=%d", rr.Code)
	}
	var body struct {
		Sessions []SessionStatus `json:"sessions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0].ID != "s-1" || !body.Sessions[0].Connected {
		t.Fatalf("unexpected sessions: %+v", body.Sessions)
	}
}

func TestAdminRouterServesMetrics(t *testing.T) {
	testlog.Start(t)
	RecordInvoke("getColor", "ok", time.Millisecond)
	h := NewAdminRouter(zerolog.Nop(), nil, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "botectl_invoke_requests_total") {
		t.Fatalf("invoke counter missing from exposition")
	}
}

func TestAdminRouterGuardKeepsHealthOpen(t *testing.T) {
	testlog.Start(t)
	h := NewAdminRouter(zerolog.Nop(), nil, auth.StaticToken{Token: "t0k"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer t0k")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func TestInvokeMetricsBucketAdHocCommands(t *testing.T) {
	testlog.Start(t)
	RecordInvoke("zzUnlisted", "ok", time.Millisecond)
	RecordInvoke("findImage", "ok", time.Millisecond)

	h := NewAdminRouter(zerolog.Nop(), nil, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if strings.Contains(body, "zzUnlisted") {
		t.Fatalf("ad-hoc command leaked into labels")
	}
	if !strings.Contains(body, `command="other"`) || !strings.Contains(body, `command="findImage"`) {
		t.Fatalf("expected other and findImage labels in exposition")
	}
}
