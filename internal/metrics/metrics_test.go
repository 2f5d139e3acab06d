package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubmissionStarted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.SubmissionStarted()
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}

	done(ResultSuccess)
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues(ResultSuccess)); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}

	m.SubmissionStarted()("auth")
	if got := testutil.ToFloat64(m.submissions.WithLabelValues("auth")); got != 1 {
		t.Errorf("auth count = %v, want 1", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.SubmissionStarted()(ResultSuccess)
	m.SessionOpened()()
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	closeSession := m.SessionOpened()
	defer closeSession()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "feedback_live_sessions 1") {
		t.Errorf("metrics output missing live sessions gauge:\n%s", rec.Body.String())
	}
}
