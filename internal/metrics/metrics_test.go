package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Update("message")
	m.Update("message")
	m.Verdict(true)
	m.Verdict(false)
	m.Verdict(false)
	m.SendError()
	m.StoreError("add_message")

	body := scrape(t, m)
	assert.Contains(t, body, `gatekeeper_updates_total{kind="message"} 2`)
	assert.Contains(t, body, `gatekeeper_throttle_verdicts_total{verdict="spam"} 1`)
	assert.Contains(t, body, `gatekeeper_throttle_verdicts_total{verdict="accepted"} 2`)
	assert.Contains(t, body, `gatekeeper_send_errors_total 1`)
	assert.Contains(t, body, `gatekeeper_store_errors_total{op="add_message"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Update("message")
	m.Verdict(true)
	m.SendError()
	m.StoreError("x")
}

func TestHandlerExposesTrackedUsers(t *testing.T) {
	m := New()
	m.TrackUsers(func() int { return 3 })
	assert.Contains(t, scrape(t, m), "gatekeeper_throttle_tracked_users 3")
}
