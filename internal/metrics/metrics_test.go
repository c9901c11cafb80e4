// ABOUTME: Tests for pipeline metrics
// ABOUTME: Verifies isolation between instances and the state gauge
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.FramesSent.Inc()
	a.FramesSent.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.FramesSent))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FramesSent))
}

func TestSetState(t *testing.T) {
	m := New()
	states := []string{"connecting", "active", "error"}

	m.SetState("active", states)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionState.WithLabelValues("active")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionState.WithLabelValues("connecting")))

	m.SetState("error", states)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionState.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionState.WithLabelValues("error")))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.Interruptions.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "voicelink_playback_interruptions_total 1"))
}
