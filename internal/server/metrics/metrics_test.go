package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.CriticalFaults.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CriticalFaults))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CriticalFaults))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.EventsDropped.Inc()
	m.UploadsTotal.WithLabelValues("ok").Add(2)
	m.UnpublishedObjects.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	s := string(body)
	assert.Contains(t, s, "filekeeper_events_dropped_total 1")
	assert.Contains(t, s, `filekeeper_uploads_total{result="ok"} 2`)
	assert.Contains(t, s, "filekeeper_unpublished_objects 3")
	assert.Contains(t, s, "go_goroutines")
}
