package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordsReportMetrics(t *testing.T) {
	m := NewMetricsService()

	m.ObserveRender("class_report", 10*time.Millisecond, []string{"grades"})
	m.ObserveRender("class_report", 12*time.Millisecond, nil)
	m.RecordTransition("approved")
	m.RecordCacheOperation(true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renderTotal.WithLabelValues("class_report")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderDegraded.WithLabelValues("grades")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report_renders_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveRender("single_student", time.Millisecond, []string{"attendance"})
	m.RecordTransition("approved")
	m.RecordRenderFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
