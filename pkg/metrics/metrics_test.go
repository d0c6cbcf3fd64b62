package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
		New(nil)
	})
}

func TestObserveMerge(t *testing.T) {
	m := New(nil)
	m.ObserveMerge(ScopeFinal, 10, 4)
	m.ObserveMerge(ScopeFinal, 5, 1)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.MergeRecordsTotal.WithLabelValues(ScopeFinal, DirectionIn)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.MergeRecordsTotal.WithLabelValues(ScopeFinal, DirectionOut)))
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SpillsTotal.Add(3)
	m.ObserveStage("count", 2*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "hpca_spills_total 3"))
	assert.True(t, strings.Contains(body, `hpca_stage_duration_seconds_count{stage="count"} 1`))
}
