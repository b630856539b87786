package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-caseshop/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("caseshop", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204"))
	assert.Equal(t, float64(1), total)

	assert.NotZero(t, testutil.CollectAndCount(metrics.ReqDur), "expected histogram sample")
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight), "no requests should be in flight")
}

func TestHTTPMetricsReuseOnDoubleRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("caseshop", nil, registry)
	second := obs.NewHTTPMetrics("caseshop", nil, registry)
	assert.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	assert.Nil(t, obs.ParseBucketsCSV(" "))
	assert.Equal(t, []float64{5, 50, 500}, obs.ParseBucketsCSV("5, 50,500"))
	assert.Equal(t, []float64{10}, obs.ParseBucketsCSV("10,-1,abc"))
}
