package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetupPrometheusMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupPrometheusMetrics(r, "/metrics", "test")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ga4_insights_version_info")
}

func TestHTTPMetricsMiddleware_CountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.POST("/ga4", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	before := testutil.ToFloat64(errorsTotal.WithLabelValues("http", "/ga4"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ga4", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("http", "/ga4")))
	assert.Equal(t, float64(0), testutil.ToFloat64(activeConnections))
}

func TestRecordError(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("backend", "ga4"))
	RecordError("backend", "ga4")
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("backend", "ga4")))
}
