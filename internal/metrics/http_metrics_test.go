package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewHTTPMetrics()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/roadmaps/:roadmap_id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/roadmaps/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `lesson_api_requests_total{method="GET",route="/api/roadmaps/:roadmap_id",status="404"} 2`)
	assert.Contains(t, body, "lesson_api_request_duration_seconds_bucket")
	assert.NotContains(t, body, `route="/api/roadmaps/a"`)
}

func TestMeterProviderExportsToHTTPRegistry(t *testing.T) {
	m := NewHTTPMetrics()
	mp, err := NewMeterProvider(m.Registerer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	pm, err := NewPipelineMetrics(mp)
	require.NoError(t, err)
	pm.RecordRunStarted(context.Background())
	pm.RecordRepairFallback()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "lesson_pipeline_runs_started")
	assert.Contains(t, body, "lesson_pipeline_runs_active")
	assert.Contains(t, body, "go_goroutines")
}
