package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	b, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(b)
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/entries/:id/edit", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/entries/1/edit", "/entries/2/edit", "/missing", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `journal_http_requests_total{method="GET",route="/entries/:id/edit",status="200"} 2`)
	assert.Contains(t, body, `journal_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.NotContains(t, body, `route="/metrics"`)
	assert.Contains(t, body, `journal_http_request_duration_seconds_count{method="GET",route="/entries/:id/edit"} 2`)
	assert.Contains(t, body, "journal_http_inflight_requests 0")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.requests.WithLabelValues("GET", "/home", "200").Inc()

	assert.Contains(t, scrape(t, a), `route="/home"`)
	assert.NotContains(t, scrape(t, b), `route="/home"`)
}
