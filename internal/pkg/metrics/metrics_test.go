package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(DefaultConfig())

	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.Download("ok")
	m.BytesWritten(10)
	m.Search("tavily", "ok", 20*time.Millisecond)
	m.RelayStream("ok")
	m.FrameSkipped()

	body := scrape(t, m)
	assert.Contains(t, body, `chatgw_media_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `chatgw_media_cache_lookups_total{result="miss"} 2`)
	assert.Contains(t, body, `chatgw_media_bytes_written_total 10`)
	assert.Contains(t, body, `chatgw_search_requests_total{outcome="ok",provider="tavily"} 1`)
	assert.Contains(t, body, `chatgw_relay_frames_skipped_total 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CacheHit()
		m.CacheMiss()
		m.Download("error")
		m.BytesWritten(1)
		m.Search("bing", "error", time.Second)
		m.RelayStream("error")
		m.FrameSkipped()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_HandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(DefaultConfig())

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `chatgw_http_requests_total{method="GET",route="/ping",status="200"} 1`), body)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}
