package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/chat-gateway/internal/conf"
	"github.com/lk2023060901/chat-gateway/internal/gateway/service"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"github.com/lk2023060901/chat-gateway/internal/websearch/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, config *conf.Config, m *metrics.Metrics) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	gw := service.NewGatewayService(service.Options{
		Cache:  media.New(media.NewFSStore(t.TempDir(), log), http.DefaultClient, log),
		Relay:  relay.New(http.DefaultClient, log),
		Search: websearch.NewService(provider.NewFactory(http.DefaultClient), log),
		Logger: log,
	})
	return NewRouter(config, log, m, gw)
}

func testConfig() *conf.Config {
	cfg := &conf.Config{}
	cfg.Server.MaxBodyBytes = 1 << 10
	cfg.Metrics = *metrics.DefaultConfig()
	return cfg
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, testConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New(nil)
	router := newTestRouter(t, testConfig(), m)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chatgw_http_requests_total")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	router := newTestRouter(t, cfg, metrics.New(nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	router := newTestRouter(t, testConfig(), nil)

	body := `{"image":"data:image/png;base64,` + strings.Repeat("A", 4<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/save-image", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GatewayRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/media", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
