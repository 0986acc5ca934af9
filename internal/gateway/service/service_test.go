package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"github.com/lk2023060901/chat-gateway/internal/websearch/provider"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router  *gin.Engine
	cache   *media.Cache
	dataDir string
}

func newFixture(t *testing.T, searchHosts map[string]string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	m := metrics.New(nil)
	dir := t.TempDir()

	cache := media.New(media.NewFSStore(dir, log), http.DefaultClient, log, media.WithMetrics(m))
	svc := NewGatewayService(Options{
		Cache:   cache,
		Relay:   relay.New(http.DefaultClient, log, relay.WithMetrics(m)),
		Search:  websearch.NewService(provider.NewFactory(http.DefaultClient), log, websearch.WithHosts(searchHosts), websearch.WithMetrics(m)),
		Client:  http.DefaultClient,
		Logger:  log,
		Metrics: m,
	})

	router := gin.New()
	svc.RegisterRoutes(router)
	return &fixture{router: router, cache: cache, dataDir: dir}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (f *fixture) postJSON(t *testing.T, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
