package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/chat-gateway/internal/conf"
	"github.com/lk2023060901/chat-gateway/internal/gateway/service"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"go.uber.org/zap"
)

type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

// NewHTTPServer builds the gin router. m may be nil when metrics are off.
func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	m *metrics.Metrics,
	gatewayService *service.GatewayService,
) *HTTPServer {
	if config.Server.Mode != "" {
		gin.SetMode(config.Server.Mode)
	}

	router := NewRouter(config, log, m, gatewayService)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: config.Server.ReadTimeout,
		},
		logger: log,
	}
}

// NewRouter wires middlewares and routes. No WriteTimeout is applied to the
// server since streamed responses may run for minutes.
func NewRouter(
	config *conf.Config,
	log *logger.Logger,
	m *metrics.Metrics,
	gatewayService *service.GatewayService,
) *gin.Engine {
	metricsPath := config.Metrics.Path
	if metricsPath == "" {
		metricsPath = metrics.DefaultConfig().Path
	}

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log, logger.MiddlewareOptions{
		SkipPaths:        []string{"/health", metricsPath},
		SkipPathPrefixes: []string{"/data/"},
	}))
	router.Use(m.GinMiddleware())
	if config.Server.MaxBodyBytes > 0 {
		router.Use(BodyLimit(config.Server.MaxBodyBytes))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if config.Metrics.Enabled && m != nil {
		router.GET(metricsPath, gin.WrapH(m.Handler()))
	}

	gatewayService.RegisterRoutes(router)

	return router
}

// BodyLimit caps request bodies at n bytes
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
