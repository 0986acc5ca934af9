package service

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
)

// maxUpstreamError bounds how much of an upstream error body is echoed back
const maxUpstreamError = 64 << 10

// Options wires the gateway handlers to their collaborators
type Options struct {
	Cache  *media.Cache
	Relay  *relay.Relay
	Search *websearch.Service

	// Client performs proxied calls. It should have no overall timeout;
	// deadlines come from Timeout and StreamTimeout.
	Client        *http.Client
	Timeout       time.Duration
	StreamTimeout time.Duration
	// ImageTimeout bounds image generation; 0 falls back to StreamTimeout
	ImageTimeout time.Duration

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// GatewayService handles the gateway's HTTP endpoints
type GatewayService struct {
	cache  *media.Cache
	relay  *relay.Relay
	search *websearch.Service

	client        *http.Client
	timeout       time.Duration
	streamTimeout time.Duration
	imageTimeout  time.Duration

	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewGatewayService creates a new gateway service
func NewGatewayService(opts Options) *GatewayService {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}

	return &GatewayService{
		cache:         opts.Cache,
		relay:         opts.Relay,
		search:        opts.Search,
		client:        client,
		timeout:       opts.Timeout,
		streamTimeout: opts.StreamTimeout,
		imageTimeout:  opts.ImageTimeout,
		logger:        log.Named("gateway"),
		metrics:       opts.Metrics,
	}
}

// RegisterRoutes registers gateway routes
func (s *GatewayService) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/media", s.GetMedia)
		api.POST("/proxy", s.ProxyPost)
		api.GET("/proxy", s.ProxyGet)
		api.POST("/save-image", s.SaveImage)
		api.POST("/search", s.Search)
		api.POST("/chat", s.Chat)
		api.POST("/images/generations", s.GenerateImages)
	}

	r.GET("/data/:filename", s.GetDataFile)
}
