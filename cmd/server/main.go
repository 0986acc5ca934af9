package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/conf"
	"github.com/lk2023060901/chat-gateway/internal/data"
	"github.com/lk2023060901/chat-gateway/internal/gateway/service"
	"github.com/lk2023060901/chat-gateway/internal/media"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/server"
	"github.com/lk2023060901/chat-gateway/internal/upstream"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"github.com/lk2023060901/chat-gateway/internal/websearch/provider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "chat-gateway",
	Short:        "HTTP gateway for chat, media caching and web search",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "config file path (empty for defaults and env only)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	config, err := conf.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("config loaded successfully", zap.String("addr", config.Server.Addr()))

	var m *metrics.Metrics
	if config.Metrics.Enabled {
		m = metrics.New(&config.Metrics)
	}

	// Initialize data layer
	d, cleanup, err := data.NewData(ctx, config, log)
	if err != nil {
		return fmt.Errorf("failed to initialize data layer: %w", err)
	}
	defer cleanup()

	// Outbound clients: bounded for media and search, unbounded for streams
	client := upstream.NewHTTPClient(upstream.ClientOptions{
		Timeout:               config.Upstream.Timeout,
		ResponseHeaderTimeout: config.Upstream.ResponseHeaderTimeout,
	})
	streamingClient := upstream.NewStreamingClient(config.Upstream.ResponseHeaderTimeout)

	cache := media.New(d.Store, client, log,
		media.WithIndex(d.Index),
		media.WithMetrics(m),
		media.WithUserAgent(config.Upstream.UserAgent),
		media.WithProbe(d.Probe()),
	)
	if n, err := cache.Warm(ctx); err != nil {
		log.Warn("failed to warm media index", zap.Error(err))
	} else {
		log.Info("media index warmed", zap.Int("files", n))
	}

	searchService := websearch.NewService(provider.NewFactory(client), log,
		websearch.WithHosts(config.Search.Hosts),
		websearch.WithTimeout(config.Search.Timeout),
		websearch.WithUserAgent(config.Upstream.UserAgent),
		websearch.WithMetrics(m),
	)

	chatRelay := relay.New(streamingClient, log,
		relay.WithMetrics(m),
		relay.WithStreamTimeout(config.Upstream.StreamTimeout),
	)

	gatewayService := service.NewGatewayService(service.Options{
		Cache:         cache,
		Relay:         chatRelay,
		Search:        searchService,
		Client:        streamingClient,
		Timeout:       config.Upstream.Timeout,
		StreamTimeout: config.Upstream.StreamTimeout,
		ImageTimeout:  config.Upstream.ImageTimeout,
		Logger:        log,
		Metrics:       m,
	})

	httpServer := server.NewHTTPServer(config, log, m, gatewayService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server...", zap.String("signal", sig.String()))
	}

	// Graceful shutdown with timeout
	timeout := config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
