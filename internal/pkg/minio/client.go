package minio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client scopes a MinIO connection to one bucket and key prefix
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
	closed atomic.Bool
}

// NewClient creates a new MinIO client. It does not contact the server;
// call EnsureBucket to verify connectivity.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("minio: invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}

	switch cfg.BucketLookup {
	case BucketLookupDNS:
		opts.BucketLookup = minio.BucketLookupDNS
	case BucketLookupPath:
		opts.BucketLookup = minio.BucketLookupPath
	default:
		opts.BucketLookup = minio.BucketLookupAuto
	}

	mc, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, wrap("NewClient", err, "", "")
	}

	logger.Info("minio client initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix),
		zap.Bool("use_ssl", cfg.UseSSL),
	)

	return &Client{client: mc, config: cfg, logger: logger}, nil
}

// Close marks the client unusable. minio-go holds no connections of its own
// beyond the shared transport, so nothing else is released.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Info("minio client closed")
	}
	return nil
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// begin checks the client is open and bounds ctx by the per-request timeout
func (c *Client) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.closed.Load() {
		return nil, nil, ErrClientClosed
	}
	if c.config.RequestTimeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	return ctx, cancel, nil
}
