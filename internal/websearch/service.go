// Package websearch dispatches a query to one search provider and renders the
// normalized results as a prompt-ready text block.
package websearch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/lk2023060901/chat-gateway/internal/websearch/provider"
	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
	"go.uber.org/zap"
)

// ExtraConfig carries per-request provider settings beyond the API key
type ExtraConfig struct {
	// APIHost overrides the provider endpoint
	APIHost string `json:"apiHost,omitempty"`
	// InstanceURL is the SearXNG instance; APIHost is accepted too
	InstanceURL string `json:"instanceUrl,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// Query is one search request as received from a client
type Query struct {
	Query       string       `json:"query"`
	Provider    string       `json:"provider"`
	APIKey      string       `json:"apiKey"`
	ExtraConfig *ExtraConfig `json:"extraConfig,omitempty"`
}

// Result holds the formatted block and the structured results it was built from
type Result struct {
	Results string                `json:"results"`
	Data    []*types.SearchResult `json:"data"`
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeout bounds each provider call
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithHosts overrides default provider endpoints, keyed by provider id
func WithHosts(hosts map[string]string) Option {
	return func(s *Service) {
		for id, h := range hosts {
			if h != "" {
				s.hosts[types.ProviderID(strings.ToLower(id))] = h
			}
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Service) { s.userAgent = ua }
}

// Service is the search aggregator
type Service struct {
	factory   *provider.Factory
	hosts     map[types.ProviderID]string
	timeout   time.Duration
	userAgent string
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(factory *provider.Factory, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		factory: factory,
		hosts:   make(map[types.ProviderID]string, len(types.DefaultHosts)),
		timeout: 15 * time.Second,
		log:     log.Named("websearch"),
	}
	for id, h := range types.DefaultHosts {
		s.hosts[id] = h
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers lists the accepted provider selectors
func (s *Service) Providers() []types.ProviderID {
	return s.factory.ListProviders()
}

// Search runs q against its provider and returns at most types.MaxResults
// results. Validation errors are returned before any provider is contacted.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}

	id := types.ProviderID(strings.ToLower(strings.TrimSpace(q.Provider)))
	if !s.factory.Has(id) {
		s.metrics.Search(string(id), "invalid", 0)
		return nil, types.ErrProviderNotFound
	}

	p, err := s.factory.Create(s.providerConfig(id, q))
	if err != nil {
		s.metrics.Search(string(id), "invalid", 0)
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.Search(ctx, &types.SearchRequest{Query: query, MaxResults: types.MaxResults})
	took := time.Since(start)
	if err != nil {
		s.metrics.Search(string(id), "error", took)
		s.log.Warn("search failed",
			zap.String("request_id", logger.GetRequestID(ctx)),
			zap.String("provider", string(id)),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return nil, err
	}

	results := resp.Results
	if len(results) > types.MaxResults {
		results = results[:types.MaxResults]
	}

	outcome := "ok"
	if len(results) == 0 {
		outcome = "empty"
	}
	s.metrics.Search(string(id), outcome, took)
	s.log.Debug("search completed",
		zap.String("provider", string(id)),
		zap.Int("results", len(results)),
		zap.Duration("took", took),
	)

	return &Result{Results: types.Format(results), Data: results}, nil
}

func (s *Service) providerConfig(id types.ProviderID, q Query) *types.ProviderConfig {
	cfg := &types.ProviderConfig{
		ID:        id,
		APIHost:   s.hosts[id],
		APIKey:    q.APIKey,
		UserAgent: s.userAgent,
	}
	if extra := q.ExtraConfig; extra != nil {
		switch {
		case extra.InstanceURL != "":
			cfg.APIHost = extra.InstanceURL
		case extra.APIHost != "":
			cfg.APIHost = extra.APIHost
		}
		cfg.BasicAuthUsername = extra.Username
		cfg.BasicAuthPassword = extra.Password
	}
	return cfg
}

// IsClientError reports whether err was caused by the request rather than
// by the provider.
func IsClientError(err error) bool {
	return errors.Is(err, types.ErrEmptyQuery) ||
		errors.Is(err, types.ErrProviderNotFound) ||
		types.IsConfigError(err)
}
