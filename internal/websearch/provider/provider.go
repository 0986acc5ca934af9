package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
)

const (
	// BrowserUserAgent is sent to the scraped engines
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	apiUserAgent = "chat-gateway/1.0"

	// upstream error bodies are reported, not parsed
	maxErrorBody = 64 << 10
)

// Provider defines the interface for search providers
type Provider interface {
	// Search executes a search query
	Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error)

	// GetID returns the provider ID
	GetID() types.ProviderID

	// Validate validates the provider configuration
	Validate() error
}

// Constructor builds a provider around a shared HTTP client
type Constructor func(config *types.ProviderConfig, client *http.Client) (Provider, error)

// BaseProvider provides common functionality for all providers
type BaseProvider struct {
	config     *types.ProviderConfig
	httpClient *http.Client
	apiKeys    []string // Support multiple API keys for rotation
	keyIndex   atomic.Uint64
}

// NewBaseProvider creates a new base provider. A nil client gets a private
// one bounded by config.Timeout.
func NewBaseProvider(config *types.ProviderConfig, client *http.Client) *BaseProvider {
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	// Parse multiple API keys (comma-separated)
	var apiKeys []string
	for _, k := range strings.Split(config.APIKey, ",") {
		if k = strings.TrimSpace(k); k != "" {
			apiKeys = append(apiKeys, k)
		}
	}

	return &BaseProvider{
		config:     config,
		httpClient: client,
		apiKeys:    apiKeys,
	}
}

// GetID returns the provider ID
func (b *BaseProvider) GetID() types.ProviderID {
	return b.config.ID
}

// GetConfig returns the provider configuration
func (b *BaseProvider) GetConfig() *types.ProviderConfig {
	return b.config
}

// GetAPIKey returns the next API key in rotation. Safe for concurrent use.
func (b *BaseProvider) GetAPIKey() string {
	if len(b.apiKeys) == 0 {
		return ""
	}
	n := b.keyIndex.Add(1) - 1
	return b.apiKeys[n%uint64(len(b.apiKeys))]
}

// Validate validates the provider configuration
func (b *BaseProvider) Validate() error {
	return b.config.Validate()
}

func (b *BaseProvider) userAgent(fallback string) string {
	if b.config.UserAgent != "" {
		return b.config.UserAgent
	}
	return fallback
}

// BuildDefaultHeaders builds headers for JSON API calls
func (b *BaseProvider) BuildDefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   b.userAgent(apiUserAgent),
	}
}

// BuildBrowserHeaders builds headers that make a scrape look like a browser visit
func (b *BaseProvider) BuildBrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      b.userAgent(BrowserUserAgent),
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9,zh-CN;q=0.8",
	}
}

// DoRequest executes an HTTP request once. Non-2xx responses are turned into
// a ProviderError carrying the upstream status and body text.
func (b *BaseProvider) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &types.ProviderError{
			Provider: b.GetID(),
			Code:     "REQUEST_FAILED",
			Message:  "Failed to execute request",
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &types.ProviderError{
			Provider:   b.GetID(),
			Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:    strings.TrimSpace(string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	return resp, nil
}

// readJSON executes req and returns the body for gjson parsing
func (b *BaseProvider) readJSON(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := b.DoRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ProviderError{
			Provider: b.GetID(),
			Code:     "READ_FAILED",
			Message:  "Failed to read response",
			Err:      err,
		}
	}
	return body, nil
}

// fetchDocument GETs an HTML results page and parses it
func (b *BaseProvider) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range b.BuildBrowserHeaders() {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &types.ProviderError{
			Provider: b.GetID(),
			Code:     "PARSE_FAILED",
			Message:  "Failed to parse results page",
			Err:      err,
		}
	}
	return doc, nil
}

func (b *BaseProvider) newResponse(req *types.SearchRequest, results []*types.SearchResult, start time.Time) *types.SearchResponse {
	if results == nil {
		results = []*types.SearchResult{}
	}
	return &types.SearchResponse{
		Query:    req.Query,
		Results:  results,
		Took:     time.Since(start).Milliseconds(),
		Provider: b.GetID(),
	}
}

// collector accumulates scraped results up to the request cap, dropping
// entries without a title or URL.
type collector struct {
	limit   int
	results []*types.SearchResult
}

func newCollector(limit int) *collector {
	return &collector{limit: limit}
}

// add returns false once the cap is reached
func (c *collector) add(title, link, content string) bool {
	title = collapseSpace(title)
	link = strings.TrimSpace(link)
	if title != "" && link != "" && len(c.results) < c.limit {
		c.results = append(c.results, &types.SearchResult{
			Title:   title,
			URL:     link,
			Content: collapseSpace(content),
		})
	}
	return len(c.results) < c.limit
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
