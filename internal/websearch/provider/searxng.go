package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
	"github.com/tidwall/gjson"
)

// SearXNGProvider implements the SearXNG search API
type SearXNGProvider struct {
	*BaseProvider
}

// NewSearXNGProvider creates a new SearXNG provider
func NewSearXNGProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &SearXNGProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

// Search executes a search query against the instance's JSON endpoint
func (p *SearXNGProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("format", "json")
	params.Set("pageno", "1")

	apiURL := fmt.Sprintf("%s/search?%s", p.config.Host(), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", p.userAgent(apiUserAgent))

	// Basic Auth (if configured)
	if p.config.BasicAuthUsername != "" && p.config.BasicAuthPassword != "" {
		httpReq.SetBasicAuth(p.config.BasicAuthUsername, p.config.BasicAuthPassword)
	}

	data, err := p.readJSON(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		// 常见于实例未开启 json 输出格式
		return nil, &types.ProviderError{Provider: p.GetID(), Code: "INVALID_RESPONSE", Message: "instance did not return JSON, is format=json enabled?", Err: types.ErrInvalidResponse}
	}

	limit := req.Limit()
	var results []*types.SearchResult
	gjson.GetBytes(data, "results").ForEach(func(_, r gjson.Result) bool {
		results = append(results, &types.SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Content: r.Get("content").String(),
		})
		return len(results) < limit
	})

	return p.newResponse(req, results, startTime), nil
}
