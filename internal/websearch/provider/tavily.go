package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TavilyProvider implements the Tavily search API
type TavilyProvider struct {
	*BaseProvider
}

// NewTavilyProvider creates a new Tavily provider
func NewTavilyProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &TavilyProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

// Search executes a search query using the Tavily API
func (p *TavilyProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()
	apiKey := p.GetAPIKey()

	body := []byte(`{"search_depth":"basic","include_answer":false,"include_images":false}`)
	body, _ = sjson.SetBytes(body, "query", req.Query)
	body, _ = sjson.SetBytes(body, "api_key", apiKey)
	body, _ = sjson.SetBytes(body, "max_results", req.Limit())

	apiURL := fmt.Sprintf("%s/search", p.config.Host())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range p.BuildDefaultHeaders() {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	data, err := p.readJSON(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, &types.ProviderError{Provider: p.GetID(), Code: "INVALID_RESPONSE", Message: "response is not JSON", Err: types.ErrInvalidResponse}
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
