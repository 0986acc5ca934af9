package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
	"github.com/tidwall/gjson"
)

// BingProvider implements the Bing Web Search v7 API
type BingProvider struct {
	*BaseProvider
}

// NewBingProvider creates a new Bing provider
func NewBingProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &BingProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

// Search executes a search query using the Bing API
func (p *BingProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(req.Limit()))

	apiURL := fmt.Sprintf("%s/v7.0/search?%s", p.config.Host(), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", p.userAgent(apiUserAgent))
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.GetAPIKey())

	data, err := p.readJSON(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, &types.ProviderError{Provider: p.GetID(), Code: "INVALID_RESPONSE", Message: "response is not JSON", Err: types.ErrInvalidResponse}
	}

	// webPages is absent when Bing has nothing to say
	limit := req.Limit()
	var results []*types.SearchResult
	gjson.GetBytes(data, "webPages.value").ForEach(func(_, r gjson.Result) bool {
		results = append(results, &types.SearchResult{
			Title:   r.Get("name").String(),
			URL:     r.Get("url").String(),
			Content: r.Get("snippet").String(),
		})
		return len(results) < limit
	})

	return p.newResponse(req, results, startTime), nil
}
