package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
)

// DuckDuckGoProvider scrapes the JavaScript-free DuckDuckGo HTML endpoint
type DuckDuckGoProvider struct {
	*BaseProvider
}

// NewDuckDuckGoProvider creates a new DuckDuckGo provider
func NewDuckDuckGoProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &DuckDuckGoProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("q", req.Query)

	base := p.config.Host()
	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s/html/?%s", base, params.Encode()))
	if err != nil {
		return nil, err
	}

	c := newCollector(req.Limit())
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find(".result__a").First()
		href, _ := a.Attr("href")
		return c.add(
			a.Text(),
			resolveLink(base, href, "uddg"),
			s.Find(".result__snippet").First().Text(),
		)
	})

	return p.newResponse(req, c.results, startTime), nil
}
