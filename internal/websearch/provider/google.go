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

// GoogleProvider scrapes the Google results page
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider creates a new Google provider
func NewGoogleProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &GoogleProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

// Search scrapes one results page; markup changes degrade to zero results
func (p *GoogleProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("hl", "en")
	params.Set("num", "10")

	base := p.config.Host()
	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s/search?%s", base, params.Encode()))
	if err != nil {
		return nil, err
	}

	c := newCollector(req.Limit())
	doc.Find("div.g").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Find("a[href]").First().Attr("href")
		return c.add(
			s.Find("h3").First().Text(),
			resolveLink(base, href, "q"),
			s.Find("div.VwiC3b").First().Text(),
		)
	})

	return p.newResponse(req, c.results, startTime), nil
}
