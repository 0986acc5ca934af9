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

// BaiduProvider 抓取百度搜索结果页
type BaiduProvider struct {
	*BaseProvider
}

// NewBaiduProvider creates a new Baidu provider
func NewBaiduProvider(config *types.ProviderConfig, client *http.Client) (Provider, error) {
	return &BaiduProvider{BaseProvider: NewBaseProvider(config, client)}, nil
}

func (p *BaiduProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("wd", req.Query)
	params.Set("rn", "10")

	base := p.config.Host()
	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s/s?%s", base, params.Encode()))
	if err != nil {
		return nil, err
	}

	// 链接是百度跳转地址 (baidu.com/link?url=...)，直接保留
	c := newCollector(req.Limit())
	doc.Find("div.c-container").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s.Find("h3 a").First()
		href, _ := a.Attr("href")
		return c.add(
			a.Text(),
			resolveLink(base, href),
			s.Find(".c-abstract").First().Text(),
		)
	})

	return p.newResponse(req, c.results, startTime), nil
}
