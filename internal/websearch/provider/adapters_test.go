package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
	"github.com/tidwall/gjson"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, id types.ProviderID, host, key string) Provider {
	t.Helper()
	p, err := NewFactory(http.DefaultClient).Create(&types.ProviderConfig{ID: id, APIHost: host, APIKey: key})
	require.NoError(t, err)
	return p
}

func search(t *testing.T, p Provider, query string) *types.SearchResponse {
	t.Helper()
	resp, err := p.Search(context.Background(), &types.SearchRequest{Query: query, MaxResults: types.MaxResults})
	require.NoError(t, err)
	return resp
}

func TestTavilyProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "golang generics", gjson.GetBytes(body, "query").String())
		assert.Equal(t, "tv-key", gjson.GetBytes(body, "api_key").String())
		assert.Equal(t, int64(5), gjson.GetBytes(body, "max_results").Int())
		assert.Equal(t, "basic", gjson.GetBytes(body, "search_depth").String())

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[
			{"title":"Generics","url":"https://go.dev/doc/tutorial/generics","content":"Tutorial"},
			{"title":"Spec","url":"https://go.dev/ref/spec","content":"Type parameters"}
		]}`)
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderTavily, srv.URL, "tv-key"), "golang generics")
	require.Len(t, resp.Results, 2)
	assert.Equal(t, &types.SearchResult{Title: "Generics", URL: "https://go.dev/doc/tutorial/generics", Content: "Tutorial"}, resp.Results[0])
	assert.Equal(t, types.ProviderTavily, resp.Provider)
}

func TestTavilyProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newProvider(t, types.ProviderTavily, srv.URL, "bad")
	_, err := p.Search(context.Background(), &types.SearchRequest{Query: "q"})

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Contains(t, pe.Message, "invalid api key")
}

func TestBingProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7.0/search", r.URL.Path)
		assert.Equal(t, "rust async", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		assert.Equal(t, "bing-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		var items []string
		for i := 1; i <= 7; i++ {
			items = append(items, fmt.Sprintf(`{"name":"R%d","url":"https://r%d.example","snippet":"S%d"}`, i, i, i))
		}
		_, _ = fmt.Fprintf(w, `{"webPages":{"value":[%s]}}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderBing, srv.URL, "bing-key"), "rust async")
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "R1", resp.Results[0].Title)
	assert.Equal(t, "https://r5.example", resp.Results[4].URL)
	assert.Equal(t, "S5", resp.Results[4].Content)
}

func TestBingProvider_NoWebPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"_type":"SearchResponse"}`)
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderBing, srv.URL, "k"), "nothing")
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
}

func TestSearXNGProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		_, _ = io.WriteString(w, `{"query":"x","results":[{"title":"A","url":"https://a.example","content":"about a"}]}`)
	}))
	defer srv.Close()

	p, err := NewFactory(nil).Create(&types.ProviderConfig{
		ID:                types.ProviderSearXNG,
		APIHost:           srv.URL + "/",
		BasicAuthUsername: "admin",
		BasicAuthPassword: "secret",
	})
	require.NoError(t, err)

	resp := search(t, p, "x")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "about a", resp.Results[0].Content)
}

func TestSearXNGProvider_NotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>format disabled</html>`)
	}))
	defer srv.Close()

	p := newProvider(t, types.ProviderSearXNG, srv.URL, "")
	_, err := p.Search(context.Background(), &types.SearchRequest{Query: "x"})
	assert.ErrorIs(t, err, types.ErrInvalidResponse)
}

const googlePage = `<html><body><div id="search">
<div class="g"><a href="/url?q=https://go.dev/&amp;sa=U"><h3>The Go Programming Language</h3></a><div class="VwiC3b">Go is an open source   language.</div></div>
<div class="g"><a href="https://pkg.go.dev/"><h3>Go Packages</h3></a><div class="VwiC3b">Discover packages.</div></div>
<div class="g"><div class="VwiC3b">no link, skipped</div></div>
</div></body></html>`

func TestGoogleProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, googlePage)
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderGoogle, srv.URL, ""), "golang")
	require.Len(t, resp.Results, 2)
	assert.Equal(t, &types.SearchResult{
		Title:   "The Go Programming Language",
		URL:     "https://go.dev/",
		Content: "Go is an open source language.",
	}, resp.Results[0])
	assert.Equal(t, "https://pkg.go.dev/", resp.Results[1].URL)
}

func TestDuckDuckGoProvider_Search_Cap(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, `<div class="result"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%%3A%%2F%%2Fsite%d.example%%2F&amp;rut=abc">Site %d</a><a class="result__snippet">Snippet %d</a></div>`, i, i, i)
	}
	b.WriteString(`</body></html>`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		_, _ = io.WriteString(w, b.String())
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderDuckDuckGo, srv.URL, ""), "sites")
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "Site 1", resp.Results[0].Title)
	assert.Equal(t, "https://site1.example/", resp.Results[0].URL)
	assert.Equal(t, "Snippet 5", resp.Results[4].Content)
}

func TestBaiduProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s", r.URL.Path)
		assert.Equal(t, "开源", r.URL.Query().Get("wd"))
		_, _ = io.WriteString(w, `<html><body>
<div class="c-container"><h3><a href="http://www.baidu.com/link?url=xyz">开源软件</a></h3><div class="c-abstract">开源软件是指...</div></div>
</body></html>`)
	}))
	defer srv.Close()

	resp := search(t, newProvider(t, types.ProviderBaidu, srv.URL, ""), "开源")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "开源软件", resp.Results[0].Title)
	assert.Equal(t, "http://www.baidu.com/link?url=xyz", resp.Results[0].URL)
	assert.Equal(t, "开源软件是指...", resp.Results[0].Content)
}

func TestScrapedProviders_MarkupChangeIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><body><p>captcha</p></body></html>`)
	}))
	defer srv.Close()

	for _, id := range []types.ProviderID{types.ProviderGoogle, types.ProviderDuckDuckGo, types.ProviderBaidu} {
		t.Run(string(id), func(t *testing.T) {
			resp := search(t, newProvider(t, id, srv.URL, ""), "anything")
			assert.Empty(t, resp.Results)
		})
	}
}
