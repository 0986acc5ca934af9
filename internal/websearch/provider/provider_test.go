package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseProvider(t *testing.T) {
	config := &types.ProviderConfig{
		ID:      types.ProviderTavily,
		APIHost: "https://api.tavily.com",
		APIKey:  "test-key",
	}

	base := NewBaseProvider(config, nil)
	assert.NotNil(t, base)
	assert.Equal(t, types.ProviderTavily, base.GetID())
	assert.Equal(t, "test-key", base.GetAPIKey())
	assert.NotNil(t, base.httpClient)
}

func TestBaseProvider_GetAPIKey_Rotation(t *testing.T) {
	config := &types.ProviderConfig{
		ID:      types.ProviderTavily,
		APIHost: "https://api.tavily.com",
		APIKey:  "key1, key2, ,key3",
	}

	base := NewBaseProvider(config, nil)

	assert.Equal(t, "key1", base.GetAPIKey())
	assert.Equal(t, "key2", base.GetAPIKey())
	assert.Equal(t, "key3", base.GetAPIKey())
	assert.Equal(t, "key1", base.GetAPIKey()) // Should rotate back to first
}

func TestBaseProvider_GetAPIKey_Concurrent(t *testing.T) {
	base := NewBaseProvider(&types.ProviderConfig{
		ID:      types.ProviderBing,
		APIHost: "https://api.bing.microsoft.com",
		APIKey:  "a,b",
	}, nil)

	var (
		mu     sync.Mutex
		counts = map[string]int{}
		wg     sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := base.GetAPIKey()
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counts["a"])
	assert.Equal(t, 50, counts["b"])
}

func TestBaseProvider_GetAPIKey_Empty(t *testing.T) {
	base := NewBaseProvider(&types.ProviderConfig{ID: types.ProviderGoogle, APIHost: "https://www.google.com"}, nil)
	assert.Equal(t, "", base.GetAPIKey())
}

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *types.ProviderConfig
		wantErr error
	}{
		{
			name:    "valid tavily config",
			config:  &types.ProviderConfig{ID: types.ProviderTavily, APIHost: "https://api.tavily.com", APIKey: "k"},
			wantErr: nil,
		},
		{
			name:    "tavily without key",
			config:  &types.ProviderConfig{ID: types.ProviderTavily, APIHost: "https://api.tavily.com"},
			wantErr: types.ErrMissingAPIKey,
		},
		{
			name:    "bing with blank key",
			config:  &types.ProviderConfig{ID: types.ProviderBing, APIHost: "https://api.bing.microsoft.com", APIKey: "  "},
			wantErr: types.ErrMissingAPIKey,
		},
		{
			name:    "duckduckgo needs no key",
			config:  &types.ProviderConfig{ID: types.ProviderDuckDuckGo, APIHost: "https://html.duckduckgo.com"},
			wantErr: nil,
		},
		{
			name:    "searxng without instance",
			config:  &types.ProviderConfig{ID: types.ProviderSearXNG},
			wantErr: types.ErrMissingInstanceURL,
		},
		{
			name: "searxng basic auth without password",
			config: &types.ProviderConfig{
				ID:                types.ProviderSearXNG,
				APIHost:           "https://search.example.com",
				BasicAuthUsername: "admin",
			},
			wantErr: types.ErrMissingBasicAuthPassword,
		},
		{
			name:    "host without scheme",
			config:  &types.ProviderConfig{ID: types.ProviderGoogle, APIHost: "www.google.com"},
			wantErr: types.ErrInvalidAPIHost,
		},
		{
			name:    "missing id",
			config:  &types.ProviderConfig{APIHost: "https://example.com"},
			wantErr: types.ErrInvalidProviderID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, types.IsConfigError(err))
		})
	}
}

func TestBaseProvider_DoRequest_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	base := NewBaseProvider(&types.ProviderConfig{ID: types.ProviderBing, APIHost: srv.URL, APIKey: "k"}, srv.Client())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := base.DoRequest(context.Background(), req)
	assert.Nil(t, resp)
	require.Error(t, err)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, "HTTP_429", pe.Code)
	assert.Equal(t, "quota exceeded", pe.Message)
	assert.Equal(t, 1, calls)
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		href   string
		params []string
		want   string
	}{
		{"absolute", "https://www.baidu.com", "http://www.baidu.com/link?url=abc", nil, "http://www.baidu.com/link?url=abc"},
		{"relative", "https://www.google.com", "/search?q=x", nil, "https://www.google.com/search?q=x"},
		{"google redirect", "https://www.google.com", "/url?q=https://go.dev/doc/&sa=U", []string{"q"}, "https://go.dev/doc/"},
		{"duckduckgo redirect", "https://html.duckduckgo.com", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&rut=x", []string{"uddg"}, "https://go.dev/"},
		{"redirect param not a url", "https://www.google.com", "https://example.com/?q=golang", []string{"q"}, "https://example.com/?q=golang"},
		{"empty", "https://www.google.com", "  ", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveLink(tt.base, tt.href, tt.params...))
		})
	}
}

func TestCollector(t *testing.T) {
	c := newCollector(2)
	assert.True(t, c.add("", "https://a", "skipped, no title"))
	assert.True(t, c.add("  First \n result ", "https://a", " one "))
	assert.False(t, c.add("Second", "https://b", "two"))
	assert.False(t, c.add("Third", "https://c", "three"))

	require.Len(t, c.results, 2)
	assert.Equal(t, "First result", c.results[0].Title)
	assert.Equal(t, "one", c.results[0].Content)
}
