package types

import (
	"strings"
	"time"
)

type ProviderID string

const (
	ProviderTavily     ProviderID = "tavily"
	ProviderBing       ProviderID = "bing"
	ProviderGoogle     ProviderID = "google"
	ProviderDuckDuckGo ProviderID = "duckduckgo"
	ProviderBaidu      ProviderID = "baidu"
	ProviderSearXNG    ProviderID = "searxng"
)

// DefaultHosts are the public endpoints used when no host override is configured.
// SearXNG has none: it always needs an instance URL.
var DefaultHosts = map[ProviderID]string{
	ProviderTavily:     "https://api.tavily.com",
	ProviderBing:       "https://api.bing.microsoft.com",
	ProviderGoogle:     "https://www.google.com",
	ProviderDuckDuckGo: "https://html.duckduckgo.com",
	ProviderBaidu:      "https://www.baidu.com",
}

// RequiresAPIKey reports whether the provider is a keyed JSON API
func (id ProviderID) RequiresAPIKey() bool {
	return id == ProviderTavily || id == ProviderBing
}

// ProviderConfig represents search provider configuration
type ProviderConfig struct {
	ID ProviderID `json:"id" yaml:"id"`

	// API settings
	APIHost string `json:"api_host" yaml:"api_host"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // comma-separated keys rotate

	// SearXNG Basic Auth
	BasicAuthUsername string `json:"basic_auth_username,omitempty" yaml:"basic_auth_username,omitempty"`
	BasicAuthPassword string `json:"basic_auth_password,omitempty" yaml:"basic_auth_password,omitempty"`

	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Validate validates the provider configuration
func (c *ProviderConfig) Validate() error {
	if c.ID == "" {
		return ErrInvalidProviderID
	}
	if c.APIHost == "" {
		if c.ID == ProviderSearXNG {
			return ErrMissingInstanceURL
		}
		return ErrInvalidAPIHost
	}
	if !strings.HasPrefix(c.APIHost, "http://") && !strings.HasPrefix(c.APIHost, "https://") {
		return ErrInvalidAPIHost
	}

	if c.ID.RequiresAPIKey() && strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.BasicAuthUsername != "" && c.BasicAuthPassword == "" {
		return ErrMissingBasicAuthPassword
	}

	return nil
}

// Host returns APIHost without a trailing slash
func (c *ProviderConfig) Host() string {
	return strings.TrimRight(c.APIHost, "/")
}
