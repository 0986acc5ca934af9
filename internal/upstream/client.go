package upstream

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes the outbound HTTP clients
type ClientOptions struct {
	// Timeout bounds the whole exchange including the body read; 0 means none
	Timeout               time.Duration
	ResponseHeaderTimeout time.Duration
}

// NewHTTPClient creates a new HTTP client for upstream calls
func NewHTTPClient(opts ClientOptions) *http.Client {
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		},
	}
}

// NewStreamingClient returns a client without an overall timeout; streamed
// bodies are bounded by the caller's context instead.
func NewStreamingClient(responseHeaderTimeout time.Duration) *http.Client {
	return NewHTTPClient(ClientOptions{ResponseHeaderTimeout: responseHeaderTimeout})
}
