package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingTarget = errors.New("targetUrl is required")
	ErrInvalidTarget = errors.New("targetUrl must be an absolute http(s) URL")
)

// Descriptor describes one proxied upstream call. It is built per request
// and never persisted.
type Descriptor struct {
	TargetURL string            `json:"targetUrl"`
	Method    string            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
}

// Validate checks the target and fills the default method
func (d *Descriptor) Validate() error {
	if d.TargetURL == "" {
		return ErrMissingTarget
	}
	u, err := url.Parse(d.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidTarget
	}
	if d.Method == "" {
		d.Method = http.MethodPost
	}
	d.Method = strings.ToUpper(d.Method)
	return nil
}

// Header returns a descriptor header, matched case-insensitively
func (d *Descriptor) Header(name string) string {
	for k, v := range d.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// WantsStream reports whether the caller asked for an event stream, either
// through its Accept header or a "stream": true body flag.
func (d *Descriptor) WantsStream() bool {
	if strings.Contains(d.Header("Accept"), "text/event-stream") {
		return true
	}
	if !d.HasBody() {
		return false
	}
	return gjson.GetBytes(d.Body, "stream").Bool()
}

// HasBody reports whether a body was given; a JSON null counts as none
func (d *Descriptor) HasBody() bool {
	trimmed := bytes.TrimSpace(d.Body)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// NewRequest builds the outbound request. GET and HEAD never carry a body.
func (d *Descriptor) NewRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if d.HasBody() && d.Method != http.MethodGet && d.Method != http.MethodHead {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.TargetURL, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	for k, v := range d.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// IsEventStream reports whether a response content type is an event stream
func IsEventStream(contentType string) bool {
	return strings.Contains(contentType, "text/event-stream")
}
