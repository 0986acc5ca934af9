package relay

import (
	"fmt"
	"strings"
)

// Message is one conversation turn. Images are data URIs or bare base64.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Config is the connection to an OpenAI-compatible API
type Config struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// ChatRequest is one streaming chat-completion call
type ChatRequest struct {
	Config
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// UpdateFunc receives the cumulative text after every non-empty delta
type UpdateFunc func(content string)

// UpstreamError is returned when the model API answers with a non-2xx status
// before streaming starts.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// NormalizeBaseURL trims a trailing slash and makes sure the URL ends in /v1
func NormalizeBaseURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}

// Endpoint joins the normalized base URL with an API path such as "/chat/completions"
func Endpoint(base, path string) string {
	return NormalizeBaseURL(base) + path
}

// Accumulator holds the text observed so far for one in-flight stream
type Accumulator struct {
	b strings.Builder
}

// Append adds a delta and returns the cumulative text
func (a *Accumulator) Append(delta string) string {
	a.b.WriteString(delta)
	return a.b.String()
}

func (a *Accumulator) String() string {
	return a.b.String()
}
