package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 64 << 10

// Relay forwards chat completions to an OpenAI-compatible API and streams
// the growing answer back to the caller.
type Relay struct {
	client        *http.Client
	logger        *logger.Logger
	metrics       *metrics.Metrics
	streamTimeout time.Duration
}

// Option configures a Relay
type Option func(*Relay)

// WithMetrics records stream outcomes and skipped frames
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithStreamTimeout bounds one whole streamed call; 0 disables the bound
func WithStreamTimeout(d time.Duration) Option {
	return func(r *Relay) { r.streamTimeout = d }
}

// New creates a Relay. client must not carry an overall timeout shorter than
// the longest expected stream.
func New(client *http.Client, log *logger.Logger, opts ...Option) *Relay {
	r := &Relay{
		client: client,
		logger: log.Named("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chat issues a streaming chat completion and returns the final text.
// onUpdate fires in frame order with the cumulative text. Cancelling ctx
// aborts the upstream call.
func (r *Relay) Chat(ctx context.Context, req *ChatRequest, onUpdate UpdateFunc) (string, error) {
	if req.BaseURL == "" {
		return "", fmt.Errorf("base url is required")
	}
	if req.Model == "" {
		return "", fmt.Errorf("model is required")
	}

	if r.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.streamTimeout)
		defer cancel()
	}

	payload, err := json.Marshal(BuildCompletionRequest(req.Model, req.Messages))
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	target := Endpoint(req.BaseURL, "/chat/completions")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	log := r.logger.WithContext(ctx)
	start := time.Now()

	resp, err := r.client.Do(httpReq)
	if err != nil {
		r.metrics.RelayStream("error")
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		r.metrics.RelayStream("upstream_error")
		log.Warn("upstream rejected chat request",
			zap.String("model", req.Model),
			zap.Int("status", resp.StatusCode),
		)
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	reader := NewStreamReader(onUpdate, frameLogger{r: r, log: log})
	content, err := reader.Read(ctx, resp.Body)
	if err != nil {
		r.metrics.RelayStream("error")
		log.Warn("chat stream interrupted",
			zap.String("model", req.Model),
			zap.Int("received", len(content)),
			zap.Error(err),
		)
		return content, err
	}

	r.metrics.RelayStream("ok")
	log.Debug("chat stream completed",
		zap.String("model", req.Model),
		zap.Int("length", len(content)),
		zap.Duration("duration", time.Since(start)),
	)

	return content, nil
}

type frameLogger struct {
	r   *Relay
	log *logger.Logger
}

func (f frameLogger) FrameSkipped(line string, err error) {
	f.r.metrics.FrameSkipped()
	if len(line) > 200 {
		line = line[:200]
	}
	f.log.Warn("skipping stream frame", zap.String("frame", line), zap.Error(err))
}

// BuildCompletionRequest shapes messages for the upstream. Messages with
// images become multi-part content: the text first, then one image part per
// attachment expressed as a data URI.
func BuildCompletionRequest(model string, messages []Message) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		if len(msg.Images) == 0 {
			out = append(out, openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
			continue
		}

		parts := make([]openai.ChatMessagePart, 0, len(msg.Images)+1)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: msg.Content,
		})
		for _, img := range msg.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: ImageDataURI(img)},
			})
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:         msg.Role,
			MultiContent: parts,
		})
	}

	return openai.ChatCompletionRequest{
		Model:    model,
		Messages: out,
		Stream:   true,
	}
}

// ImageDataURI wraps bare base64 as a JPEG data URI
func ImageDataURI(img string) string {
	if strings.HasPrefix(img, "data:") {
		return img
	}
	return "data:image/jpeg;base64," + img
}
