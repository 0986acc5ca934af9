package service

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"github.com/lk2023060901/chat-gateway/internal/upstream"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ProxyPost forwards a described request to an upstream API
// @Summary Generic upstream proxy
// @Tags proxy
// @Accept json
// @Produce json,text/event-stream
// @Param request body upstream.Descriptor true "Upstream request descriptor"
// @Router /api/proxy [post]
func (s *GatewayService) ProxyPost(c *gin.Context) {
	var desc upstream.Descriptor
	if err := c.ShouldBindJSON(&desc); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if err := desc.Validate(); err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrInvalidParams))
		return
	}

	wantsStream := desc.WantsStream()
	ctx, cancel := s.upstreamContext(c.Request.Context(), wantsStream)
	defer cancel()

	req, err := desc.NewRequest(ctx)
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrInvalidParams))
		return
	}

	s.forward(c, req, wantsStream)
}

// ProxyGet forwards a GET with the caller's Authorization header. It backs
// model listing ({base}/v1/models).
// @Summary Read-only upstream proxy
// @Tags proxy
// @Produce json
// @Param url query string true "Target URL"
// @Router /api/proxy [get]
func (s *GatewayService) ProxyGet(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "Missing url parameter")
		return
	}

	desc := upstream.Descriptor{
		TargetURL: target,
		Method:    http.MethodGet,
		Headers: map[string]string{
			"Authorization": c.GetHeader("Authorization"),
			"Content-Type":  "application/json",
		},
	}
	if err := desc.Validate(); err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrInvalidParams))
		return
	}

	ctx, cancel := s.upstreamContext(c.Request.Context(), false)
	defer cancel()

	req, err := desc.NewRequest(ctx)
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrInvalidParams))
		return
	}

	s.forward(c, req, false)
}

// upstreamContext applies the deadline for a plain or streamed call
func (s *GatewayService) upstreamContext(ctx context.Context, stream bool) (context.Context, context.CancelFunc) {
	d := s.timeout
	if stream {
		d = s.streamTimeout
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// imageContext bounds an image generation call, which can run far longer
// than a plain JSON call
func (s *GatewayService) imageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.imageTimeout
	if d <= 0 {
		d = s.streamTimeout
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// forward executes req and relays the answer: upstream errors keep their
// status, event streams are piped through unchanged, anything else must be JSON.
func (s *GatewayService) forward(c *gin.Context, req *http.Request, wantsStream bool) {
	log := s.logger.WithContext(c.Request.Context())

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("upstream request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		response.HandleError(c, toAppError(err, apperrors.ErrUpstreamUnreachable))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamError))
		log.Warn("upstream returned an error",
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
		)
		response.HandleError(c, apperrors.Upstream(resp.StatusCode, string(text)))
		return
	}

	if wantsStream || upstream.IsEventStream(resp.Header.Get("Content-Type")) {
		s.pipeStream(c, resp.Body)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrUpstreamUnreachable, "failed to read upstream response"))
		return
	}
	if !gjson.ValidBytes(body) {
		response.InternalError(c, "upstream returned invalid JSON")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// pipeStream copies an event stream to the client chunk by chunk, flushing
// after every read. It stops when either side goes away.
func (s *GatewayService) pipeStream(c *gin.Context, body io.Reader) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	buf := make([]byte, 32<<10)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				s.logger.WithContext(c.Request.Context()).Warn("stream passthrough interrupted", zap.Error(err))
			}
			return
		}
	}
}
