package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrStreamClosed is returned by Send after Close or once the client went away
var ErrStreamClosed = errors.New("sse: stream closed")

// Stream writes events straight to one HTTP response
type Stream struct {
	w       gin.ResponseWriter
	reqCtx  context.Context
	mu      sync.Mutex
	closed  atomic.Bool
	cancel  context.CancelFunc
	onError func(error)
}

// StreamBuilder 构建器
type StreamBuilder struct {
	ginCtx    *gin.Context
	heartbeat time.Duration
	onError   func(error)
}

// NewStream 创建 Stream 构建器
func NewStream(c *gin.Context) *StreamBuilder {
	return &StreamBuilder{
		ginCtx:    c,
		heartbeat: 15 * time.Second,
	}
}

// WithHeartbeat 设置心跳间隔(0 表示禁用心跳)
func (b *StreamBuilder) WithHeartbeat(interval time.Duration) *StreamBuilder {
	b.heartbeat = interval
	return b
}

// OnError 设置错误处理钩子
func (b *StreamBuilder) OnError(fn func(error)) *StreamBuilder {
	b.onError = fn
	return b
}

// Start 写入 SSE 响应头并启动心跳
func (b *StreamBuilder) Start() *Stream {
	c := b.ginCtx
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	s := &Stream{
		w:       c.Writer,
		reqCtx:  c.Request.Context(),
		onError: b.onError,
	}

	if b.heartbeat > 0 {
		ctx, cancel := context.WithCancel(s.reqCtx)
		s.cancel = cancel
		go s.startHeartbeat(ctx, b.heartbeat)
	}

	return s
}

// Send 发送事件(并发安全)
func (s *Stream) Send(eventType string, data interface{}) error {
	return s.write(Event{Type: eventType, Data: data}.FormatSSE())
}

// Close 停止心跳并等待进行中的写入完成(幂等)
func (s *Stream) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
}

// IsClosed 检查是否已关闭
func (s *Stream) IsClosed() bool {
	return s.closed.Load()
}

func (s *Stream) write(payload string) error {
	if s.closed.Load() || s.reqCtx.Err() != nil {
		return ErrStreamClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrStreamClosed
	}

	if _, err := fmt.Fprint(s.w, payload); err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return err
	}
	s.w.Flush()
	return nil
}

// startHeartbeat 启动心跳
func (s *Stream) startHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(": heartbeat\n\n"); err != nil {
				return
			}
		}
	}
}
