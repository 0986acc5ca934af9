package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"github.com/lk2023060901/chat-gateway/internal/pkg/sse"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"go.uber.org/zap"
)

// SSE event names emitted by Chat
const (
	EventUpdate = "update"
	EventSearch = "search"
	EventDone   = "done"
	EventError  = "error"
)

const chatHeartbeat = 15 * time.Second

// ChatSearchOptions enables search augmentation for one chat call
type ChatSearchOptions struct {
	Provider    string                 `json:"provider"`
	APIKey      string                 `json:"apiKey"`
	ExtraConfig *websearch.ExtraConfig `json:"extraConfig,omitempty"`
	// Query defaults to the latest user message
	Query string `json:"query,omitempty"`
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	relay.ChatRequest
	Search *ChatSearchOptions `json:"search,omitempty"`
}

// ContentEvent is the payload of update and done events
type ContentEvent struct {
	Content string `json:"content"`
}

// ErrorEvent is the payload of error events
type ErrorEvent struct {
	Error string `json:"error"`
}

// Chat 服务端流式对话，可选联网搜索增强
// @Summary Streaming chat relay
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "Chat Request"
// @Router /api/chat [post]
func (s *GatewayService) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if err := validateChat(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	ctx := c.Request.Context()
	log := s.logger.WithContext(ctx)
	messages := req.Messages

	// 搜索在建立 SSE 之前完成，失败时仍能返回正常的 HTTP 状态码
	var searchResult *websearch.Result
	if req.Search != nil {
		query := strings.TrimSpace(req.Search.Query)
		if query == "" {
			if i := lastUserIndex(messages); i >= 0 {
				query = messages[i].Content
			}
		}

		result, err := s.search.Search(ctx, websearch.Query{
			Query:       query,
			Provider:    req.Search.Provider,
			APIKey:      req.Search.APIKey,
			ExtraConfig: req.Search.ExtraConfig,
		})
		if err != nil {
			response.HandleError(c, toAppError(err, apperrors.ErrSearchFailed))
			return
		}
		searchResult = result
		messages = AugmentMessages(messages, result.Results)
	}

	// SSE 在上游返回 2xx 之后才建立，上游拒绝时保留其状态码
	var stream *sse.Stream
	open := func() *sse.Stream {
		if stream != nil {
			return stream
		}
		stream = sse.NewStream(c).
			WithHeartbeat(chatHeartbeat).
			OnError(func(err error) {
				log.Debug("chat stream write failed", zap.Error(err))
			}).
			Start()
		if searchResult != nil {
			_ = stream.Send(EventSearch, searchResult)
		}
		return stream
	}
	defer func() {
		if stream != nil {
			stream.Close()
		}
	}()

	content, err := s.relay.Chat(ctx, &relay.ChatRequest{
		Config:   req.Config,
		Model:    req.Model,
		Messages: messages,
	}, func(content string) {
		_ = open().Send(EventUpdate, ContentEvent{Content: content})
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("chat client disconnected", zap.String("model", req.Model), zap.Int("received", len(content)))
			return
		}
		appErr := toAppError(err, apperrors.ErrInternalServer)
		if stream == nil {
			response.HandleError(c, appErr)
			return
		}
		_ = stream.Send(EventError, ErrorEvent{
			Error: apperrors.FormatError(apperrors.ExtractCode(appErr), apperrors.GetDetails(appErr)),
		})
		return
	}

	_ = open().Send(EventDone, ContentEvent{Content: content})
}

func validateChat(req *ChatRequest) error {
	switch {
	case strings.TrimSpace(req.BaseURL) == "":
		return fmt.Errorf("baseUrl is required")
	case strings.TrimSpace(req.Model) == "":
		return fmt.Errorf("model is required")
	case len(req.Messages) == 0:
		return fmt.Errorf("messages must not be empty")
	}
	return nil
}

// AugmentMessages returns a copy of messages whose latest user message is
// prefixed with the search block. The input slice is left untouched.
func AugmentMessages(messages []relay.Message, block string) []relay.Message {
	out := make([]relay.Message, len(messages))
	copy(out, messages)

	if i := lastUserIndex(out); i >= 0 {
		out[i].Content = fmt.Sprintf(
			"Use the following web search results to answer. Cite sources by their [n] number.\n\n%s\n\nQuestion: %s",
			block, out[i].Content,
		)
	}
	return out
}

func lastUserIndex(messages []relay.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return i
		}
	}
	return -1
}
