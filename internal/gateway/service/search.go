package service

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
)

// Search runs a web search through one provider
// @Summary Web search
// @Tags search
// @Accept json
// @Produce json
// @Param request body websearch.Query true "Search request"
// @Success 200 {object} websearch.Result
// @Router /api/search [post]
func (s *GatewayService) Search(c *gin.Context) {
	var req websearch.Query
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	result, err := s.search.Search(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrSearchFailed))
		return
	}

	response.Success(c, result)
}
