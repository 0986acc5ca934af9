package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/chat-gateway/internal/media"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"go.uber.org/zap"
)

// SaveImageRequest is the body of POST /api/save-image
type SaveImageRequest struct {
	// Image is a data URI or bare base64
	Image string `json:"image"`
}

// GetMedia serves a remote media URL through the cache
// @Summary Cached media proxy
// @Tags media
// @Produce octet-stream
// @Param url query string true "Remote media URL"
// @Router /api/media [get]
func (s *GatewayService) GetMedia(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "Missing url parameter")
		return
	}

	entry, err := s.cache.Fetch(c.Request.Context(), target)
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Warn("media fetch failed", zap.String("url", target), zap.Error(err))
		response.HandleError(c, toAppError(err, apperrors.ErrInternalServer))
		return
	}

	writeEntry(c, entry)
}

// GetDataFile serves a stored file by name
// @Summary Serve cached file
// @Tags media
// @Param filename path string true "File name"
// @Router /data/{filename} [get]
func (s *GatewayService) GetDataFile(c *gin.Context) {
	entry, err := s.cache.Open(c.Request.Context(), c.Param("filename"))
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrInternalServer))
		return
	}

	writeEntry(c, entry)
}

// SaveImage stores a base64 image and returns the path it is served under
// @Summary Save generated image
// @Tags media
// @Accept json
// @Produce json
// @Param request body SaveImageRequest true "Image payload"
// @Success 200 {object} media.SavedImage
// @Router /api/save-image [post]
func (s *GatewayService) SaveImage(c *gin.Context) {
	var req SaveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "Missing or invalid image data")
		return
	}

	saved, err := s.cache.SaveGenerated(c.Request.Context(), req.Image)
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrCacheWrite))
		return
	}

	response.Success(c, saved)
}

func writeEntry(c *gin.Context, entry *media.Entry) {
	c.Header("Cache-Control", media.CacheControl)
	if entry.Hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, entry.ContentType, entry.Data)
}
