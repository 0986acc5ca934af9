package service

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/pkg/response"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// ImageGenerationRequest is the body of POST /api/images/generations
type ImageGenerationRequest struct {
	relay.Config
	Model  string `json:"model"`
	Prompt string `json:"prompt"`

	// 可选生图参数，未设置时不转发
	Size              string `json:"size,omitempty"`
	Width             *int   `json:"width,omitempty"`
	Height            *int   `json:"height,omitempty"`
	Seed              *int64 `json:"seed,omitempty"`
	NumInferenceSteps *int   `json:"num_inference_steps,omitempty"`
	NegativePrompt    string `json:"negative_prompt,omitempty"`
}

// MediaProxyPath is the cached-media URL for a remote image
func MediaProxyPath(remote string) string {
	return "/api/media?url=" + url.QueryEscape(remote)
}

// GenerateImages forwards an image generation call and rewrites every result
// to a gateway-served copy.
// @Summary Image generation
// @Tags images
// @Accept json
// @Produce json
// @Param request body ImageGenerationRequest true "Image generation request"
// @Router /api/images/generations [post]
func (s *GatewayService) GenerateImages(c *gin.Context) {
	var req ImageGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}
	if req.BaseURL == "" || req.Model == "" || strings.TrimSpace(req.Prompt) == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "baseUrl, model and prompt are required")
		return
	}

	ctx, cancel := s.imageContext(c.Request.Context())
	defer cancel()
	log := s.logger.WithContext(ctx)

	payload, err := buildImagePayload(&req)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, relay.Endpoint(req.BaseURL, "/images/generations"), bytes.NewReader(payload))
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams, "invalid baseUrl"))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Warn("image generation request failed", zap.String("model", req.Model), zap.Error(err))
		response.HandleError(c, toAppError(err, apperrors.ErrUpstreamUnreachable))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamError))
		response.HandleError(c, apperrors.Upstream(resp.StatusCode, string(text)))
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || !gjson.ValidBytes(body) {
		response.InternalError(c, "upstream returned invalid JSON")
		return
	}

	out, err := s.rewriteImages(c, body)
	if err != nil {
		response.HandleError(c, toAppError(err, apperrors.ErrCacheWrite))
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func buildImagePayload(req *ImageGenerationRequest) ([]byte, error) {
	payload := []byte(`{}`)
	set := func(path string, v interface{}) error {
		var err error
		payload, err = sjson.SetBytes(payload, path, v)
		return err
	}

	if err := set("prompt", req.Prompt); err != nil {
		return nil, err
	}
	if err := set("model", req.Model); err != nil {
		return nil, err
	}
	if req.Size != "" {
		if err := set("size", req.Size); err != nil {
			return nil, err
		}
	}
	if req.NumInferenceSteps != nil {
		if err := set("num_inference_steps", *req.NumInferenceSteps); err != nil {
			return nil, err
		}
	}
	if req.NegativePrompt != "" {
		if err := set("negative_prompt", req.NegativePrompt); err != nil {
			return nil, err
		}
	}
	if req.Width != nil {
		if err := set("width", *req.Width); err != nil {
			return nil, err
		}
	}
	if req.Height != nil {
		if err := set("height", *req.Height); err != nil {
			return nil, err
		}
	}
	if req.Seed != nil {
		if err := set("seed", *req.Seed); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// rewriteImages points every data[i] at a copy the gateway serves. Remote
// URLs are fetched into the media cache first; a failed warm-up keeps the
// original URL. Inline b64_json payloads are stored and dropped from the body.
func (s *GatewayService) rewriteImages(c *gin.Context, body []byte) ([]byte, error) {
	ctx := c.Request.Context()
	log := s.logger.WithContext(ctx)

	data := gjson.GetBytes(body, "data")
	items := []byte(data.Raw)
	if !data.IsArray() {
		items = []byte(`[]`)
	}

	images := make([]string, 0)
	var err error
	for i, item := range gjson.ParseBytes(items).Array() {
		switch {
		case item.Get("url").String() != "":
			remote := item.Get("url").String()
			if _, ferr := s.cache.Fetch(ctx, remote); ferr != nil {
				log.Warn("failed to cache generated image", zap.String("url", remote), zap.Error(ferr))
				images = append(images, remote)
				continue
			}
			local := MediaProxyPath(remote)
			if items, err = sjson.SetBytes(items, fmt.Sprintf("%d.url", i), local); err != nil {
				return nil, err
			}
			images = append(images, local)

		case item.Get("b64_json").String() != "":
			saved, serr := s.cache.SaveGenerated(ctx, "data:image/png;base64,"+item.Get("b64_json").String())
			if serr != nil {
				return nil, serr
			}
			if items, err = sjson.SetBytes(items, fmt.Sprintf("%d.url", i), saved.URL); err != nil {
				return nil, err
			}
			if items, err = sjson.DeleteBytes(items, fmt.Sprintf("%d.b64_json", i)); err != nil {
				return nil, err
			}
			images = append(images, saved.URL)
		}
	}

	out, err := sjson.SetBytes([]byte(`{}`), "images", images)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(out, "data", items)
}
