package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/lk2023060901/chat-gateway/internal/media"
	apperrors "github.com/lk2023060901/chat-gateway/internal/pkg/errors"
	"github.com/lk2023060901/chat-gateway/internal/relay"
	"github.com/lk2023060901/chat-gateway/internal/upstream"
	"github.com/lk2023060901/chat-gateway/internal/websearch"
	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
)

// toAppError maps domain errors to response codes. fallback is used for
// anything unrecognized.
func toAppError(err error, fallback int) error {
	var (
		appErr   *apperrors.AppError
		fetchErr *media.FetchError
		relayErr *relay.UpstreamError
		provErr  *types.ProviderError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr

	case errors.As(err, &fetchErr):
		return apperrors.New(apperrors.ErrMediaFetch, strconv.Itoa(fetchErr.StatusCode)).WithStatus(fetchErr.StatusCode)

	case errors.As(err, &relayErr):
		return apperrors.Upstream(relayErr.StatusCode, relayErr.Body)

	case errors.Is(err, media.ErrInvalidImage):
		return apperrors.New(apperrors.ErrInvalidDataURI, detailAfter(err, media.ErrInvalidImage))

	case errors.Is(err, media.ErrInvalidURL),
		errors.Is(err, media.ErrInvalidFilename),
		errors.Is(err, upstream.ErrMissingTarget),
		errors.Is(err, upstream.ErrInvalidTarget),
		errors.Is(err, types.ErrEmptyQuery):
		return apperrors.Wrap(err, apperrors.ErrInvalidParams)

	case errors.Is(err, media.ErrNotExist):
		return apperrors.NewNotFoundError("File not found")

	case errors.Is(err, types.ErrProviderNotFound):
		return apperrors.New(apperrors.ErrProviderNotFound)

	case websearch.IsClientError(err):
		return apperrors.New(apperrors.ErrProviderConfig, strings.TrimPrefix(err.Error(), "invalid config: "))

	case errors.As(err, &provErr):
		return apperrors.Wrap(err, apperrors.ErrSearchFailed, provErr.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrUpstreamUnreachable, "upstream timed out")
	}

	return apperrors.Wrap(err, fallback)
}

// detailAfter strips the sentinel's own text from a wrapped error message
func detailAfter(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}
