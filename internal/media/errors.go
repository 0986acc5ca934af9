package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNotExist is returned by stores for missing objects
	ErrNotExist = errors.New("media: file does not exist")
	// ErrInvalidImage is returned for payloads that are not a valid data URI or base64
	ErrInvalidImage = errors.New("media: invalid image data")
	// ErrInvalidURL is returned for media URLs that cannot be fetched
	ErrInvalidURL = errors.New("media: url must be an absolute http(s) URL")
	// ErrInvalidFilename is returned for names that are empty after sanitizing
	ErrInvalidFilename = errors.New("media: invalid filename")
)

// FetchError carries a non-2xx status from the media origin
type FetchError struct {
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch media: %d", e.StatusCode)
}
