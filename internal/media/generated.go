package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var dataURIPattern = regexp.MustCompile(`^data:image/(\w+);base64,(.+)$`)

// SavedImage points at a stored generated image
type SavedImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// DataPath is the public path a stored file is served under
func DataPath(filename string) string {
	return "/data/" + filename
}

// ParseImagePayload splits a data URI or bare base64 string into the base64
// payload and a file extension. Bare base64 is treated as PNG.
func ParseImagePayload(image string) (payload, ext string, err error) {
	if image == "" {
		return "", "", ErrInvalidImage
	}
	if !strings.HasPrefix(image, "data:") {
		return image, ".png", nil
	}

	m := dataURIPattern.FindStringSubmatch(image)
	if m == nil {
		return "", "", fmt.Errorf("%w: invalid data URI format", ErrInvalidImage)
	}

	format := strings.ToLower(m[1])
	if format == "jpeg" {
		return m[2], ".jpg", nil
	}
	return m[2], "." + format, nil
}

func decodeBase64(payload string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", ErrInvalidImage)
	}
	return data, nil
}

// SaveGenerated stores a generated image keyed by the md5 of its base64
// payload and returns the path it is served under. Saving the same payload
// twice writes once.
func (c *Cache) SaveGenerated(ctx context.Context, image string) (*SavedImage, error) {
	payload, ext, err := ParseImagePayload(image)
	if err != nil {
		return nil, err
	}

	hash := HashKey(payload)
	name := hash + ext
	saved := &SavedImage{URL: DataPath(name), Filename: name}

	if exists, err := c.store.Exists(ctx, name); err == nil && exists {
		c.logger.Debug("generated image already stored", zap.String("file", name))
		return saved, nil
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, err
	}

	_, err, _ = c.group.Do("gen:"+name, func() (interface{}, error) {
		return nil, c.store.Put(ctx, name, data, ContentTypeForExt(ext))
	})
	if err != nil {
		return nil, fmt.Errorf("save generated image: %w", err)
	}
	c.metrics.BytesWritten(len(data))

	if err := c.index.Record(ctx, hash, name); err != nil {
		c.logger.Warn("media index update failed", zap.String("file", name), zap.Error(err))
	}

	c.logger.Info("saved generated image", zap.String("file", name), zap.Int("bytes", len(data)))
	return saved, nil
}

// SanitizeFilename keeps only the base name and rejects empty or dot names
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "" || base == "." || base == ".." || base == "/" || strings.HasPrefix(base, ".") {
		return "", ErrInvalidFilename
	}
	return base, nil
}
