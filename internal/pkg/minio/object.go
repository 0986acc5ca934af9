package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PutObjectOptions represents options for uploading an object
type PutObjectOptions struct {
	// ContentType is the content type of the object
	ContentType string
	// CacheControl sets the cache control header
	CacheControl string
}

// ObjectInfo represents object information
type ObjectInfo struct {
	Key         string // key without the configured prefix
	Size        int64
	ETag        string
	ContentType string
}

// objectKey applies the configured prefix
func (c *Client) objectKey(name string) string {
	if c.config.Prefix == "" {
		return name
	}
	return path.Join(c.config.Prefix, name)
}

func (c *Client) trimKey(key string) string {
	if c.config.Prefix == "" {
		return key
	}
	prefix := c.config.Prefix
	if prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// PutObject uploads data under name in the configured bucket
func (c *Client) PutObject(ctx context.Context, name string, data []byte, opts PutObjectOptions) error {
	if name == "" {
		return wrap("PutObject", ErrInvalidObjectName, c.config.Bucket, name)
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	key := c.objectKey(name)
	info, err := c.client.PutObject(ctx, c.config.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return wrap("PutObject", err, c.config.Bucket, key)
	}

	c.logger.Debug("object uploaded",
		zap.String("object", key),
		zap.Int64("size", info.Size),
	)

	return nil
}

// GetObject downloads the whole object. A missing object yields an error
// matched by IsNotFound.
func (c *Client) GetObject(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, wrap("GetObject", ErrInvalidObjectName, c.config.Bucket, name)
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	key := c.objectKey(name)
	object, err := c.client.GetObject(ctx, c.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrap("GetObject", err, c.config.Bucket, key)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, wrap("GetObject", err, c.config.Bucket, key)
	}

	return data, nil
}

// StatObject returns object metadata
func (c *Client) StatObject(ctx context.Context, name string) (ObjectInfo, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer cancel()

	key := c.objectKey(name)
	info, err := c.client.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, wrap("StatObject", err, c.config.Bucket, key)
	}

	return ObjectInfo{
		Key:         name,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: info.ContentType,
	}, nil
}
