package minio

import (
	"context"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// EnsureBucket creates the configured bucket if it does not exist yet
func (c *Client) EnsureBucket(ctx context.Context) error {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	bucket := c.config.Bucket
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return wrap("BucketExists", err, bucket, "")
	}
	if exists {
		return nil
	}

	err = c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region})
	if err != nil && !isBucketOwned(err) {
		return wrap("MakeBucket", err, bucket, "")
	}

	c.logger.Info("bucket created", zap.String("bucket", bucket))

	return nil
}

// ListObjects lists every object under the configured prefix
func (c *Client) ListObjects(ctx context.Context) (<-chan ObjectInfo, <-chan error) {
	objCh := make(chan ObjectInfo)
	errCh := make(chan error, 1)

	go func() {
		defer close(objCh)
		defer close(errCh)

		if c.closed.Load() {
			errCh <- ErrClientClosed
			return
		}

		opts := minio.ListObjectsOptions{Recursive: true}
		if c.config.Prefix != "" {
			opts.Prefix = c.objectKey("") + "/"
		}

		for object := range c.client.ListObjects(ctx, c.config.Bucket, opts) {
			if object.Err != nil {
				errCh <- wrap("ListObjects", object.Err, c.config.Bucket, "")
				return
			}

			objInfo := ObjectInfo{
				Key:         c.trimKey(object.Key),
				Size:        object.Size,
				ETag:        object.ETag,
				ContentType: object.ContentType,
			}

			select {
			case objCh <- objInfo:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return objCh, errCh
}
