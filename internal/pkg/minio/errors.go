package minio

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidArgument   = errors.New("minio: invalid argument")
	ErrInvalidObjectName = errors.New("minio: invalid object name")
	ErrClientClosed      = errors.New("minio: client is closed")
)

// Error carries the failed operation and the object it touched
type Error struct {
	Op     string
	Bucket string
	Object string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Object != "":
		return fmt.Sprintf("minio: %s %s/%s: %v", e.Op, e.Bucket, e.Object, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("minio: %s %s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("minio: %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error, bucket, object string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Bucket: bucket, Object: object, Err: err}
}

// IsNotFound reports a missing object or bucket
func IsNotFound(err error) bool {
	return hasCode(err, "NoSuchKey", "NoSuchBucket")
}

func isBucketOwned(err error) bool {
	return hasCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou")
}

func hasCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	for _, code := range codes {
		if resp.Code == code {
			return true
		}
	}
	return false
}
