package media

import (
	"context"

	"github.com/lk2023060901/chat-gateway/internal/pkg/minio"
)

// MinIOStore keeps cache files as objects in one bucket
type MinIOStore struct {
	client *minio.Client
}

func NewMinIOStore(client *minio.Client) *MinIOStore {
	return &MinIOStore{client: client}
}

func (s *MinIOStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, name)
	if minio.IsNotFound(err) {
		return nil, ErrNotExist
	}
	return data, err
}

func (s *MinIOStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	return s.client.PutObject(ctx, name, data, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: CacheControl,
	})
}

func (s *MinIOStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, name)
	if err == nil {
		return true, nil
	}
	if minio.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *MinIOStore) List(ctx context.Context) ([]string, error) {
	var names []string
	objCh, errCh := s.client.ListObjects(ctx)
	for obj := range objCh {
		names = append(names, obj.Key)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return names, nil
}
