package media

import (
	"context"
)

// Store persists cache files by name. Implementations must make a written
// file visible atomically: readers see either nothing or the whole file.
type Store interface {
	// Get returns the file contents or ErrNotExist
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Exists(ctx context.Context, name string) (bool, error)
	// List returns every stored file name
	List(ctx context.Context) ([]string, error)
}
