package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"go.uber.org/zap"
)

// FSStore keeps cache files in one flat directory
type FSStore struct {
	dir    string
	logger *logger.Logger
}

// NewFSStore creates dir if needed. A failure is logged and the store keeps
// working in a degraded mode: lookups miss and writes fail.
func NewFSStore(dir string, log *logger.Logger) *FSStore {
	s := &FSStore{dir: dir, logger: log.Named("media.fs")}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("failed to create data directory", zap.String("dir", dir), zap.Error(err))
	}
	return s
}

// Dir returns the root directory
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FSStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Put writes to a temp file in the same directory and renames it into place
func (s *FSStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	target := s.path(name)
	tmp := filepath.Join(s.dir, ".tmp-"+uuid.New().String())

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) Exists(ctx context.Context, name string) (bool, error) {
	info, err := os.Stat(s.path(name))
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FSStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name()[0] == '.' {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
