package media

import (
	"context"
	"strings"
	"sync"

	"github.com/lk2023060901/chat-gateway/internal/pkg/redis"
)

// Index maps a cache key (hash) to the stored filename
type Index interface {
	Lookup(ctx context.Context, hash string) (filename string, ok bool, err error)
	Record(ctx context.Context, hash, filename string) error
}

// MemoryIndex is a process-local index
type MemoryIndex struct {
	mu    sync.RWMutex
	files map[string]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{files: make(map[string]string)}
}

func (m *MemoryIndex) Lookup(ctx context.Context, hash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.files[hash]
	return name, ok, nil
}

func (m *MemoryIndex) Record(ctx context.Context, hash, filename string) error {
	m.mu.Lock()
	m.files[hash] = filename
	m.mu.Unlock()
	return nil
}

// Len returns the number of indexed files
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// redisIndexKey is the hash holding hash→filename pairs
const redisIndexKey = "media:index"

// RedisIndex shares the index between gateway instances
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func (r *RedisIndex) Lookup(ctx context.Context, hash string) (string, bool, error) {
	name, err := r.client.HGet(ctx, redisIndexKey, hash)
	if redis.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (r *RedisIndex) Record(ctx context.Context, hash, filename string) error {
	_, err := r.client.HSet(ctx, redisIndexKey, hash, filename)
	return err
}

// hashOf returns the cache key part of a stored filename
func hashOf(filename string) string {
	if i := strings.IndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}
