package media

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lk2023060901/chat-gateway/internal/pkg/logger"
	"github.com/lk2023060901/chat-gateway/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheControl is sent with every cached file; entries never change once written.
const CacheControl = "public, max-age=31536000, immutable"

// Entry is a cached file ready to be served
type Entry struct {
	Filename    string
	ContentType string
	Data        []byte
	// Hit is false when the bytes were downloaded by this call
	Hit bool
}

// Cache is a content-addressed media cache. Keys are the md5 of the source
// URL (or of a generated image's base64 payload); files are stored as
// {hash}{ext} and never rewritten.
type Cache struct {
	store     Store
	index     Index
	client    *http.Client
	logger    *logger.Logger
	metrics   *metrics.Metrics
	userAgent string
	maxBytes  int64
	probe     bool

	group singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithIndex replaces the default in-memory index
func WithIndex(idx Index) Option {
	return func(c *Cache) { c.index = idx }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithUserAgent sets the User-Agent of media downloads
func WithUserAgent(ua string) Option {
	return func(c *Cache) { c.userAgent = ua }
}

// WithMaxBytes rejects downloads larger than n bytes; 0 means unlimited
func WithMaxBytes(n int64) Option {
	return func(c *Cache) { c.maxBytes = n }
}

// WithProbe toggles probing the store for {hash}{ext} when the index has no
// entry. Disable it for remote stores whose index is complete.
func WithProbe(enabled bool) Option {
	return func(c *Cache) { c.probe = enabled }
}

// New creates a cache on top of store. client is used for downloads.
func New(store Store, client *http.Client, log *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		index:  NewMemoryIndex(),
		client: client,
		logger: log.Named("media"),
		probe:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HashKey returns the hex md5 of s
func HashKey(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Warm loads every stored filename into the index
func (c *Cache) Warm(ctx context.Context) (int, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cache files: %w", err)
	}
	for _, name := range names {
		if err := c.index.Record(ctx, hashOf(name), name); err != nil {
			return 0, fmt.Errorf("index %s: %w", name, err)
		}
	}
	c.logger.Info("media cache index warmed", zap.Int("files", len(names)))
	return len(names), nil
}

// Fetch returns the cached copy of rawURL, downloading it on a miss.
// Concurrent misses for the same URL share one download and one write.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (*Entry, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	hash := HashKey(rawURL)
	if entry, ok := c.lookup(ctx, hash); ok {
		c.metrics.CacheHit()
		return entry, nil
	}
	c.metrics.CacheMiss()

	// The download outlives a caller that goes away so the other waiters
	// and the cache still get the file.
	ch := c.group.DoChan(hash, func() (interface{}, error) {
		dctx := context.WithoutCancel(ctx)
		if entry, ok := c.lookup(dctx, hash); ok {
			return entry, nil
		}
		return c.download(dctx, rawURL, hash)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		entry := *res.Val.(*Entry)
		return &entry, nil
	}
}

// Open serves a stored file by name. The name is reduced to its base name.
func (c *Cache) Open(ctx context.Context, filename string) (*Entry, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	data, err := c.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Filename:    name,
		ContentType: ContentTypeForFile(name),
		Data:        data,
		Hit:         true,
	}, nil
}

func (c *Cache) lookup(ctx context.Context, hash string) (*Entry, bool) {
	name, ok, err := c.index.Lookup(ctx, hash)
	if err != nil {
		c.logger.Warn("media index lookup failed", zap.String("hash", hash), zap.Error(err))
	}
	if ok {
		if entry, ok := c.read(ctx, name); ok {
			return entry, true
		}
	}

	if !c.probe {
		return nil, false
	}

	for _, ext := range KnownExtensions {
		name := hash + ext
		exists, err := c.store.Exists(ctx, name)
		if err != nil || !exists {
			continue
		}
		if entry, ok := c.read(ctx, name); ok {
			if err := c.index.Record(ctx, hash, name); err != nil {
				c.logger.Warn("media index update failed", zap.String("file", name), zap.Error(err))
			}
			return entry, true
		}
	}

	return nil, false
}

func (c *Cache) read(ctx context.Context, name string) (*Entry, bool) {
	data, err := c.store.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			c.logger.Warn("failed to read cached media", zap.String("file", name), zap.Error(err))
		}
		return nil, false
	}
	return &Entry{
		Filename:    name,
		ContentType: ContentTypeForFile(name),
		Data:        data,
		Hit:         true,
	}, true
}

func (c *Cache) download(ctx context.Context, rawURL, hash string) (*Entry, error) {
	log := c.logger.WithContext(ctx)
	start := time.Now()
	log.Info("downloading media", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.Download("error")
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.Download("error")
		log.Warn("media origin returned an error", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if c.maxBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		c.metrics.Download("error")
		return nil, fmt.Errorf("read media body: %w", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		c.metrics.Download("error")
		return nil, fmt.Errorf("media exceeds %d bytes", c.maxBytes)
	}
	c.metrics.Download("ok")

	ext := ResolveExt(resp.Header.Get("Content-Type"), rawURL, data)
	entry := &Entry{
		Filename:    hash + ext,
		ContentType: ContentTypeForExt(ext),
		Data:        data,
	}

	c.persist(ctx, entry)

	log.Info("saved media",
		zap.String("file", entry.Filename),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)

	return entry, nil
}

// persist writes the entry and indexes it. Failures only cost a future hit.
func (c *Cache) persist(ctx context.Context, entry *Entry) {
	if err := c.store.Put(ctx, entry.Filename, entry.Data, entry.ContentType); err != nil {
		c.logger.Error("failed to persist media", zap.String("file", entry.Filename), zap.Error(err))
		return
	}
	c.metrics.BytesWritten(len(entry.Data))

	if err := c.index.Record(ctx, hashOf(entry.Filename), entry.Filename); err != nil {
		c.logger.Warn("media index update failed", zap.String("file", entry.Filename), zap.Error(err))
	}
}
