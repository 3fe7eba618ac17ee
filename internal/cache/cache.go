// Package cache keeps transcoded sound files on disk, bounded by size and
// evicted least-recently-used first.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Index records cache entries and their last access.
type Index interface {
	CacheTouch(ctx context.Context, hash string, size int64, created bool) error
	CacheRemove(ctx context.Context, hash string) error
	CacheTotalBytes(ctx context.Context) (int64, error)
	CacheOldest(ctx context.Context) (string, error)
}

type FileCache struct {
	dir   string
	limit int64
	index Index

	mu    sync.Mutex // eviction
	keyMu sync.Mutex
	keys  map[string]*sync.Mutex
}

func NewFileCache(dir string, limit int64, index Index) *FileCache {
	return &FileCache{dir: dir, limit: limit, index: index, keys: make(map[string]*sync.Mutex)}
}

func (c *FileCache) HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) PathFor(hash string) string {
	return filepath.Join(c.dir, hash)
}

func (c *FileCache) Get(ctx context.Context, hash string) (string, bool) {
	p := c.PathFor(hash)
	if _, err := os.Stat(p); err == nil {
		_ = c.index.CacheTouch(ctx, hash, 0, false)
		return p, true
	}
	_ = c.index.CacheRemove(ctx, hash)
	return "", false
}

func (c *FileCache) createTemp(hash string) (*os.File, string, error) {
	if err := os.MkdirAll(filepath.Join(c.dir, "tmp"), 0o755); err != nil {
		return nil, "", err
	}
	tmp := filepath.Join(c.dir, "tmp", hash)
	f, err := os.Create(tmp)
	return f, tmp, err
}

func (c *FileCache) commit(ctx context.Context, tmp, hash string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		_ = os.Remove(tmp)
		return errors.New("empty cache entry")
	}
	if err := os.Rename(tmp, c.PathFor(hash)); err != nil {
		return err
	}
	if err := c.index.CacheTouch(ctx, hash, info.Size(), true); err != nil {
		return err
	}
	return c.evictIfNeeded(ctx, hash)
}

// evictIfNeeded removes the oldest entries until the cache fits its limit.
// keep is never evicted.
func (c *FileCache) evictIfNeeded(ctx context.Context, keep string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	total, err := c.index.CacheTotalBytes(ctx)
	if err != nil {
		return err
	}
	for total > c.limit {
		oldest, err := c.index.CacheOldest(ctx)
		if err != nil {
			return err
		}
		if oldest == keep {
			break
		}
		_ = os.Remove(c.PathFor(oldest))
		_ = c.index.CacheRemove(ctx, oldest)
		slog.Debug("evicted cache entry", "hash", oldest)

		total, err = c.index.CacheTotalBytes(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *FileCache) lockKey(hash string) func() {
	c.keyMu.Lock()
	m, ok := c.keys[hash]
	if !ok {
		m = &sync.Mutex{}
		c.keys[hash] = m
	}
	c.keyMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Fill returns the cached file for key, producing it with fill on a miss.
// Concurrent fills of one key run once.
func (c *FileCache) Fill(ctx context.Context, key string, fill func(w io.Writer) error) (string, error) {
	hash := c.HashKey(key)
	unlock := c.lockKey(hash)
	defer unlock()

	if p, ok := c.Get(ctx, hash); ok {
		return p, nil
	}

	f, tmp, err := c.createTemp(hash)
	if err != nil {
		return "", err
	}
	if err := fill(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("fill cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := c.commit(ctx, tmp, hash); err != nil {
		return "", err
	}
	return c.PathFor(hash), nil
}

func (c *FileCache) WriteStream(ctx context.Context, key string, src io.Reader) (string, error) {
	return c.Fill(ctx, key, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}
