package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/cache"
)

// CachedModel wraps a Model and caches Generate calls, so repeated summary
// requests over identical content skip the provider entirely.
type CachedModel struct {
	Model    Model
	Cache    *cache.LRUCache
	FilePath string
}

// NewCachedModel creates a caching wrapper. When filePath is non-empty the
// cache is persisted across restarts.
func NewCachedModel(m Model, size int, ttl time.Duration, filePath string) *CachedModel {
	c := &CachedModel{
		Model:    m,
		Cache:    cache.NewLRUCache(size, ttl),
		FilePath: filePath,
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedModel) Name() string { return c.Model.Name() }

func (c *CachedModel) load() {
	f, err := os.Open(c.FilePath)
	if err != nil {
		return // ignore errors (file not found, etc)
	}
	defer f.Close()

	var dump map[string]cache.Entry
	if err := json.NewDecoder(f).Decode(&dump); err == nil {
		c.Cache.Restore(dump)
	}
}

func (c *CachedModel) save() {
	if c.FilePath == "" {
		return
	}
	dump := c.Cache.Dump()

	// Atomic write: write to temp, then rename
	tmp := c.FilePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return
	}

	if err := json.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}
	f.Close()
	os.Rename(tmp, c.FilePath)
}

// Generate checks the cache before calling the underlying model.
func (c *CachedModel) Generate(ctx context.Context, system, user string) (string, error) {
	h := sha256.New()
	h.Write([]byte(c.Model.Name()))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(user))
	key := hex.EncodeToString(h.Sum(nil))

	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Model.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	c.save()
	return res, nil
}

var _ Model = (*CachedModel)(nil)
