package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pdf-layout-translator/internal/types"
)

const cacheVersion = "1.0"

// CacheEntry 缓存条目
type CacheEntry struct {
	Hash        string    `json:"hash"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheFile 缓存文件格式
type CacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// Cache stores translations keyed by backend, model, language pair and text.
type Cache struct {
	path    string
	entries map[string]CacheEntry
	mu      sync.RWMutex
}

// NewCache creates a cache persisted at path. An empty path keeps it in
// memory only.
func NewCache(path string) *Cache {
	return &Cache{path: path, entries: make(map[string]CacheEntry)}
}

// Key hashes the lookup parameters.
func Key(service, model, src, tgt, text string) string {
	sum := sha256.Sum256([]byte(service + "\x00" + model + "\x00" + src + "\x00" + tgt + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Get 获取缓存的翻译
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.Translation, ok
}

// Set 设置翻译缓存
func (c *Cache) Set(key, original, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{
		Hash:        key,
		Original:    original,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
}

// Size 返回缓存条目数
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load 从文件加载缓存; a missing file leaves the cache empty.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return types.NewAppError(types.ErrInternal, "failed to read cache file", err)
	}

	var file CacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to parse cache file", err)
	}
	c.entries = make(map[string]CacheEntry, len(file.Entries))
	for _, e := range file.Entries {
		c.entries[e.Hash] = e
	}
	return nil
}

// Save 保存缓存到文件
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return nil
	}
	file := CacheFile{Version: cacheVersion, Entries: make([]CacheEntry, 0, len(c.entries))}
	for _, e := range c.entries {
		file.Entries = append(file.Entries, e)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrInternal, "failed to marshal cache", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrInternal, "failed to create cache directory", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write cache file", err)
	}
	return nil
}
