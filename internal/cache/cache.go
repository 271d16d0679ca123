// Package cache provides a small cache for store lookups (agent profiles,
// assistant resolution) so repeated CLI invocations skip refetching rows
// that rarely change.
//
// The default backend is a JSON file per key, scoped by store URL. Setting
// TRUEBLUE_CACHE_REDIS to a Redis address switches to a shared Redis
// backend (see redis.go). Disable caching entirely with TRUEBLUE_NO_CACHE=1.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

// Backend reads and writes one cache key. Implementations are best-effort:
// Get reports a miss rather than an error, Put fails silently.
type Backend interface {
	Get(dst any) bool
	Put(items any)
	Clear()
}

// Open picks a backend for the key: Redis when TRUEBLUE_CACHE_REDIS is set,
// otherwise a file under dir.
func Open(dir, key, storeURL string) Backend {
	if addr := strings.TrimSpace(os.Getenv("TRUEBLUE_CACHE_REDIS")); addr != "" {
		return NewRedisStore(addr, key, storeURL, DefaultTTL)
	}
	return NewStore(dir, key, storeURL)
}

type entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Items    json.RawMessage `json:"items"`
}

// Store reads and writes a single file-backed cache key.
type Store struct {
	path string
	ttl  time.Duration
}

// NewStore creates a file Store with the default 5-minute TTL.
// dir is the cache directory (typically from DefaultDir), key the resource
// type (e.g. "profiles"), storeURL the hosted store URL.
func NewStore(dir, key, storeURL string) *Store {
	return NewStoreWithTTL(dir, key, storeURL, DefaultTTL)
}

// NewStoreWithTTL creates a file Store with a custom TTL.
func NewStoreWithTTL(dir, key, storeURL string, ttl time.Duration) *Store {
	return &Store{
		path: filepath.Join(dir, cacheFilename(key, storeURL)),
		ttl:  ttl,
	}
}

func cacheFilename(key, storeURL string) string {
	key = sanitizeKey(key)
	hash := sha1.Sum([]byte(storeURL))
	suffix := hex.EncodeToString(hash[:6])
	return fmt.Sprintf("%s_%s.json", key, suffix)
}

// Get loads cached items into dst. Returns false on miss (no file, expired, disabled).
func (s *Store) Get(dst any) bool {
	if disabled() {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Items, dst) == nil
}

// Put writes items to the cache. Silently no-ops on error or when disabled.
func (s *Store) Put(items any) {
	if disabled() {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{
		CachedAt: time.Now(),
		Items:    raw,
	})
	if err != nil {
		return
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}

	// Atomic-ish write: write temp then rename.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Clear removes this cache file.
func (s *Store) Clear() {
	_ = os.Remove(s.path)
}

// ClearAll removes all cache files from the directory.
// For safety, it only removes files matching this project's cache filename scheme.
func ClearAll(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !isCacheFilename(name) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// DefaultDir returns the platform-appropriate cache directory.
// Returns "$XDG_CACHE_HOME/trueblue-cli" or equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "trueblue-cli"), nil
}

func disabled() bool {
	return os.Getenv("TRUEBLUE_NO_CACHE") != ""
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	return key
}

func isCacheFilename(name string) bool {
	// Expected: "<key>_<12hex>.json"
	if filepath.Ext(name) != ".json" {
		return false
	}
	base := strings.TrimSuffix(name, ".json")
	parts := strings.Split(base, "_")
	if len(parts) != 2 {
		return false
	}
	if parts[0] == "" {
		return false
	}
	if len(parts[1]) != 12 || !isHex(parts[1]) {
		return false
	}
	return true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
