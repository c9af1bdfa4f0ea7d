package apttransport

import (
	"compress/gzip"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// CacheStats tracks hit/miss counts for a CacheTransport.
type CacheStats struct {
	mu     sync.Mutex
	hits   int64
	misses int64
}

func (s *CacheStats) Hit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *CacheStats) Miss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
}

func (s *CacheStats) GetStats() (hits, misses int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func (s *CacheStats) GetHitRatio() float64 {
	hits, misses := s.GetStats()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// CacheConfig configures a CacheTransport.
type CacheConfig struct {
	Disabled bool
	CacheDir string
}

// CacheTransport wraps another Transport, caching Packages/Sources index
// bodies on local disk (gzip-compressed) while always fetching Release
// documents live — release metadata is small and must reflect the current
// state of the repository, but package indices are large and rarely
// change within a session.
type CacheTransport struct {
	wrapped  Transport
	cacheDir string
	disabled bool
	stats    *CacheStats
}

func NewCacheTransport(wrapped Transport, config CacheConfig) (*CacheTransport, error) {
	ct := &CacheTransport{wrapped: wrapped, disabled: config.Disabled, stats: &CacheStats{}}
	if ct.disabled {
		return ct, nil
	}

	cacheDir := config.CacheDir
	if cacheDir == "" {
		cacheDir = getDefaultCacheDir()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", cacheDir, err)
	}
	ct.cacheDir = cacheDir
	log.Debug().Str("cache_dir", cacheDir).Msg("apttransport: cache directory ready")
	return ct, nil
}

func (c *CacheTransport) Schemes() []string {
	return c.wrapped.Schemes()
}

func (c *CacheTransport) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	uri := req.URI.String()

	if c.disabled || isReleaseFile(uri) {
		return c.wrapped.Acquire(ctx, req)
	}

	cachePath := filepath.Join(c.cacheDir, getCacheKey(uri)+".gz")
	if resp, err := c.loadFromCache(cachePath, req); err == nil {
		c.stats.Hit()
		return resp, nil
	}
	c.stats.Miss()

	resp, err := c.wrapped.Acquire(ctx, req)
	if err != nil {
		return nil, err
	}

	if isPackagesFile(uri) && resp.Content != nil {
		return c.cacheResponse(resp, cachePath, req)
	}
	return resp, nil
}

// PurgeCache removes every cached index body.
func (c *CacheTransport) PurgeCache() error {
	if c.disabled {
		return nil
	}
	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".gz") {
			if err := os.Remove(filepath.Join(c.cacheDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *CacheTransport) GetStats() *CacheStats {
	return c.stats
}

func getCacheKey(uri string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(uri)))
}

func (c *CacheTransport) loadFromCache(cachePath string, req *AcquireRequest) (*AcquireResponse, error) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}

	hashes := map[string]string{"md5": fmt.Sprintf("%x", md5.Sum(data))}
	for algo := range req.ExpectedHashes {
		if hasher := createHasher(algo); hasher != nil {
			hasher.Write(data)
			hashes[algo] = fmt.Sprintf("%x", hasher.Sum(nil))
		}
	}
	// a stale cached body that no longer matches the declared digest is
	// treated as a cache miss
	if err := verifyHashes(hashes, req.ExpectedHashes); err != nil {
		return nil, err
	}
	return &AcquireResponse{
		URI:     req.URI,
		Content: io.NopCloser(strings.NewReader(string(data))),
		Size:    int64(len(data)),
		Hashes:  hashes,
	}, nil
}

func (c *CacheTransport) cacheResponse(resp *AcquireResponse, cachePath string, req *AcquireRequest) (*AcquireResponse, error) {
	data, err := io.ReadAll(resp.Content)
	resp.Content.Close()
	if err != nil {
		return nil, err
	}

	func() {
		f, err := os.Create(cachePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cachePath).Msg("apttransport: failed to open cache file")
			return
		}
		defer f.Close()
		gz := gzip.NewWriter(f)
		defer gz.Close()
		if _, err := gz.Write(data); err != nil {
			log.Warn().Err(err).Str("path", cachePath).Msg("apttransport: failed to write cache file")
		}
	}()

	resp.Content = io.NopCloser(strings.NewReader(string(data)))
	resp.Size = int64(len(data))
	if resp.Hashes == nil {
		resp.Hashes = map[string]string{}
	}
	resp.Hashes["md5"] = fmt.Sprintf("%x", md5.Sum(data))
	return resp, nil
}

func getDefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "apt-look")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "apt-look")
	}
	return filepath.Join(".", ".cache", "apt-look")
}

func isReleaseFile(uri string) bool {
	lower := strings.ToLower(uri)
	for _, suffix := range []string{"/release", "/release.gpg", "/inrelease"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isPackagesFile(uri string) bool {
	lower := strings.ToLower(uri)
	if strings.Contains(lower, "/packages") || strings.Contains(lower, "/sources") {
		return true
	}
	for _, suffix := range []string{".gz", ".bz2", ".xz"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
