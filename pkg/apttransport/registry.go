package apttransport

import (
	"context"
	"net/url"
	"sync"
)

// DefaultRegistry is pre-populated with the HTTP and file transports and
// used by NewFetcher when no registry is supplied explicitly.
var DefaultRegistry = NewRegistryWithCache(CacheConfig{})

func init() {
	DefaultRegistry.Register(NewHTTPTransport())
	DefaultRegistry.Register(NewFileTransport())
}

// Registry dispatches Acquire/Head calls by URI scheme, optionally
// wrapping each scheme's transport in a CacheTransport.
type Registry struct {
	transports       map[string]Transport
	cachedTransports map[string]*CacheTransport
	cacheConfig      CacheConfig
	mu               sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		transports:       make(map[string]Transport),
		cachedTransports: make(map[string]*CacheTransport),
	}
}

func NewRegistryWithCache(config CacheConfig) *Registry {
	return &Registry{
		transports:       make(map[string]Transport),
		cachedTransports: make(map[string]*CacheTransport),
		cacheConfig:      config,
	}
}

func (r *Registry) Register(transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scheme := range transport.Schemes() {
		r.transports[scheme] = transport
	}
}

func (r *Registry) SetCacheConfig(config CacheConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheConfig = config
}

func (r *Registry) Select(scheme string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}
	return t, nil
}

// Head always bypasses the cache: it's a liveness probe, and its answer
// must reflect the live server/filesystem state.
func (r *Registry) Head(ctx context.Context, uri *url.URL) (string, error) {
	transport, err := r.Select(uri.Scheme)
	if err != nil {
		return "", err
	}
	return transport.Head(ctx, uri)
}

func (r *Registry) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	transport, err := r.Select(req.URI.Scheme)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	disabled := r.cacheConfig.Disabled
	r.mu.RUnlock()
	if disabled {
		return transport.Acquire(ctx, req)
	}

	r.mu.Lock()
	cached, ok := r.cachedTransports[req.URI.Scheme]
	if !ok {
		newCached, err := NewCacheTransport(transport, r.cacheConfig)
		if err != nil {
			r.mu.Unlock()
			return transport.Acquire(ctx, req)
		}
		r.cachedTransports[req.URI.Scheme] = newCached
		cached = newCached
	}
	r.mu.Unlock()

	return cached.Acquire(ctx, req)
}

// PurgeCache removes every cached index body across all schemes.
func (r *Registry) PurgeCache() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cached := range r.cachedTransports {
		if err := cached.PurgeCache(); err != nil {
			return err
		}
	}
	return nil
}

// GetCacheStats aggregates hit/miss counters across all cached transports.
func (r *Registry) GetCacheStats() (hits, misses int64, hitRatio float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cached := range r.cachedTransports {
		h, m := cached.GetStats().GetStats()
		hits += h
		misses += m
	}
	total := hits + misses
	if total == 0 {
		return hits, misses, 0
	}
	return hits, misses, float64(hits) / float64(total)
}
