// Package apttransport is a small HTTP/file acquisition layer (Transport,
// Registry, caching) below a Fetcher that adds digest verification and
// compression-aware decompression on top.
package apttransport

import (
	"context"
	"io"
	"net/url"
	"time"
)

// Transport acquires resources for one or more URI schemes.
type Transport interface {
	// Schemes returns the URI schemes this transport handles (e.g. "http", "https", "file").
	Schemes() []string

	// Acquire fetches the resource named by req.
	Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error)

	// Head performs a liveness probe against uri, returning its ETag (or an
	// ETag-shaped synthetic value for non-HTTP transports).
	Head(ctx context.Context, uri *url.URL) (etag string, err error)
}

// AcquireRequest describes a single fetch.
type AcquireRequest struct {
	URI *url.URL

	// Filename saves the response directly to disk when non-empty.
	Filename string

	// LastModified enables a conditional request; a 304/unchanged-mtime
	// response is reported via AcquireResponse.Unchanged.
	LastModified *time.Time

	ExpectedSize int64

	// ExpectedHashes maps a lowercase algorithm name ("sha256", ...) to
	// the expected lowercase hex digest. Acquire verifies whichever of
	// these it can compute.
	ExpectedHashes map[string]string

	Headers map[string]string
	Timeout time.Duration

	ProgressCallback func(downloaded, total int64)
}

// AcquireResponse is the result of a successful Acquire.
type AcquireResponse struct {
	URI          *url.URL
	Filename     string
	Content      io.ReadCloser
	Size         int64
	LastModified *time.Time
	Hashes       map[string]string
	Headers      map[string]string

	// Unchanged is true when the server/filesystem reported no
	// modification since AcquireRequest.LastModified; Content is nil.
	Unchanged bool
}

// AcquireError reports a failed Acquire or Head against a specific URI.
type AcquireError struct {
	URI    *url.URL
	Reason string
	Err    error
}

func (e *AcquireError) Error() string {
	return "failed to acquire " + e.URI.String() + ": " + e.Reason
}

func (e *AcquireError) Unwrap() error { return e.Err }

// UnsupportedSchemeError reports that no registered Transport handles a
// requested URI scheme.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return "unsupported scheme: " + e.Scheme
}
