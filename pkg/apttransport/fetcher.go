package apttransport

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

// Fetcher offers a liveness probe (Head), plain-text retrieval (GetText),
// and digest-verified, decompression-aware retrieval (GetVerified) and
// download (Download) built on top of a Registry.
type Fetcher struct {
	registry *Registry
}

// NewFetcher builds a Fetcher against the package-level DefaultRegistry.
func NewFetcher() *Fetcher {
	return &Fetcher{registry: DefaultRegistry}
}

// NewFetcherWithRegistry builds a Fetcher against a caller-supplied
// Registry, e.g. one configured with a non-default cache directory.
func NewFetcherWithRegistry(r *Registry) *Fetcher {
	return &Fetcher{registry: r}
}

func parseFetchURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return &url.URL{Scheme: "file", Path: raw}
	}
	return u
}

// Head is a liveness probe used by index-link selection: it fails on a
// non-2xx response, a missing ETag header, or a header-decode error.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (string, error) {
	u := parseFetchURL(rawURL)
	etag, err := f.registry.Head(ctx, u)
	if err != nil {
		return "", apterrors.Wrap(apterrors.Transport, "head "+rawURL, err)
	}
	return etag, nil
}

// GetText fetches rawURL and decodes it as UTF-8 (lossy on invalid bytes).
// Used for release documents and key material addressed by URL.
func (f *Fetcher) GetText(ctx context.Context, rawURL string) (string, error) {
	u := parseFetchURL(rawURL)
	resp, err := f.registry.Acquire(ctx, &AcquireRequest{URI: u})
	if err != nil {
		return "", apterrors.Wrap(apterrors.Transport, "get "+rawURL, err)
	}
	if resp.Content == nil {
		return "", apterrors.New(apterrors.Transport, "no content returned for "+rawURL)
	}
	defer resp.Content.Close()

	data, err := io.ReadAll(resp.Content)
	if err != nil {
		return "", apterrors.Wrap(apterrors.Transport, "reading "+rawURL, err)
	}
	return lossyUTF8(data), nil
}

// GetVerified fetches the bytes at link.URL, verifies them against the
// strongest digest link declares, decompresses by file extension, and
// returns the UTF-8 (lossy) text.
func (f *Fetcher) GetVerified(ctx context.Context, link *aptdistro.Link) (string, error) {
	kind, digest, ok := link.StrongestHash()
	if !ok {
		return "", apterrors.New(apterrors.DigestMismatch, "no digest declared for "+link.URL)
	}

	u := parseFetchURL(link.URL)
	resp, err := f.registry.Acquire(ctx, &AcquireRequest{
		URI:            u,
		ExpectedHashes: map[string]string{string(kind): digest},
	})
	if err != nil {
		if isHashFailure(err) {
			return "", apterrors.Wrap(apterrors.DigestMismatch, "verifying "+link.URL, err)
		}
		return "", apterrors.Wrap(apterrors.Transport, "fetching "+link.URL, err)
	}
	if resp.Content == nil {
		return "", apterrors.New(apterrors.Transport, "no content returned for "+link.URL)
	}
	defer resp.Content.Close()

	raw, err := io.ReadAll(resp.Content)
	if err != nil {
		return "", apterrors.Wrap(apterrors.Transport, "reading "+link.URL, err)
	}

	text, err := decompress(link.URL, raw)
	if err != nil {
		return "", apterrors.Wrap(apterrors.Transport, "decompressing "+link.URL, err)
	}
	return text, nil
}

// Download fetches the bytes at link.URL, verifies them against the
// strongest digest link declares, and saves them directly to filename
// without attempting decompression or UTF-8 decoding — unlike GetVerified,
// this is for arbitrary binary artifacts (e.g. a .deb archive).
func (f *Fetcher) Download(ctx context.Context, link *aptdistro.Link, filename string) error {
	kind, digest, ok := link.StrongestHash()
	if !ok {
		return apterrors.New(apterrors.DigestMismatch, "no digest declared for "+link.URL)
	}

	u := parseFetchURL(link.URL)
	resp, err := f.registry.Acquire(ctx, &AcquireRequest{
		URI:            u,
		Filename:       filename,
		ExpectedHashes: map[string]string{string(kind): digest},
	})
	if err != nil {
		if isHashFailure(err) {
			return apterrors.Wrap(apterrors.DigestMismatch, "verifying "+link.URL, err)
		}
		return apterrors.Wrap(apterrors.Transport, "fetching "+link.URL, err)
	}
	if resp.Content != nil {
		defer resp.Content.Close()
	}
	return nil
}

func isHashFailure(err error) bool {
	var ae *AcquireError
	for e := err; e != nil; {
		if a, ok := e.(*AcquireError); ok {
			ae = a
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ae != nil && strings.Contains(ae.Reason, "hash verification failed")
}

// decompress selects .xz/.gz/identity decompression by the URL's file
// extension and returns the result as lossy UTF-8 text.
func decompress(url string, raw []byte) (string, error) {
	switch {
	case strings.HasSuffix(url, ".xz"):
		r, err := xz.NewReader(strings.NewReader(string(raw)))
		if err != nil {
			return "", fmt.Errorf("xz: %w", err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("xz: %w", err)
		}
		return lossyUTF8(data), nil
	case strings.HasSuffix(url, ".gz"):
		r, err := gzip.NewReader(strings.NewReader(string(raw)))
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		return lossyUTF8(data), nil
	default:
		return lossyUTF8(raw), nil
	}
}

func lossyUTF8(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}
