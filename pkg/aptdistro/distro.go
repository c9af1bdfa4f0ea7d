// Package aptdistro locates repository documents: it knows how to turn a
// repository base URL plus a named-suite or flat-path selector into the
// InRelease URL and into the two families of child URLs (index paths,
// relative to the distribution, and artifact paths, relative to the
// repository root) that the rest of the pipeline fetches.
package aptdistro

import (
	"strings"

	"github.com/nicwaller/apt-look/pkg/apterrors"
)

// joinURL joins base and path with exactly one '/' between them. "./" is
// treated as empty, and a leading '/' on path is stripped so callers can
// pass either relative or (accidentally) absolute-looking path segments.
func joinURL(base, path string) string {
	var url string
	if strings.HasSuffix(base, "/") {
		url = base
	} else {
		url = base + "/"
	}

	switch {
	case path == "./":
		path = ""
	case strings.HasPrefix(path, "/"):
		path = path[1:]
	}

	return url + path
}

// joinURLs joins base against a sequence of path segments left to right.
func joinURLs(base string, paths ...string) string {
	url := base
	for _, p := range paths {
		url = joinURL(url, p)
	}
	return url
}

// JoinPath applies the same join semantics as the internal URL joiner to
// two relative path segments, e.g. a source package's directory and a
// Files-block path, before handing the result to ArtifactURL.
func JoinPath(prefix, path string) string {
	return joinURL(prefix, path)
}

// KeyPolicyKind distinguishes the three ways a Distro's signing key is
// supplied to the signature verifier.
type KeyPolicyKind string

const (
	KeyArmored          KeyPolicyKind = "armored"
	KeyBinary           KeyPolicyKind = "binary"
	KeySkipVerification KeyPolicyKind = "skip_verification"
)

// KeyPolicy selects how (or whether) a repository's cleartext signature is
// verified. Location is either a URL (fetched via the Fetcher's GetText) or
// a filesystem path (read locally), and is meaningless for
// KeySkipVerification.
type KeyPolicy struct {
	Kind     KeyPolicyKind
	Location string
}

// ArmoredKey builds a KeyPolicy that verifies against an ASCII-armored
// public key at location (a URL or local path).
func ArmoredKey(location string) KeyPolicy {
	return KeyPolicy{Kind: KeyArmored, Location: location}
}

// BinaryKey builds a KeyPolicy that verifies against a raw OpenPGP public
// key at location (a URL or local path).
func BinaryKey(location string) KeyPolicy {
	return KeyPolicy{Kind: KeyBinary, Location: location}
}

// NoSignatureCheck disables signature verification entirely.
func NoSignatureCheck() KeyPolicy {
	return KeyPolicy{Kind: KeySkipVerification}
}

// Distro locates a repository: a base URL, a selector (exactly one of a
// named suite under dists/, or a flat path), and a key policy for
// verifying its InRelease document.
type Distro struct {
	baseURL string
	name    string
	path    string
	named   bool
	Key     KeyPolicy
}

// NewNamed builds a Distro for the conventional dists/<name> layout, e.g.
// base "http://archive.ubuntu.com/ubuntu" and name "jammy".
func NewNamed(baseURL, name string, key KeyPolicy) (*Distro, error) {
	if name == "" {
		return nil, apterrors.New(apterrors.CallerMisuse, "distro name must not be empty")
	}
	return &Distro{baseURL: baseURL, name: name, named: true, Key: key}, nil
}

// NewFlat builds a Distro for a flat repository rooted at an arbitrary
// subdirectory of base; use "./" for a repository rooted at base itself.
func NewFlat(baseURL, path string, key KeyPolicy) (*Distro, error) {
	if path == "" {
		return nil, apterrors.New(apterrors.CallerMisuse, "flat distro path must not be empty")
	}
	return &Distro{baseURL: baseURL, path: path, named: false, Key: key}, nil
}

// IsNamed reports whether this Distro uses the dists/<name> layout.
func (d *Distro) IsNamed() bool { return d.named }

// Name returns the suite name for a named Distro, or "" for a flat one.
func (d *Distro) Name() string { return d.name }

// Path returns the flat repository path for a flat Distro, or "" for a
// named one.
func (d *Distro) Path() string { return d.path }

// BaseURL returns the repository's base URL, unmodified.
func (d *Distro) BaseURL() string { return d.baseURL }

// distPrefix returns the absolute URL prefix under which index documents
// (Release, InRelease, Packages, Sources) are located: dists/<name> for a
// named distro, or the flat path for a flat one.
func (d *Distro) distPrefix() string {
	if d.named {
		return joinURLs(d.baseURL, "dists", d.name)
	}
	return joinURL(d.baseURL, d.path)
}

// InReleaseURL returns the absolute URL of this Distro's InRelease
// document.
func (d *Distro) InReleaseURL() string {
	return joinURL(d.distPrefix(), "InRelease")
}

// ReleaseURL returns the absolute URL of this Distro's unsigned Release
// document (used as a fallback when InRelease is absent).
func (d *Distro) ReleaseURL() string {
	return joinURL(d.distPrefix(), "Release")
}

// IndexURL resolves a path relative to the distribution (e.g.
// "main/binary-amd64/Packages.xz") into an absolute URL.
func (d *Distro) IndexURL(relPath string) string {
	return joinURL(d.distPrefix(), relPath)
}

// ArtifactURL resolves a path relative to the repository root (e.g. a
// binary package's Filename, or a source package's Directory-prefixed
// file path) into an absolute URL.
func (d *Distro) ArtifactURL(relPath string) string {
	return joinURL(d.baseURL, relPath)
}
