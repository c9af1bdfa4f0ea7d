package aptdistro

import "strings"

// HashKind names a digest algorithm declared against a Link.
type HashKind string

const (
	MD5    HashKind = "md5"
	SHA1   HashKind = "sha1"
	SHA256 HashKind = "sha256"
	SHA512 HashKind = "sha512"
)

// strongestFirst is the digest-selection order used by the Fetcher: prefer
// the strongest declared hash.
var strongestFirst = []HashKind{SHA512, SHA256, SHA1, MD5}

// Link is a single declared file: its absolute URL, its declared size, and
// zero or more declared digests. Release and source-package documents each
// build a map of these, keyed by URL, as they're parsed; a Link's declared
// size is fixed at first observation, per the release parser's warn-not-
// error policy on conflicting sizes.
type Link struct {
	URL     string
	Size    int64
	hasSize bool
	Hashes  map[HashKind]string
}

// NewLink creates an empty Link for the given absolute URL.
func NewLink(url string) *Link {
	return &Link{URL: url, Hashes: map[HashKind]string{}}
}

// SetSize records a declared size. The first call wins; later calls with a
// differing size report a warning (sizeMismatch=true) but never alter the
// stored value.
func (l *Link) SetSize(size int64) (sizeMismatch bool) {
	if !l.hasSize {
		l.Size = size
		l.hasSize = true
		return false
	}
	return l.Size != size
}

// SetHash records a declared digest for kind, lower-cased for comparison.
func (l *Link) SetHash(kind HashKind, hexDigest string) {
	l.Hashes[kind] = strings.ToLower(strings.TrimSpace(hexDigest))
}

// StrongestHash returns the strongest declared digest, preferring SHA512 >
// SHA256 > SHA1 > MD5, and reports whether any digest was declared at all.
func (l *Link) StrongestHash() (kind HashKind, hexDigest string, ok bool) {
	for _, k := range strongestFirst {
		if h, present := l.Hashes[k]; present && h != "" {
			return k, h, true
		}
	}
	return "", "", false
}
