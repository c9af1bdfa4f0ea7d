package aptdistro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu", joinURL("http://archive.ubuntu.com/", "ubuntu"))
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu", joinURL("http://archive.ubuntu.com", "ubuntu"))
}

func TestFlatDistroInReleaseURL(t *testing.T) {
	d, err := NewFlat("http://archive.ubuntu.com/ubuntu", "./", NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/InRelease", d.InReleaseURL())
}

func TestFlatDistroWithPathInReleaseURL(t *testing.T) {
	d, err := NewFlat("http://archive.ubuntu.com/ubuntu", "path", ArmoredKey("http://archive.ubuntu.com/ubuntu/key.pub"))
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/path/InRelease", d.InReleaseURL())
}

func TestNamedRepo(t *testing.T) {
	d, err := NewNamed("http://archive.ubuntu.com/ubuntu", "jammy", NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu", d.BaseURL())
	assert.Equal(t, "jammy", d.Name())
	assert.Equal(t, "", d.Path())
	assert.Equal(t, KeySkipVerification, d.Key.Kind)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/dists/jammy/InRelease", d.InReleaseURL())
}

func TestNamedRepoWithKey(t *testing.T) {
	d, err := NewNamed("http://archive.ubuntu.com/ubuntu", "jammy", BinaryKey("http://archive.ubuntu.com/ubuntu/key.pub"))
	require.NoError(t, err)
	assert.Equal(t, KeyBinary, d.Key.Kind)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/key.pub", d.Key.Location)
}

func TestFlatRepo(t *testing.T) {
	d, err := NewFlat("http://archive.ubuntu.com/ubuntu", "./", NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu", d.BaseURL())
	assert.Equal(t, "./", d.Path())
	assert.Equal(t, "", d.Name())
	assert.False(t, d.IsNamed())
}

func TestIndexURLNamed(t *testing.T) {
	d, err := NewNamed("http://archive.ubuntu.com/ubuntu", "jammy", NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/dists/jammy/main/binary-amd64/Packages.xz",
		d.IndexURL("main/binary-amd64/Packages.xz"))
}

func TestArtifactURLIgnoresDistPrefix(t *testing.T) {
	d, err := NewNamed("http://archive.ubuntu.com/ubuntu", "jammy", NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "http://archive.ubuntu.com/ubuntu/pool/main/b/busybox/busybox-static_1.30.1-7ubuntu3_amd64.deb",
		d.ArtifactURL("pool/main/b/busybox/busybox-static_1.30.1-7ubuntu3_amd64.deb"))
}

func TestNewNamedRejectsEmptyName(t *testing.T) {
	_, err := NewNamed("http://example.com", "", NoSignatureCheck())
	assert.Error(t, err)
}

func TestNewFlatRejectsEmptyPath(t *testing.T) {
	_, err := NewFlat("http://example.com", "", NoSignatureCheck())
	assert.Error(t, err)
}

func TestLinkSizeFirstObservationWins(t *testing.T) {
	l := NewLink("http://example.com/Packages.xz")
	assert.False(t, l.SetSize(100))
	assert.True(t, l.SetSize(200))
	assert.EqualValues(t, 100, l.Size)
}

func TestLinkStrongestHash(t *testing.T) {
	l := NewLink("http://example.com/Packages.xz")
	l.SetHash(MD5, "AAAA")
	l.SetHash(SHA256, "BBBB")
	kind, digest, ok := l.StrongestHash()
	require.True(t, ok)
	assert.Equal(t, SHA256, kind)
	assert.Equal(t, "bbbb", digest)
}

func TestLinkStrongestHashNoneDeclared(t *testing.T) {
	l := NewLink("http://example.com/Packages.xz")
	_, _, ok := l.StrongestHash()
	assert.False(t, ok)
}
