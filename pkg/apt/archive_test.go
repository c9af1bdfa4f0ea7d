package apt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/apt-look/pkg/apt/sources"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

const testInRelease = `Suite: stable
Codename: stable
Architectures: amd64
Components: main
Date: Mon, 01 Jan 2024 00:00:00 UTC
SHA256:
 b8591a8ee5ca89fe322f4659903c4cd5ef9dc744e195021f0df100bb19335904 209 main/binary-amd64/Packages
 85b4943ccf09e56c1bd620f076c2107008f460ce66ae92d43942e4f11af54585 290 main/source/Sources
`

const testPackages = `Package: hello
Version: 2.10-1
Maintainer: Test <test@example.com>
Description: friendly greeting program
Size: 1234
Filename: pool/main/h/hello/hello_2.10-1_amd64.deb
MD5sum: d41d8cd98f00b204e9800998ecf8427e
`

const testSources = `Package: hello
Format: 3.0 (native)
Version: 2.10-1
Maintainer: Test <test@example.com>
Directory: pool/main/h/hello
Files:
 d41d8cd98f00b204e9800998ecf8427e 100 hello_2.10-1.tar.gz
Checksums-Sha256:
 e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 100 hello_2.10-1.tar.gz
`

// newTestArchiveServer serves a minimal repository: one component, one
// architecture, one binary and one source package, with real ETag headers
// so the index-link selector's HEAD probe succeeds.
func newTestArchiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	routes := map[string]string{
		"/dists/stable/InRelease":               testInRelease,
		"/dists/stable/main/binary-amd64/Packages": testPackages,
		"/dists/stable/main/source/Sources":        testSources,
	}
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", `"fixed"`)
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write([]byte(body))
		})
	}
	return httptest.NewServer(mux)
}

func TestMountFetchesAndVerifiesRelease(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	distro, err := aptdistro.NewNamed(srv.URL, "stable", aptdistro.NoSignatureCheck())
	require.NoError(t, err)

	archive, err := Mount(context.Background(), distro)
	require.NoError(t, err)
	assert.Equal(t, "stable", archive.Release.Suite)
	assert.Contains(t, archive.Release.Components, "main")
	assert.Contains(t, archive.Release.Architectures, "amd64")
}

func TestArchiveBinaryIndex(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	distro, err := aptdistro.NewNamed(srv.URL, "stable", aptdistro.NoSignatureCheck())
	require.NoError(t, err)

	archive, err := Mount(context.Background(), distro, WithArchitectures("amd64"), WithComponents("main"))
	require.NoError(t, err)

	idx, err := archive.BinaryIndex(context.Background(), "main", "amd64")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.PackageCount())
	all := idx.GetAll("hello")
	require.Len(t, all, 1)
	assert.Equal(t, "2.10-1", all[0].Version.Upstream+"-"+all[0].Version.Revision)
}

func TestArchiveBinaryIndexRejectsSourceArchitecture(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	distro, err := aptdistro.NewNamed(srv.URL, "stable", aptdistro.NoSignatureCheck())
	require.NoError(t, err)

	archive, err := Mount(context.Background(), distro)
	require.NoError(t, err)

	_, err = archive.BinaryIndex(context.Background(), "main", "source")
	assert.Error(t, err)
}

func TestArchiveSourceIndex(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	distro, err := aptdistro.NewNamed(srv.URL, "stable", aptdistro.NoSignatureCheck())
	require.NoError(t, err)

	archive, err := Mount(context.Background(), distro, WithComponents("main"))
	require.NoError(t, err)

	idx, err := archive.SourceIndex(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.PackageCount())
}

func TestArchiveBinaryIndexesIteratesAllComponentsAndArchitectures(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	distro, err := aptdistro.NewNamed(srv.URL, "stable", aptdistro.NoSignatureCheck())
	require.NoError(t, err)

	archive, err := Mount(context.Background(), distro, WithArchitectures("amd64"), WithComponents("main"))
	require.NoError(t, err)

	var count int
	for idx, err := range archive.BinaryIndexes(context.Background()) {
		require.NoError(t, err)
		count++
		assert.Equal(t, "main", idx.Component)
		assert.Equal(t, "amd64", idx.Architecture)
	}
	assert.Equal(t, 1, count)
}

func TestMountEntryBuildsDistroFromSourceLine(t *testing.T) {
	srv := newTestArchiveServer(t)
	defer srv.Close()

	entry, err := sources.ParseSourceLine("deb "+srv.URL+" stable main", 1)
	require.NoError(t, err)

	archive, err := MountEntry(context.Background(), *entry, aptdistro.NoSignatureCheck())
	require.NoError(t, err)
	assert.Equal(t, "stable", archive.Release.Suite)
}
