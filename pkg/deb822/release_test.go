package deb822

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

func mustNamedDistro(t *testing.T) *aptdistro.Distro {
	t.Helper()
	d, err := aptdistro.NewNamed("http://example.com/ubuntu", "jammy", aptdistro.NoSignatureCheck())
	require.NoError(t, err)
	return d
}

const sampleRelease = `Origin: Spotify LTD
Label: Spotify Public Repository
Suite: stable
Codename: stable
Version: 0.4
Date: Mon, 19 May 2025 10:00:02 UTC
Architectures: amd64 i386
Components: non-free
Description: Spotify's Debian repository
SHA256:
 c802b81dd9a61e383e63123d10be1fd4bfeb468f686102bec729cc38b0b0f75 4188 non-free/binary-amd64/Packages
 c802b81dd9a61e383e63123d10be1fd4bfeb468f686102bec729cc38b0b0f76 3999 non-free/binary-i386/Packages
MD5Sum:
 5f4dcc3b5aa765d61d8327deb882cf99 4188 non-free/binary-amd64/Packages
 5f4dcc3b5aa765d61d8327deb882cf9a 3999 non-free/binary-i386/Packages
`

func TestParseReleaseBasic(t *testing.T) {
	distro := mustNamedDistro(t)
	release, err := ParseRelease(distro, sampleRelease)
	require.NoError(t, err)
	require.NotNil(t, release)

	assert.Equal(t, "stable", release.Suite)
	assert.Equal(t, "stable", release.Codename)
	assert.Equal(t, []string{"amd64", "i386"}, release.Architectures)
	assert.Equal(t, []string{"non-free"}, release.Components)

	expectedDate, err := time.Parse(time.RFC1123Z, "Mon, 19 May 2025 10:00:02 +0000")
	require.NoError(t, err)
	assert.True(t, release.HasDate)
	assert.True(t, expectedDate.Equal(release.Date))

	assert.Equal(t, "Spotify LTD", release.Origin)
	assert.Equal(t, "Spotify Public Repository", release.Label)
	assert.Equal(t, "0.4", release.Version)

	require.Len(t, release.Links, 2)
	url := distro.IndexURL("non-free/binary-amd64/Packages")
	link, ok := release.Links[url]
	require.True(t, ok, "expected link for non-free/binary-amd64/Packages")
	assert.Equal(t, int64(4188), link.Size)
	assert.Equal(t, "c802b81dd9a61e383e63123d10be1fd4bfeb468f686102bec729cc38b0b0f75", link.Hashes[aptdistro.SHA256])
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", link.Hashes[aptdistro.MD5])
}

func TestParseReleaseMissingArchitecturesFails(t *testing.T) {
	distro := mustNamedDistro(t)
	_, err := ParseRelease(distro, "Suite: stable\nCodename: stable\nDate: Mon, 19 May 2025 10:00:02 UTC\n")
	assert.Error(t, err)
}

func TestParseReleaseMissingSuiteAndCodenameFails(t *testing.T) {
	distro := mustNamedDistro(t)
	_, err := ParseRelease(distro, "Architectures: amd64\nDate: Mon, 19 May 2025 10:00:02 UTC\n")
	assert.Error(t, err)
}

func TestParseReleaseMissingDateFails(t *testing.T) {
	distro := mustNamedDistro(t)
	_, err := ParseRelease(distro, "Suite: stable\nCodename: stable\nArchitectures: amd64\n")
	assert.Error(t, err)
}

func TestParseReleaseUnparseableDateIsNonFatal(t *testing.T) {
	distro := mustNamedDistro(t)
	release, err := ParseRelease(distro, "Suite: stable\nCodename: stable\nArchitectures: amd64\nDate: not a date\n")
	require.NoError(t, err)
	assert.False(t, release.HasDate)
}

func TestParseReleaseStripsClearsignFraming(t *testing.T) {
	distro := mustNamedDistro(t)
	signed := "-----BEGIN PGP SIGNED MESSAGE-----\n" +
		"Hash: SHA256\n\n" +
		sampleRelease +
		"-----BEGIN PGP SIGNATURE-----\n\nbogus\n-----END PGP SIGNATURE-----\n"

	release, err := ParseRelease(distro, signed)
	require.NoError(t, err)
	assert.Equal(t, "stable", release.Suite)
}

func TestCheckComplianceRejectsMissingSHA256(t *testing.T) {
	distro := mustNamedDistro(t)
	release, err := ParseRelease(distro, "Suite: stable\nCodename: stable\nArchitectures: amd64\nComponents: main\nDate: Mon, 19 May 2025 10:00:02 UTC\nMD5Sum:\n 5f4dcc3b5aa765d61d8327deb882cf99 10 main/binary-amd64/Packages\n")
	require.NoError(t, err)
	assert.Error(t, release.CheckCompliance())
}

func TestCheckComplianceAcceptsWellFormedRelease(t *testing.T) {
	distro := mustNamedDistro(t)
	release, err := ParseRelease(distro, sampleRelease)
	require.NoError(t, err)
	assert.NoError(t, release.CheckCompliance())
}

type stubProber struct {
	ok map[string]bool
}

func (s stubProber) Head(ctx context.Context, url string) (string, error) {
	if s.ok[url] {
		return "etag", nil
	}
	return "", assert.AnError
}

func TestSelectIndexLinkPrefersXzThenGzThenIdentity(t *testing.T) {
	distro := mustNamedDistro(t)
	gzURL := distro.IndexURL("main/binary-amd64/Packages.gz")
	plainURL := distro.IndexURL("main/binary-amd64/Packages")

	release := &Release{
		Distro: distro,
		Links: map[string]*aptdistro.Link{
			gzURL:    aptdistro.NewLink(gzURL),
			plainURL: aptdistro.NewLink(plainURL),
		},
	}

	prober := stubProber{ok: map[string]bool{gzURL: true, plainURL: true}}
	link, err := release.SelectIndexLink(context.Background(), prober, "main", "amd64")
	require.NoError(t, err)
	assert.Equal(t, gzURL, link.URL)
}

func TestSelectIndexLinkFallsBackWhenProbeFails(t *testing.T) {
	distro := mustNamedDistro(t)
	gzURL := distro.IndexURL("main/binary-amd64/Packages.gz")
	plainURL := distro.IndexURL("main/binary-amd64/Packages")

	release := &Release{
		Distro: distro,
		Links: map[string]*aptdistro.Link{
			gzURL:    aptdistro.NewLink(gzURL),
			plainURL: aptdistro.NewLink(plainURL),
		},
	}

	prober := stubProber{ok: map[string]bool{plainURL: true}}
	link, err := release.SelectIndexLink(context.Background(), prober, "main", "amd64")
	require.NoError(t, err)
	assert.Equal(t, plainURL, link.URL)
}

func TestSelectIndexLinkSourceUsesSourcesPath(t *testing.T) {
	distro := mustNamedDistro(t)
	url := distro.IndexURL("main/source/Sources")
	release := &Release{
		Distro: distro,
		Links:  map[string]*aptdistro.Link{url: aptdistro.NewLink(url)},
	}
	prober := stubProber{ok: map[string]bool{url: true}}
	link, err := release.SelectIndexLink(context.Background(), prober, "main", "source")
	require.NoError(t, err)
	assert.Equal(t, url, link.URL)
}

func TestSelectIndexLinkNoCandidateFails(t *testing.T) {
	distro := mustNamedDistro(t)
	release := &Release{Distro: distro, Links: map[string]*aptdistro.Link{}}
	prober := stubProber{}
	_, err := release.SelectIndexLink(context.Background(), prober, "main", "amd64")
	assert.Error(t, err)
}

func TestParseRFC1123Variants(t *testing.T) {
	cases := []string{
		"Mon, 19 May 2025 10:00:02 UTC",
		"Mon, 19 May 2025 10:00:02 +0000",
		"19 May 2025 10:00:02 UTC",
	}
	for _, c := range cases {
		_, err := parseRFC1123(c)
		assert.NoError(t, err, c)
	}
}

func TestParseBoolField(t *testing.T) {
	assert.True(t, parseBoolField("yes"))
	assert.True(t, parseBoolField("true"))
	assert.False(t, parseBoolField("no"))
	assert.False(t, parseBoolField(""))
}
