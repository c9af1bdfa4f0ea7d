package deb822

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

const sampleSourceStanza = `Package: constantly
Format: 3.0 (quilt)
Binary: python3-constantly
Architecture: all
Version: 15.1.0-2
Priority: optional
Section: misc
Maintainer: Debian Python Modules Team <python-modules-team@lists.alioth.debian.org>
Uploaders: Free Ekanayaka <freee@debian.org>
Standards-Version: 3.9.8
Build-Depends: debhelper-compat (= 9), dh-python, python3-all, python3-setuptools (>= 0.6b3)
Homepage: https://github.com/twisted/constantly
Vcs-Browser: https://salsa.debian.org/python-team/modules/constantly
Vcs-Git: https://salsa.debian.org/python-team/modules/constantly.git
Directory: pool/main/c/constantly
Package-List:
 python3-constantly deb python optional arch=all
Files:
 807a24c0019e9b1c8e3b6a0654a3b040 2032 constantly_15.1.0-2.dsc
 f0762f083d83039758e53f8cf0086eef 21465 constantly_15.1.0.orig.tar.gz
 4c52076736ca1c069f436be9308b42aa 2612 constantly_15.1.0-2.debian.tar.xz
Checksums-Sha1:
 30834594e62c0cbd8a8fa05168b877f77164f9e3 2032 constantly_15.1.0-2.dsc
 02e60c17889d029e48a52a74259462e087a3dcdd 21465 constantly_15.1.0.orig.tar.gz
 b905b08c9be3c6e1a308c0b62e1a56305fc291f8 2612 constantly_15.1.0-2.debian.tar.xz
Checksums-Sha256:
 af28fa59bb101ff6469a7d3e709e75658163e523df52a4f00b596ed2cfa5c45 2032 constantly_15.1.0-2.dsc
 586372eb92059873e29eba4f9dec8381541b4d3834660707faf8ba59146dfc3 21465 constantly_15.1.0.orig.tar.gz
 40e5a20cd6a157de997b71cc1a95393cacd23d9a6ff9bc2bd021cb983f78583 2612 constantly_15.1.0-2.debian.tar.xz
Checksums-Sha512:
 043542750e6d37dd994c468775dc442581d6c7dec42446ed4ef46a75e1e2ad3b4ee7ea48bc3a5dff67576d382d76d12e95289025db952de52c95da232c7fcbf7 2032 constantly_15.1.0-2.dsc
 ccc6f41b0bd552d2bb5346cc9d64cd7b91a59dd30e0cf66b01e82f7e0e079c01c34bc6c66b69c5fee9d2eed35ae5455258d309e66278d708d5f576ddf2e00ac3 21465 constantly_15.1.0.orig.tar.gz
 4795112fc25d74214a89df6ecdb935fd107f3b8cce79c49cd0c1b57354f914e10b90857eec3c78dd10c8234ff69d4825c8ab7c06cf317a6d11a8f40a98e62aeb 2612 constantly_15.1.0-2.debian.tar.xz
`

func parseOneSourcePackage(t *testing.T, stanza string) *SourcePackage {
	t.Helper()
	distro := mustTestDistro(t)
	var pkgs []*SourcePackage
	for pkg, err := range ParseSources(distro, strings.NewReader(stanza)) {
		require.NoError(t, err)
		pkgs = append(pkgs, pkg)
	}
	require.Len(t, pkgs, 1)
	return pkgs[0]
}

func TestParseSourcePackage(t *testing.T) {
	src := parseOneSourcePackage(t, sampleSourceStanza)

	assert.Equal(t, "constantly", src.Package)
	assert.Equal(t, "3.0 (quilt)", src.Format)
	assert.Equal(t, []string{"python3-constantly"}, src.Binary)
	require.Len(t, src.Architecture, 1)
	assert.Equal(t, "all", src.Architecture[0].String())
	assert.Equal(t, "15.1.0-2", src.Version.Upstream+"-"+src.Version.Revision)
	assert.Equal(t, PriorityOptional, src.Priority)
	assert.Equal(t, "misc", src.Section)
	assert.Equal(t, "Debian Python Modules Team <python-modules-team@lists.alioth.debian.org>", src.Maintainer)
	assert.Equal(t, []string{"Free Ekanayaka <freee@debian.org>"}, src.Uploaders)
	assert.Equal(t, "3.9.8", src.StandardsVersion)

	require.Len(t, src.BuildDepends, 4)
	assert.Equal(t, "debhelper-compat", src.BuildDepends[0][0].Name)
	assert.True(t, src.BuildDepends[0][0].HasVersion)
	assert.Equal(t, "dh-python", src.BuildDepends[1][0].Name)
	assert.False(t, src.BuildDepends[1][0].HasVersion)
	assert.Equal(t, "python3-all", src.BuildDepends[2][0].Name)
	assert.Equal(t, "python3-setuptools", src.BuildDepends[3][0].Name)
	assert.True(t, src.BuildDepends[3][0].HasVersion)

	assert.Equal(t, "https://github.com/twisted/constantly", src.Homepage)
	assert.Equal(t, "https://salsa.debian.org/python-team/modules/constantly", src.VcsBrowser)
	assert.Equal(t, "https://salsa.debian.org/python-team/modules/constantly.git", src.VcsGit)
	assert.Equal(t, "pool/main/c/constantly", src.Directory)

	require.Len(t, src.PackageList, 1)
	assert.Equal(t, "python3-constantly", src.PackageList[0].Name)
	assert.Equal(t, "deb", src.PackageList[0].PackageType)
	assert.Equal(t, "python", src.PackageList[0].Section)
	assert.Equal(t, PriorityOptional, src.PackageList[0].Priority)
	require.Len(t, src.PackageList[0].Architecture, 1)
	assert.Equal(t, "all", src.PackageList[0].Architecture[0].String())

	require.Len(t, src.Links, 3)

	distro := mustTestDistro(t)
	url := distro.ArtifactURL("pool/main/c/constantly/constantly_15.1.0-2.dsc")
	link, ok := src.Links[url]
	require.True(t, ok)
	assert.Equal(t, int64(2032), link.Size)
	assert.Equal(t, "807a24c0019e9b1c8e3b6a0654a3b040", link.Hashes[aptdistro.MD5])
	assert.Equal(t, "30834594e62c0cbd8a8fa05168b877f77164f9e3", link.Hashes[aptdistro.SHA1])
	assert.NotEmpty(t, link.Hashes[aptdistro.SHA256])
	assert.NotEmpty(t, link.Hashes[aptdistro.SHA512])
	assert.Empty(t, src.Issues)
}

func TestParseSourcePackageMissingDirectoryIsFatal(t *testing.T) {
	distro := mustTestDistro(t)
	stanza := "Format: 3.0\nPackage: x\nVersion: 1.0\nMaintainer: m\nFiles:\n a 1 x\nChecksums-Sha256:\n b 1 x\n"
	for _, err := range ParseSources(distro, strings.NewReader(stanza)) {
		assert.Error(t, err)
		return
	}
	t.Fatal("expected at least one result")
}

func TestParseSourcePackageMissingChecksumsSha256IsFatal(t *testing.T) {
	distro := mustTestDistro(t)
	stanza := "Format: 3.0\nPackage: x\nVersion: 1.0\nMaintainer: m\nDirectory: pool/x\nFiles:\n a 1 x.dsc\n"
	for _, err := range ParseSources(distro, strings.NewReader(stanza)) {
		assert.Error(t, err)
		return
	}
	t.Fatal("expected at least one result")
}

func TestParseSourcePackageMissingSha1IsAccepted(t *testing.T) {
	stanza := "Format: 3.0\nPackage: x\nVersion: 1.0\nMaintainer: m\nDirectory: pool/x\nFiles:\n aaa 1 x.dsc\nChecksums-Sha256:\n bbb 1 x.dsc\n"
	src := parseOneSourcePackage(t, stanza)
	assert.Empty(t, src.Issues)
	require.Len(t, src.Links, 1)
}

func TestParsePackageListShortLineFails(t *testing.T) {
	_, err := parsePackageList("foo bar\n")
	assert.Error(t, err)
}

func TestParsePackageListArchList(t *testing.T) {
	refs, err := parsePackageList("foo deb devel optional arch=amd64,arm64\n")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Len(t, refs[0].Architecture, 2)
	assert.Equal(t, "amd64", refs[0].Architecture[0].String())
	assert.Equal(t, "arm64", refs[0].Architecture[1].String())
}
