package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/apt-look/pkg/version"
)

func TestParseSingleAtomWithVersion(t *testing.T) {
	list, err := Parse("libc6 (>= 2.34)")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0], 1)
	atom := list[0][0]
	assert.Equal(t, "libc6", atom.Name)
	assert.Equal(t, Larger, atom.Relation)
	assert.True(t, atom.HasVersion)
	assert.Equal(t, version.MustParse("2.34"), atom.Version)
}

func TestParseAlternatives(t *testing.T) {
	dep, err := parseDependency("a | b (>= 1) | c")
	require.NoError(t, err)
	require.Len(t, dep, 3)
	assert.Equal(t, "a", dep[0].Name)
	assert.False(t, dep[0].HasVersion)
	assert.Equal(t, "b", dep[1].Name)
	assert.True(t, dep[1].HasVersion)
	assert.Equal(t, Larger, dep[1].Relation)
	assert.Equal(t, "c", dep[2].Name)
	assert.False(t, dep[2].HasVersion)
}

func TestParseBareName(t *testing.T) {
	list, err := Parse("linux-headers-5.15.0-1026")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0], 1)
	atom := list[0][0]
	assert.Equal(t, "linux-headers-5.15.0-1026", atom.Name)
	assert.False(t, atom.HasVersion)
	assert.Equal(t, "", atom.Architecture)
}

func TestParseArchitectureQualifier(t *testing.T) {
	list, err := Parse("libfoo:amd64")
	require.NoError(t, err)
	atom := list[0][0]
	assert.Equal(t, "libfoo", atom.Name)
	assert.Equal(t, "amd64", atom.Architecture)
}

func TestParseBracketedArchitectureList(t *testing.T) {
	list, err := Parse("libfoo [amd64 arm64]")
	require.NoError(t, err)
	require.Len(t, list[0], 2)
	assert.Equal(t, "amd64", list[0][0].Architecture)
	assert.Equal(t, "arm64", list[0][1].Architecture)
	assert.Equal(t, "libfoo", list[0][1].Name)
}

func TestParseCommaSeparatedList(t *testing.T) {
	list, err := Parse("libc6 (>= 2.34), libssl3 (>= 3.0.0~~alpha1), zlib1g (>= 1:1.2.3.3)")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "libc6", list[0][0].Name)
	assert.Equal(t, "libssl3", list[1][0].Name)
	assert.Equal(t, "3.0.0~~alpha1", list[1][0].Version.Upstream)
	assert.Equal(t, "zlib1g", list[2][0].Name)
	require.NotNil(t, list[2][0].Version.Epoch)
	assert.EqualValues(t, 1, *list[2][0].Version.Epoch)
}

func TestUnknownRelationIsError(t *testing.T) {
	_, err := Parse("foo (~~ 1.0)")
	require.Error(t, err)
}

func TestRelationMatches(t *testing.T) {
	a := version.MustParse("1.2.3-1ubuntu5")
	b := version.MustParse("1.2.3-1ubuntu6")

	assert.True(t, Exact.Matches(a, a))
	assert.False(t, Exact.Matches(a, b))

	assert.True(t, Smaller.Matches(a, a))
	assert.True(t, Smaller.Matches(a, b))
	assert.False(t, Smaller.Matches(b, a))

	assert.False(t, StrictSmaller.Matches(a, a))
	assert.True(t, StrictSmaller.Matches(a, b))

	assert.True(t, Larger.Matches(b, a))
	assert.False(t, Larger.Matches(a, b))

	assert.True(t, StrictLarger.Matches(b, a))
	assert.False(t, StrictLarger.Matches(a, a))
}
