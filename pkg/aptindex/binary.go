// Package aptindex builds the binary and source package indices: given a
// Release, a component, and (for binary indices) an architecture, it
// selects the declared index Link, fetches and digest-verifies its text,
// splits it into stanzas, and accumulates every parseable record into a
// name -> version-list map for lookup.
package aptindex

import (
	"context"
	"sort"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
	"github.com/nicwaller/apt-look/pkg/deb822"
	"github.com/nicwaller/apt-look/pkg/dependency"
	"github.com/nicwaller/apt-look/pkg/version"
)

// verifier is the slice of apttransport.Fetcher an index build needs: probe
// a candidate suffix (via the Release's own SelectIndexLink) and fetch its
// digest-verified text. Kept as a local interface, like deb822.headProber,
// so this package does not depend on apttransport.
type verifier interface {
	Head(ctx context.Context, url string) (string, error)
	GetVerified(ctx context.Context, link *aptdistro.Link) (string, error)
}

// BinaryIndex is the name -> version-list store built from a single
// component+architecture Packages file.
type BinaryIndex struct {
	Component    string
	Architecture string

	byName map[string][]*deb822.BinaryPackage
	Issues []error
}

// BuildBinaryIndex selects, fetches, and parses the Packages index for
// component+architecture. Requesting architecture "source" is a caller
// error (use BuildSourceIndex instead).
func BuildBinaryIndex(ctx context.Context, release *deb822.Release, fetcher verifier, component, architecture string) (*BinaryIndex, error) {
	if architecture == "source" {
		return nil, apterrors.New(apterrors.ArchitectureNotSupported, "binary index cannot be built for architecture \"source\"")
	}

	link, err := release.SelectIndexLink(ctx, fetcher, component, architecture)
	if err != nil {
		return nil, err
	}

	text, err := fetcher.GetVerified(ctx, link)
	if err != nil {
		return nil, err
	}

	idx := &BinaryIndex{
		Component:    component,
		Architecture: architecture,
		byName:       map[string][]*deb822.BinaryPackage{},
	}
	for pkg, err := range deb822.ParsePackages(release.Distro, strings.NewReader(text)) {
		if err != nil {
			idx.Issues = append(idx.Issues, err)
			continue
		}
		idx.byName[pkg.Package] = append(idx.byName[pkg.Package], pkg)
	}
	return idx, nil
}

// Get returns the highest-version record matching relation against want
// (or the overall highest version when hasVersion is false). An absent name, or a name with no record satisfying the
// relation, returns (nil, false).
func (idx *BinaryIndex) Get(name string, relation dependency.Relation, want version.Version, hasVersion bool) (*deb822.BinaryPackage, bool) {
	candidates := idx.byName[name]
	var best *deb822.BinaryPackage
	for _, c := range candidates {
		if hasVersion && !relation.Matches(c.Version, want) {
			continue
		}
		if best == nil || version.Less(best.Version, c.Version) {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// GetAll returns every record for name, in no particular order.
func (idx *BinaryIndex) GetAll(name string) []*deb822.BinaryPackage {
	return idx.byName[name]
}

// PackageCount returns the number of distinct package names in the index.
func (idx *BinaryIndex) PackageCount() int {
	return len(idx.byName)
}

// Names returns every distinct package name in the index, sorted.
func (idx *BinaryIndex) Names() []string {
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
