package aptindex

import (
	"context"
	"sort"
	"strings"

	"github.com/nicwaller/apt-look/pkg/deb822"
	"github.com/nicwaller/apt-look/pkg/dependency"
	"github.com/nicwaller/apt-look/pkg/version"
)

// SourceIndex is the name -> version-list store built from a single
// component's Sources file.
type SourceIndex struct {
	Component string

	byName map[string][]*deb822.SourcePackage
	Issues []error
}

// BuildSourceIndex selects, fetches, and parses the Sources index for
// component.
func BuildSourceIndex(ctx context.Context, release *deb822.Release, fetcher verifier, component string) (*SourceIndex, error) {
	link, err := release.SelectIndexLink(ctx, fetcher, component, "source")
	if err != nil {
		return nil, err
	}

	text, err := fetcher.GetVerified(ctx, link)
	if err != nil {
		return nil, err
	}

	idx := &SourceIndex{
		Component: component,
		byName:    map[string][]*deb822.SourcePackage{},
	}
	for pkg, err := range deb822.ParseSources(release.Distro, strings.NewReader(text)) {
		if err != nil {
			idx.Issues = append(idx.Issues, err)
			continue
		}
		idx.byName[pkg.Package] = append(idx.byName[pkg.Package], pkg)
	}
	return idx, nil
}

// Get returns the highest-version record matching relation against want
// (or the overall highest version when hasVersion is false). An absent
// name, or a name with no record satisfying the relation, returns
// (nil, false).
func (idx *SourceIndex) Get(name string, relation dependency.Relation, want version.Version, hasVersion bool) (*deb822.SourcePackage, bool) {
	candidates := idx.byName[name]
	var best *deb822.SourcePackage
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
func (idx *SourceIndex) GetAll(name string) []*deb822.SourcePackage {
	return idx.byName[name]
}

// PackageCount returns the number of distinct package names in the index.
func (idx *SourceIndex) PackageCount() int {
	return len(idx.byName)
}

// Names returns every distinct package name in the index, sorted.
func (idx *SourceIndex) Names() []string {
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
