package deb822

import (
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
	"github.com/nicwaller/apt-look/pkg/dependency"
	"github.com/nicwaller/apt-look/pkg/rfc822"
	"github.com/nicwaller/apt-look/pkg/version"
)

// BinaryPackage is one stanza of a Packages index. Fatal fields (Package,
// Version, Size, Filename, Maintainer, Description) abort parsing of the
// stanza entirely; every other field is best-effort, with a failure
// recorded on Issues rather than aborting the stanza.
type BinaryPackage struct {
	Package     string
	Version     version.Version
	Size        int64
	Maintainer  string
	Description string

	Source             string
	Section            string
	Priority           Priority
	Architecture       Architecture
	DescriptionMd5     string
	Homepage           string
	Essential          bool
	InstalledSize      int64
	HasInstalledSize   bool

	Depends    dependency.List
	PreDepends dependency.List
	Recommends dependency.List
	Suggests   dependency.List
	Enhances   dependency.List
	Breaks     dependency.List
	Conflicts  dependency.List
	Provides   dependency.List
	Replaces   dependency.List
	BuiltUsing dependency.List

	Link *aptdistro.Link

	// Issues accumulates recoverable-field parse failures; the stanza is
	// still usable, just missing whatever field failed.
	Issues []error
}

// ParsePackages parses a Packages index and iterates every stanza that
// parses far enough to satisfy the fatal-field requirements. A whole-stanza
// parse failure on a fatal field yields that error; the caller decides
// whether to stop or keep draining the iterator.
func ParsePackages(distro *aptdistro.Distro, r io.Reader) iter.Seq2[*BinaryPackage, error] {
	return func(yield func(*BinaryPackage, error) bool) {
		for header, err := range ParseRecords(r) {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			pkg, err := parseBinaryPackage(distro, header)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(pkg, nil) {
				return
			}
		}
	}
}

func parseBinaryPackage(distro *aptdistro.Distro, header rfc822.Header) (*BinaryPackage, error) {
	p := &BinaryPackage{}

	p.Package = header.Get("Package")
	if p.Package == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Package")
	}

	versionField := header.Get("Version")
	if versionField == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Version")
	}
	v, err := version.Parse(versionField)
	if err != nil {
		return nil, apterrors.Wrap(apterrors.PackageGrammar, "parsing Version", err)
	}
	p.Version = v

	sizeField := header.Get("Size")
	if sizeField == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Size")
	}
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return nil, apterrors.Wrap(apterrors.PackageGrammar, "parsing Size", err)
	}
	p.Size = size

	filename := header.Get("Filename")
	if filename == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Filename")
	}

	p.Maintainer = header.Get("Maintainer")
	if p.Maintainer == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Maintainer")
	}

	p.Description = header.Get("Description")
	if p.Description == "" {
		return nil, apterrors.New(apterrors.PackageGrammar, "package stanza is missing Description")
	}

	p.Source = header.Get("Source")
	p.Section = header.Get("Section")
	p.Homepage = header.Get("Homepage")
	p.DescriptionMd5 = header.Get("Description-md5")
	p.Essential = header.Get("Essential") == "true"

	if priorityField := header.Get("Priority"); priorityField != "" {
		if pr, err := ParsePriority(priorityField); err != nil {
			p.Issues = append(p.Issues, err)
		} else {
			p.Priority = pr
		}
	}

	if archField := header.Get("Architecture"); archField != "" {
		p.Architecture = ParseArchitecture(archField)
	}

	if installedSizeField := header.Get("Installed-Size"); installedSizeField != "" {
		if n, err := strconv.ParseInt(installedSizeField, 10, 64); err != nil {
			p.Issues = append(p.Issues, apterrors.Wrap(apterrors.PackageGrammar, "parsing Installed-Size", err))
		} else {
			p.InstalledSize = n
			p.HasInstalledSize = true
		}
	}

	hashes := map[aptdistro.HashKind]string{}
	for field, kind := range map[string]aptdistro.HashKind{
		"MD5sum": aptdistro.MD5, "SHA1": aptdistro.SHA1, "SHA256": aptdistro.SHA256, "SHA512": aptdistro.SHA512,
	} {
		if v := header.Get(field); v != "" {
			hashes[kind] = strings.ToLower(strings.TrimSpace(v))
		}
	}

	link := aptdistro.NewLink(distro.ArtifactURL(filename))
	link.SetSize(p.Size)
	for kind, digest := range hashes {
		link.SetHash(kind, digest)
	}
	p.Link = link

	depFields := []struct {
		field string
		dest  *dependency.List
	}{
		{"Depends", &p.Depends},
		{"Pre-Depends", &p.PreDepends},
		{"Recommends", &p.Recommends},
		{"Suggests", &p.Suggests},
		{"Enhances", &p.Enhances},
		{"Breaks", &p.Breaks},
		{"Conflicts", &p.Conflicts},
		{"Provides", &p.Provides},
		{"Replaces", &p.Replaces},
		{"Built-Using", &p.BuiltUsing},
	}
	for _, df := range depFields {
		v := header.Get(df.field)
		if v == "" {
			continue
		}
		list, err := dependency.Parse(v)
		if err != nil {
			p.Issues = append(p.Issues, apterrors.Wrap(apterrors.PackageGrammar, "parsing "+df.field, err))
			continue
		}
		*df.dest = list
	}

	return p, nil
}
