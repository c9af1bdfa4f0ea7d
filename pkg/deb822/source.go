package deb822

import (
	"fmt"
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

// PackageReference is one line of a source stanza's Package-List block.
type PackageReference struct {
	Name         string
	PackageType  string
	Section      string
	Priority     Priority
	Architecture []Architecture
}

// SourcePackage is one stanza of a Sources index: the source-package
// counterpart to BinaryPackage, carrying the Directory/Files digest block
// used to locate and verify the .dsc and tarballs it describes instead of
// a single downloadable archive.
type SourcePackage struct {
	Format     string
	Package    string
	Version    version.Version
	Maintainer string
	Directory  string

	Binary           []string
	Architecture     []Architecture
	Uploaders        []string
	Homepage         string
	VcsArch          string
	VcsBzr           string
	VcsCvs           string
	VcsDarcs         string
	VcsGit           string
	VcsHg            string
	VcsMtn           string
	VcsSvn           string
	VcsBrowser       string
	Testsuite        []string
	Dgit             string
	StandardsVersion string

	BuildDepends         dependency.List
	BuildDependsIndep    dependency.List
	BuildDependsArch     dependency.List
	BuildConflicts       dependency.List
	BuildConflictsIndep  dependency.List
	BuildConflictsArch   dependency.List

	PackageList []PackageReference

	Priority Priority
	Section  string

	Links map[string]*aptdistro.Link

	Issues []error
}

// ParseSources parses a Sources index and iterates every stanza that
// satisfies the fatal-field requirements.
func ParseSources(distro *aptdistro.Distro, r io.Reader) iter.Seq2[*SourcePackage, error] {
	return func(yield func(*SourcePackage, error) bool) {
		for header, err := range ParseRecords(r) {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			src, err := parseSourcePackage(distro, header)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(src, nil) {
				return
			}
		}
	}
}

func parseSourcePackage(distro *aptdistro.Distro, header rfc822.Header) (*SourcePackage, error) {
	s := &SourcePackage{Links: map[string]*aptdistro.Link{}}

	s.Format = header.Get("Format")
	if s.Format == "" {
		return nil, apterrors.New(apterrors.SourceGrammar, "source stanza is missing Format")
	}

	s.Package = header.Get("Package")
	if s.Package == "" {
		return nil, apterrors.New(apterrors.SourceGrammar, "source stanza is missing Package")
	}

	versionField := header.Get("Version")
	if versionField == "" {
		return nil, apterrors.New(apterrors.SourceGrammar, "source stanza is missing Version")
	}
	v, err := version.Parse(versionField)
	if err != nil {
		return nil, apterrors.Wrap(apterrors.SourceGrammar, "parsing Version", err)
	}
	s.Version = v

	s.Maintainer = header.Get("Maintainer")
	if s.Maintainer == "" {
		return nil, apterrors.New(apterrors.SourceGrammar, "source stanza is missing Maintainer")
	}

	s.Directory = header.Get("Directory")
	if s.Directory == "" {
		return nil, apterrors.New(apterrors.SourceGrammar, "source stanza is missing Directory")
	}

	if binary := header.Get("Binary"); binary != "" {
		s.Binary = splitTrimmedCSV(binary)
	}
	s.Section = header.Get("Section")
	s.Homepage = header.Get("Homepage")
	s.VcsArch = header.Get("Vcs-Arch")
	s.VcsBzr = header.Get("Vcs-Bzr")
	s.VcsCvs = header.Get("Vcs-Cvs")
	s.VcsDarcs = header.Get("Vcs-Darcs")
	s.VcsGit = header.Get("Vcs-Git")
	s.VcsHg = header.Get("Vcs-Hg")
	s.VcsMtn = header.Get("Vcs-Mtn")
	s.VcsSvn = header.Get("Vcs-Svn")
	s.VcsBrowser = header.Get("Vcs-Browser")
	s.Dgit = header.Get("Dgit")
	s.StandardsVersion = header.Get("Standards-Version")

	if uploaders := header.Get("Uploaders"); uploaders != "" {
		s.Uploaders = splitTrimmedCSV(uploaders)
	}
	if testsuite := header.Get("Testsuite"); testsuite != "" {
		s.Testsuite = splitTrimmedCSV(testsuite)
	}

	if archField := header.Get("Architecture"); archField != "" {
		for _, a := range strings.Fields(archField) {
			s.Architecture = append(s.Architecture, ParseArchitecture(a))
		}
	}

	if priorityField := header.Get("Priority"); priorityField != "" {
		if pr, err := ParsePriority(priorityField); err != nil {
			s.Issues = append(s.Issues, err)
		} else {
			s.Priority = pr
		}
	}

	depFields := []struct {
		field string
		dest  *dependency.List
	}{
		{"Build-Depends", &s.BuildDepends},
		{"Build-Depends-Indep", &s.BuildDependsIndep},
		{"Build-Depends-Arch", &s.BuildDependsArch},
		{"Build-Conflicts", &s.BuildConflicts},
		{"Build-Conflicts-Indep", &s.BuildConflictsIndep},
		{"Build-Conflicts-Arch", &s.BuildConflictsArch},
	}
	for _, df := range depFields {
		v := header.Get(df.field)
		if v == "" {
			continue
		}
		list, err := dependency.Parse(v)
		if err != nil {
			s.Issues = append(s.Issues, apterrors.Wrap(apterrors.SourceGrammar, "parsing "+df.field, err))
			continue
		}
		*df.dest = list
	}

	if packageList := header.Get("Package-List"); packageList != "" {
		refs, err := parsePackageList(packageList)
		if err != nil {
			s.Issues = append(s.Issues, err)
		} else {
			s.PackageList = refs
		}
	}

	if err := s.parseFileBlock(header.Get("Files"), distro, aptdistro.MD5, true); err != nil {
		return nil, err
	}
	if err := s.parseFileBlock(header.Get("Checksums-Sha256"), distro, aptdistro.SHA256, true); err != nil {
		return nil, err
	}
	if err := s.parseFileBlock(header.Get("Checksums-Sha1"), distro, aptdistro.SHA1, false); err != nil {
		return nil, err
	}
	if err := s.parseFileBlock(header.Get("Checksums-Sha512"), distro, aptdistro.SHA512, false); err != nil {
		return nil, err
	}

	return s, nil
}

// parsePackageList parses a Package-List block: each non-empty line is
// "name type section priority [arch=a,b,...]".
func parsePackageList(block string) ([]PackageReference, error) {
	var refs []PackageReference
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, apterrors.New(apterrors.SourceGrammar, fmt.Sprintf("invalid Package-List line %q", line))
		}
		priority, err := ParsePriority(fields[3])
		if err != nil {
			return nil, err
		}
		ref := PackageReference{
			Name:        fields[0],
			PackageType: fields[1],
			Section:     fields[2],
			Priority:    priority,
		}
		if len(fields) > 4 {
			for _, a := range strings.Split(fields[4], ",") {
				a = strings.TrimSpace(a)
				a = strings.TrimPrefix(a, "arch=")
				ref.Architecture = append(ref.Architecture, ParseArchitecture(a))
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseFileBlock parses a "HASH SIZE PATH" digest block, resolving path
// against s.Directory via the artifact-path builder. A malformed line is
// fatal for the whole stanza (the record would be unaddressable);
// required==false permits an absent block.
func (s *SourcePackage) parseFileBlock(block string, distro *aptdistro.Distro, kind aptdistro.HashKind, required bool) error {
	if block == "" {
		if required {
			return apterrors.New(apterrors.SourceGrammar, "source stanza is missing required digest block for "+string(kind))
		}
		return nil
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return apterrors.New(apterrors.SourceGrammar, fmt.Sprintf("malformed digest line %q", line))
		}
		hexDigest, sizeStr, path := fields[0], fields[1], fields[2]
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return apterrors.Wrap(apterrors.SourceGrammar, fmt.Sprintf("invalid size in %q", line), err)
		}

		relPath := aptdistro.JoinPath(s.Directory, path)
		url := distro.ArtifactURL(relPath)
		link, ok := s.Links[url]
		if !ok {
			link = aptdistro.NewLink(url)
			s.Links[url] = link
		}
		link.SetSize(size)
		link.SetHash(kind, hexDigest)
	}
	return nil
}

func splitTrimmedCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
