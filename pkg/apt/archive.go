// Package apt is the top-level façade: Distro -> Release -> BinaryIndex /
// SourceIndex. It owns nothing the lower packages don't already own —
// Archive just remembers which Distro and Fetcher it was mounted with and
// which components/architectures a caller wants indexed.
package apt

// https://www.debian.org/doc/manuals/debian-reference/ch02.en.html#_debian_archive_basics
import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
	"github.com/nicwaller/apt-look/pkg/aptindex"
	"github.com/nicwaller/apt-look/pkg/apt/sources"
	"github.com/nicwaller/apt-look/pkg/aptsig"
	"github.com/nicwaller/apt-look/pkg/apttransport"
	"github.com/nicwaller/apt-look/pkg/deb822"
)

// Archive is a mounted repository: a Distro, its most recently fetched and
// verified Release, and the fetcher used to reach both.
type Archive struct {
	Distro  *aptdistro.Distro
	Release *deb822.Release

	fetcher *apttransport.Fetcher

	components    []string
	architectures []string
}

// MountOptions configures Mount.
type MountOptions struct {
	Architectures []string
	Components    []string
	Fetcher       *apttransport.Fetcher
}

// MountOption is a functional option for Mount.
type MountOption func(*MountOptions)

// WithArchitectures restricts the architectures Archive.BinaryIndexes
// builds. Defaults to the host's architecture family.
func WithArchitectures(architectures ...string) MountOption {
	return func(opts *MountOptions) {
		opts.Architectures = architectures
	}
}

// WithComponents restricts the components Archive.BinaryIndexes and
// Archive.SourceIndexes build. Defaults to the Release's declared
// Components.
func WithComponents(components ...string) MountOption {
	return func(opts *MountOptions) {
		opts.Components = components
	}
}

// WithFetcher supplies a pre-configured Fetcher (e.g. one built against a
// caller's own apttransport.Registry). Defaults to apttransport.NewFetcher().
func WithFetcher(fetcher *apttransport.Fetcher) MountOption {
	return func(opts *MountOptions) {
		opts.Fetcher = fetcher
	}
}

// Mount fetches and verifies distro's InRelease (falling back to the
// unsigned Release document when InRelease is absent), parses it, and
// returns the mounted Archive. Signature verification happens here, before
// anything in the Release is consumed.
func Mount(ctx context.Context, distro *aptdistro.Distro, optFns ...MountOption) (*Archive, error) {
	opts := &MountOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = apttransport.NewFetcher()
	}

	raw, err := fetcher.GetText(ctx, distro.InReleaseURL())
	if err != nil {
		raw, err = fetcher.GetText(ctx, distro.ReleaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch release document: %w", err)
		}
	}

	signedBody, err := aptsig.Verify(ctx, fetcher, distro.Key, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to verify release document: %w", err)
	}

	release, err := deb822.ParseRelease(distro, signedBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse release document: %w", err)
	}
	if err := release.CheckCompliance(); err != nil {
		return nil, fmt.Errorf("release document failed compliance check: %w", err)
	}

	architectures := opts.Architectures
	if len(architectures) == 0 {
		architectures = detectDebianArch()
	}

	return &Archive{
		Distro:        distro,
		Release:       release,
		fetcher:       fetcher,
		components:    opts.Components,
		architectures: architectures,
	}, nil
}

// MountEntry builds the Distro for a parsed sources.list/deb822-sources
// Entry (selecting flat vs. named-suite layout from its Distribution
// field) and mounts it.
func MountEntry(ctx context.Context, entry sources.Entry, key aptdistro.KeyPolicy, optFns ...MountOption) (*Archive, error) {
	distro, err := entry.ToDistro(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build distro from source entry: %w", err)
	}
	if len(entry.Components) > 0 {
		optFns = append([]MountOption{WithComponents(entry.Components...)}, optFns...)
	}
	return Mount(ctx, distro, optFns...)
}

// detectDebianArch guesses a reasonable default architecture list from the
// host's GOARCH, mirroring dpkg --print-architecture's usual companions.
func detectDebianArch() []string {
	switch runtime.GOARCH {
	case "amd64":
		return []string{"amd64", "i386"}
	case "386":
		return []string{"i386"}
	case "arm64":
		return []string{"arm64"}
	case "arm":
		return []string{"arm", "armhf"}
	default:
		return nil
	}
}

// Update refetches, re-verifies, and reparses the Release document,
// replacing a.Release.
func (a *Archive) Update(ctx context.Context) (*deb822.Release, error) {
	fresh, err := Mount(ctx, a.Distro, WithComponents(a.components...), WithArchitectures(a.architectures...), WithFetcher(a.fetcher))
	if err != nil {
		return nil, err
	}
	a.Release = fresh.Release
	return a.Release, nil
}

// resolveComponents resolves the component list to index: the caller's
// restriction if given, else every component the Release declares.
func (a *Archive) resolveComponents() []string {
	if len(a.components) > 0 {
		return a.components
	}
	return a.Release.Components
}

// BinaryIndex builds the binary package index for component+architecture.
func (a *Archive) BinaryIndex(ctx context.Context, component, architecture string) (*aptindex.BinaryIndex, error) {
	if a.Release == nil {
		return nil, apterrors.New(apterrors.CallerMisuse, "archive has no release; call Mount or Update first")
	}
	return aptindex.BuildBinaryIndex(ctx, a.Release, a.fetcher, component, architecture)
}

// SourceIndex builds the source package index for component.
func (a *Archive) SourceIndex(ctx context.Context, component string) (*aptindex.SourceIndex, error) {
	if a.Release == nil {
		return nil, apterrors.New(apterrors.CallerMisuse, "archive has no release; call Mount or Update first")
	}
	return aptindex.BuildSourceIndex(ctx, a.Release, a.fetcher, component)
}

// BinaryIndexes builds one BinaryIndex per (component, architecture) pair
// within the Archive's restriction, yielding each as it completes.
func (a *Archive) BinaryIndexes(ctx context.Context) iter.Seq2[*aptindex.BinaryIndex, error] {
	return func(yield func(*aptindex.BinaryIndex, error) bool) {
		if a.Release == nil {
			yield(nil, apterrors.New(apterrors.CallerMisuse, "archive has no release; call Mount or Update first"))
			return
		}
		for _, component := range a.resolveComponents() {
			for _, architecture := range a.architectures {
				idx, err := a.BinaryIndex(ctx, component, architecture)
				if !yield(idx, err) {
					return
				}
			}
		}
	}
}

// SourceIndexes builds one SourceIndex per component within the Archive's
// restriction, yielding each as it completes.
func (a *Archive) SourceIndexes(ctx context.Context) iter.Seq2[*aptindex.SourceIndex, error] {
	return func(yield func(*aptindex.SourceIndex, error) bool) {
		if a.Release == nil {
			yield(nil, apterrors.New(apterrors.CallerMisuse, "archive has no release; call Mount or Update first"))
			return
		}
		for _, component := range a.resolveComponents() {
			idx, err := a.SourceIndex(ctx, component)
			if !yield(idx, err) {
				return
			}
		}
	}
}
