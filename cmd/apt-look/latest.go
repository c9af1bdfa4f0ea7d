package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/deb822"
	"github.com/nicwaller/apt-look/pkg/version"
)

// packageKey identifies a package independent of version: its name and
// architecture.
type packageKey struct {
	Name         string
	Architecture string
}

// runLatest shows the latest version of each package grouped by
// (name, architecture), across every source given.
func runLatest(source, format string) error {
	entries, err := parseSourceInput(source)
	if err != nil {
		return fmt.Errorf("failed to parse source input: %w", err)
	}

	latest := make(map[packageKey]*deb822.BinaryPackage)

	ctx := context.Background()
	for _, entry := range entries {
		archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry))
		if err != nil {
			return fmt.Errorf("failed to mount repository: %w", err)
		}

		count := 0
		for idx, err := range archive.BinaryIndexes(ctx) {
			if err != nil {
				return fmt.Errorf("failed to list packages: %w", err)
			}
			for _, name := range idx.Names() {
				for _, pkg := range idx.GetAll(name) {
					key := packageKey{Name: pkg.Package, Architecture: pkg.Architecture.String()}
					existing, exists := latest[key]
					if !exists || version.Less(existing.Version, pkg.Version) {
						latest[key] = pkg
						if !exists {
							count++
						}
					}
				}
			}
		}
		log.Info().Msgf("%d unique packages found in %s", count, archive.Distro.BaseURL())
	}

	packages := make([]*deb822.BinaryPackage, 0, len(latest))
	for _, pkg := range latest {
		packages = append(packages, pkg)
	}
	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Package != packages[j].Package {
			return packages[i].Package < packages[j].Package
		}
		return packages[i].Architecture.String() < packages[j].Architecture.String()
	})

	for _, pkg := range packages {
		if err := outputPackage(pkg, format); err != nil {
			return fmt.Errorf("failed to output package: %w", err)
		}
	}

	return nil
}
