package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
	"github.com/nicwaller/apt-look/pkg/deb822"
)

// runList mounts every source entry and prints every binary package its
// Release declares, across every component and architecture the Archive
// was mounted with.
func runList(source, format string) error {
	entries, err := parseSourceInput(source)
	if err != nil {
		return fmt.Errorf("failed to parse source input: %w", err)
	}

	ctx := context.Background()
	for _, entry := range entries {
		archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry))
		if err != nil {
			return fmt.Errorf("failed to mount %s: %w", entry.URI, err)
		}

		count := 0
		for idx, err := range archive.BinaryIndexes(ctx) {
			if err != nil {
				return fmt.Errorf("failed to list packages: %w", err)
			}
			for _, name := range idx.Names() {
				for _, pkg := range idx.GetAll(name) {
					if err := outputPackage(pkg, format); err != nil {
						return fmt.Errorf("failed to output package: %w", err)
					}
					count++
				}
			}
		}
		log.Info().Msgf("%d packages listed from %s", count, archive.Distro.BaseURL())
	}

	return nil
}

// outputPackage outputs a single BinaryPackage in the specified format.
func outputPackage(pkg *deb822.BinaryPackage, format string) error {
	switch format {
	case "json":
		data, err := json.Marshal(packageJSONOf(pkg))
		if err != nil {
			return fmt.Errorf("failed to marshal package to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "tsv":
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			pkg.Package,
			pkg.Version.String(),
			pkg.Architecture.String(),
			pkg.Section,
			strings.ReplaceAll(pkg.Description, "\n", " "))

	case "raw":
		fmt.Printf("Package: %s\n", pkg.Package)
		fmt.Printf("Version: %s\n", pkg.Version.String())
		if pkg.Architecture.String() != "" {
			fmt.Printf("Architecture: %s\n", pkg.Architecture.String())
		}
		if pkg.Section != "" {
			fmt.Printf("Section: %s\n", pkg.Section)
		}
		if pkg.Priority != "" {
			fmt.Printf("Priority: %s\n", pkg.Priority.String())
		}
		fmt.Printf("Maintainer: %s\n", pkg.Maintainer)
		if pkg.InstalledSize > 0 {
			fmt.Printf("Installed-Size: %d\n", pkg.InstalledSize)
		}
		if pkg.Homepage != "" {
			fmt.Printf("Homepage: %s\n", pkg.Homepage)
		}
		fmt.Printf("Description: %s\n", pkg.Description)
		if pkg.Link != nil {
			fmt.Printf("Filename: %s\n", pkg.Link.URL)
			fmt.Printf("Size: %d\n", pkg.Link.Size)
			if kind, digest, ok := pkg.Link.StrongestHash(); ok {
				fmt.Printf("%s: %s\n", strings.ToUpper(string(kind)), digest)
			}
		}
		if len(pkg.Depends) > 0 {
			fmt.Printf("Depends: %s\n", pkg.Depends.String())
		}
		if len(pkg.Recommends) > 0 {
			fmt.Printf("Recommends: %s\n", pkg.Recommends.String())
		}
		if len(pkg.Suggests) > 0 {
			fmt.Printf("Suggests: %s\n", pkg.Suggests.String())
		}
		if len(pkg.Conflicts) > 0 {
			fmt.Printf("Conflicts: %s\n", pkg.Conflicts.String())
		}
		if len(pkg.Provides) > 0 {
			fmt.Printf("Provides: %s\n", pkg.Provides.String())
		}
		fmt.Printf("\n")

	case "text":
		fallthrough
	default:
		fmt.Printf("%s %s [%s] %s\n", pkg.Package, pkg.Version.String(), pkg.Architecture.String(), pkg.Description)
	}
	return nil
}

// packageJSON is a flattened, JSON-friendly projection of a BinaryPackage:
// the struct itself carries a *aptdistro.Link and typed Architecture /
// Priority / dependency.List fields that don't marshal the way a caller
// piping "apt-look list --format=json" into jq would expect.
type packageJSON struct {
	Package      string `json:"package"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
	Priority     string `json:"priority,omitempty"`
	Section      string `json:"section,omitempty"`
	Maintainer   string `json:"maintainer"`
	Description  string `json:"description"`
	Size         int64  `json:"size,omitempty"`
	URL          string `json:"url,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	Depends      string `json:"depends,omitempty"`
	Recommends   string `json:"recommends,omitempty"`
}

func packageJSONOf(pkg *deb822.BinaryPackage) packageJSON {
	v := packageJSON{
		Package:      pkg.Package,
		Version:      pkg.Version.String(),
		Architecture: pkg.Architecture.String(),
		Priority:     pkg.Priority.String(),
		Section:      pkg.Section,
		Maintainer:   pkg.Maintainer,
		Description:  pkg.Description,
		Depends:      pkg.Depends.String(),
		Recommends:   pkg.Recommends.String(),
	}
	if pkg.Link != nil {
		v.Size = pkg.Link.Size
		v.URL = pkg.Link.URL
		v.SHA256 = pkg.Link.Hashes[aptdistro.SHA256]
	}
	return v
}
