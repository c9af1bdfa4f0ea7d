package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/apttransport"
	"github.com/nicwaller/apt-look/pkg/deb822"
	"github.com/nicwaller/apt-look/pkg/version"
)

// runDownload mounts source, finds the highest-version record of
// packageName across every component and architecture, and saves its
// archive to outputDir.
func runDownload(source, packageName, outputDir string) error {
	entries, err := parseSourceInput(source)
	if err != nil {
		return fmt.Errorf("failed to parse source input: %w", err)
	}
	if len(entries) != 1 {
		return fmt.Errorf("expected 1 source, got %d", len(entries))
	}
	entry := entries[0]

	ctx := context.Background()
	fetcher := apttransport.NewFetcher()
	archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry), apt.WithFetcher(fetcher))
	if err != nil {
		return fmt.Errorf("failed to mount repository: %w", err)
	}

	var best *deb822.BinaryPackage
	for idx, err := range archive.BinaryIndexes(ctx) {
		if err != nil {
			return fmt.Errorf("failed to build binary index: %w", err)
		}
		for _, pkg := range idx.GetAll(packageName) {
			if best == nil || version.Less(best.Version, pkg.Version) {
				best = pkg
			}
		}
	}
	if best == nil {
		return fmt.Errorf("package %q not found", packageName)
	}
	if best.Link == nil {
		return fmt.Errorf("package %q has no download link", packageName)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	dest := filepath.Join(outputDir, path.Base(best.Link.URL))

	log.Info().Msgf("Downloading %s %s (%s) to %s", best.Package, best.Version.String(), best.Architecture.String(), dest)
	if err := fetcher.Download(ctx, best.Link, dest); err != nil {
		return fmt.Errorf("failed to download package: %w", err)
	}

	return nil
}
