package main

import (
	"context"
	"fmt"

	"github.com/nicwaller/apt-look/pkg/apt"
)

// runInfo mounts source and prints every known record (one per
// architecture) for packageName.
func runInfo(source, packageName, format string) error {
	entries, err := parseSourceInput(source)
	if err != nil {
		return fmt.Errorf("failed to parse source input: %w", err)
	}

	ctx := context.Background()
	found := false
	for _, entry := range entries {
		archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry))
		if err != nil {
			return fmt.Errorf("failed to mount repository: %w", err)
		}

		for idx, err := range archive.BinaryIndexes(ctx) {
			if err != nil {
				return fmt.Errorf("failed to build binary index: %w", err)
			}
			for _, pkg := range idx.GetAll(packageName) {
				found = true
				if err := outputPackage(pkg, format); err != nil {
					return fmt.Errorf("failed to output package: %w", err)
				}
			}
		}
	}

	if !found {
		return fmt.Errorf("package %q not found", packageName)
	}
	return nil
}
