package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apt"
)

// runSearch mounts source and prints every package whose name or
// description contains searchTerm, case-insensitively.
func runSearch(source, searchTerm, format string) error {
	entries, err := parseSourceInput(source)
	if err != nil {
		return fmt.Errorf("failed to parse source input: %w", err)
	}

	term := strings.ToLower(searchTerm)
	ctx := context.Background()
	count := 0
	for _, entry := range entries {
		archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry))
		if err != nil {
			return fmt.Errorf("failed to mount repository: %w", err)
		}

		for idx, err := range archive.BinaryIndexes(ctx) {
			if err != nil {
				return fmt.Errorf("failed to build binary index: %w", err)
			}
			for _, name := range idx.Names() {
				for _, pkg := range idx.GetAll(name) {
					if !strings.Contains(strings.ToLower(pkg.Package), term) &&
						!strings.Contains(strings.ToLower(pkg.Description), term) {
						continue
					}
					if err := outputPackage(pkg, format); err != nil {
						return fmt.Errorf("failed to output package: %w", err)
					}
					count++
				}
			}
		}
	}

	if count == 0 {
		return fmt.Errorf("no packages matched %q", searchTerm)
	}
	return nil
}
