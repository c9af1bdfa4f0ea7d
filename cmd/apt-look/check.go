package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/apttransport"
)

// CheckResult holds the result of verifying a mounted repository's
// declared Links against what the server actually serves.
type CheckResult struct {
	Repository struct {
		Origin     string    `json:"origin,omitempty"`
		Label      string    `json:"label,omitempty"`
		Suite      string    `json:"suite,omitempty"`
		Codename   string    `json:"codename,omitempty"`
		Date       time.Time `json:"date"`
		BaseURL    string    `json:"base_url"`
		Components []string  `json:"components"`
	} `json:"repository"`

	Summary struct {
		TotalFiles    int `json:"total_files"`
		ExistingFiles int `json:"existing_files"`
		MissingFiles  int `json:"missing_files"`
		NetworkErrors int `json:"network_errors"`
	} `json:"summary"`

	MissingFiles  []string `json:"missing_files,omitempty"`
	NetworkErrors []string `json:"network_errors,omitempty"`
}

// runCheck mounts source, then probes every Link its Release declares with
// a liveness Head, reporting what's missing or unreachable.
func runCheck(sourceStr, format string) error {
	entries, err := parseSourceInput(sourceStr)
	if err != nil {
		return fmt.Errorf("failed to parse sources: %w", err)
	}
	if len(entries) != 1 {
		return fmt.Errorf("expected 1 source, got %d", len(entries))
	}
	entry := entries[0]
	log.Info().Msgf("Checking repository integrity: %s", entry.URI)

	ctx := context.Background()
	fetcher := apttransport.NewFetcher()
	archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry), apt.WithFetcher(fetcher))
	if err != nil {
		return fmt.Errorf("failed to mount repository: %w", err)
	}

	result := buildCheckResult(ctx, archive, fetcher)
	return outputCheckResults(result, format)
}

func buildCheckResult(ctx context.Context, archive *apt.Archive, fetcher *apttransport.Fetcher) *CheckResult {
	result := &CheckResult{}
	release := archive.Release
	result.Repository.Origin = release.Origin
	result.Repository.Label = release.Label
	result.Repository.Suite = release.Suite
	result.Repository.Codename = release.Codename
	result.Repository.Date = release.Date
	result.Repository.BaseURL = archive.Distro.BaseURL()
	result.Repository.Components = release.Components

	paths := make([]string, 0, len(release.Links))
	for path := range release.Links {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	result.Summary.TotalFiles = len(paths)

	for _, path := range paths {
		link := release.Links[path]
		if _, err := fetcher.Head(ctx, link.URL); err != nil {
			if strings.Contains(err.Error(), "404") {
				result.MissingFiles = append(result.MissingFiles, link.URL)
				result.Summary.MissingFiles++
			} else {
				result.NetworkErrors = append(result.NetworkErrors, fmt.Sprintf("%s: %v", link.URL, err))
				result.Summary.NetworkErrors++
			}
			continue
		}
		result.Summary.ExistingFiles++
	}

	return result
}

func outputCheckResults(result *CheckResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)

	case "tsv":
		return outputCheckResultsTSV(result)

	case "text":
		fallthrough
	default:
		return outputCheckResultsText(result)
	}
}

func outputCheckResultsText(result *CheckResult) error {
	fmt.Printf("Repository Integrity Check\n")
	fmt.Printf("=========================\n\n")

	fmt.Printf("Repository Information:\n")
	if result.Repository.Origin != "" {
		fmt.Printf("  Origin: %s\n", result.Repository.Origin)
	}
	if result.Repository.Label != "" {
		fmt.Printf("  Label: %s\n", result.Repository.Label)
	}
	if result.Repository.Suite != "" {
		fmt.Printf("  Suite: %s\n", result.Repository.Suite)
	}
	if result.Repository.Codename != "" {
		fmt.Printf("  Codename: %s\n", result.Repository.Codename)
	}
	fmt.Printf("  Date: %s\n", result.Repository.Date.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Base URL: %s\n", result.Repository.BaseURL)
	fmt.Printf("  Components: %s\n", strings.Join(result.Repository.Components, ", "))

	fmt.Printf("\nIntegrity Summary:\n")
	fmt.Printf("  Total Files: %d\n", result.Summary.TotalFiles)
	fmt.Printf("  Existing Files: %d\n", result.Summary.ExistingFiles)
	fmt.Printf("  Missing Files: %d\n", result.Summary.MissingFiles)
	fmt.Printf("  Network Errors: %d\n", result.Summary.NetworkErrors)

	if len(result.MissingFiles) > 0 {
		fmt.Printf("\nMissing Files:\n")
		for _, url := range result.MissingFiles {
			fmt.Printf("  - %s\n", url)
		}
	}

	if len(result.NetworkErrors) > 0 {
		fmt.Printf("\nNetwork Errors:\n")
		for _, msg := range result.NetworkErrors {
			fmt.Printf("  - %s\n", msg)
		}
	}

	return nil
}

func outputCheckResultsTSV(result *CheckResult) error {
	fmt.Printf("field\tvalue\n")
	fmt.Printf("origin\t%s\n", result.Repository.Origin)
	fmt.Printf("label\t%s\n", result.Repository.Label)
	fmt.Printf("suite\t%s\n", result.Repository.Suite)
	fmt.Printf("codename\t%s\n", result.Repository.Codename)
	fmt.Printf("date\t%s\n", result.Repository.Date.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("base_url\t%s\n", result.Repository.BaseURL)
	fmt.Printf("components\t%s\n", strings.Join(result.Repository.Components, ","))
	fmt.Printf("total_files\t%d\n", result.Summary.TotalFiles)
	fmt.Printf("existing_files\t%d\n", result.Summary.ExistingFiles)
	fmt.Printf("missing_files\t%d\n", result.Summary.MissingFiles)
	fmt.Printf("network_errors\t%d\n", result.Summary.NetworkErrors)
	return nil
}
