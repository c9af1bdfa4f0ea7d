package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/apt/sources"
)

// RepositoryStats holds aggregate statistics about a mounted repository.
type RepositoryStats struct {
	Repository struct {
		Origin        string    `json:"origin,omitempty"`
		Label         string    `json:"label,omitempty"`
		Suite         string    `json:"suite,omitempty"`
		Codename      string    `json:"codename,omitempty"`
		Date          time.Time `json:"date"`
		Architectures []string  `json:"architectures"`
		Components    []string  `json:"components"`
	} `json:"repository"`

	Packages struct {
		Total          int            `json:"total"`
		TotalSize      int64          `json:"total_size_bytes"`
		TotalSizeMB    int64          `json:"total_size_mb"`
		ByArchitecture map[string]int `json:"by_architecture"`
		ByComponent    map[string]int `json:"by_component"`
		BySection      map[string]int `json:"by_section"`
		ByPriority     map[string]int `json:"by_priority"`
	} `json:"packages"`
}

// runStats mounts source and reports aggregate package statistics across
// every component and architecture it was mounted with.
func runStats(sourceStr, format string) error {
	entries, err := parseSourceInput(sourceStr)
	if err != nil {
		return fmt.Errorf("failed to parse sources: %w", err)
	}
	if len(entries) != 1 {
		return fmt.Errorf("expected 1 source, got %d", len(entries))
	}
	entry := entries[0]
	log.Info().Msgf("Getting statistics for: %s", entry.URI)

	ctx := context.Background()
	archive, err := apt.MountEntry(ctx, entry, keyPolicyFor(entry))
	if err != nil {
		return fmt.Errorf("failed to mount repository: %w", err)
	}

	stats, err := calculateRepositoryStats(ctx, archive)
	if err != nil {
		return fmt.Errorf("failed to calculate statistics: %w", err)
	}

	return outputStats(entry, stats, format)
}

func calculateRepositoryStats(ctx context.Context, archive *apt.Archive) (*RepositoryStats, error) {
	stats := &RepositoryStats{}
	release := archive.Release

	stats.Repository.Origin = release.Origin
	stats.Repository.Label = release.Label
	stats.Repository.Suite = release.Suite
	stats.Repository.Codename = release.Codename
	stats.Repository.Date = release.Date
	stats.Repository.Architectures = release.Architectures
	stats.Repository.Components = release.Components

	stats.Packages.ByArchitecture = make(map[string]int)
	stats.Packages.ByComponent = make(map[string]int)
	stats.Packages.BySection = make(map[string]int)
	stats.Packages.ByPriority = make(map[string]int)

	for idx, err := range archive.BinaryIndexes(ctx) {
		if err != nil {
			log.Warn().Err(err).Msg("failed to build binary index")
			continue
		}
		for _, name := range idx.Names() {
			for _, pkg := range idx.GetAll(name) {
				stats.Packages.Total++
				if pkg.Link != nil {
					stats.Packages.TotalSize += pkg.Link.Size
				}
				if arch := pkg.Architecture.String(); arch != "" {
					stats.Packages.ByArchitecture[arch]++
				}
				stats.Packages.ByComponent[idx.Component]++
				if pkg.Section != "" {
					stats.Packages.BySection[pkg.Section]++
				}
				if pkg.Priority != "" {
					stats.Packages.ByPriority[pkg.Priority.String()]++
				}
			}
		}
	}

	stats.Packages.TotalSizeMB = stats.Packages.TotalSize / (1024 * 1024)
	return stats, nil
}

func outputStats(entry sources.Entry, stats *RepositoryStats, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)

	case "tsv":
		return outputStatsTSV(stats)

	case "prom":
		return outputStatsPrometheus(entry, stats)

	case "raw":
		return outputStatsRaw(stats)

	case "text":
		fallthrough
	default:
		return outputStatsText(stats)
	}
}

func outputStatsText(stats *RepositoryStats) error {
	fmt.Printf("Repository Statistics\n")
	fmt.Printf("====================\n\n")

	fmt.Printf("Repository Information:\n")
	if stats.Repository.Origin != "" {
		fmt.Printf("  Origin: %s\n", stats.Repository.Origin)
	}
	if stats.Repository.Label != "" {
		fmt.Printf("  Label: %s\n", stats.Repository.Label)
	}
	if stats.Repository.Suite != "" {
		fmt.Printf("  Suite: %s\n", stats.Repository.Suite)
	}
	if stats.Repository.Codename != "" {
		fmt.Printf("  Codename: %s\n", stats.Repository.Codename)
	}
	fmt.Printf("  Date: %s\n", stats.Repository.Date.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Architectures: %s\n", strings.Join(stats.Repository.Architectures, ", "))
	fmt.Printf("  Components: %s\n", strings.Join(stats.Repository.Components, ", "))

	fmt.Printf("\nPackage Statistics:\n")
	fmt.Printf("  Total Packages: %d\n", stats.Packages.Total)
	fmt.Printf("  Total Size: %d bytes (%.1f MB)\n", stats.Packages.TotalSize, float64(stats.Packages.TotalSize)/(1024*1024))

	if len(stats.Packages.ByArchitecture) > 0 {
		fmt.Printf("\n  By Architecture:\n")
		for arch, count := range stats.Packages.ByArchitecture {
			fmt.Printf("    %s: %d packages\n", arch, count)
		}
	}

	if len(stats.Packages.ByComponent) > 0 {
		fmt.Printf("\n  By Component:\n")
		for component, count := range stats.Packages.ByComponent {
			fmt.Printf("    %s: %d packages\n", component, count)
		}
	}

	if len(stats.Packages.BySection) > 0 {
		fmt.Printf("\n  By Section:\n")
		for section, count := range stats.Packages.BySection {
			fmt.Printf("    %s: %d packages\n", section, count)
		}
	}

	if len(stats.Packages.ByPriority) > 0 {
		fmt.Printf("\n  By Priority:\n")
		for priority, count := range stats.Packages.ByPriority {
			fmt.Printf("    %s: %d packages\n", priority, count)
		}
	}

	return nil
}

func outputStatsTSV(stats *RepositoryStats) error {
	fmt.Printf("field\tvalue\n")
	fmt.Printf("origin\t%s\n", stats.Repository.Origin)
	fmt.Printf("label\t%s\n", stats.Repository.Label)
	fmt.Printf("suite\t%s\n", stats.Repository.Suite)
	fmt.Printf("codename\t%s\n", stats.Repository.Codename)
	fmt.Printf("date\t%s\n", stats.Repository.Date.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("architectures\t%s\n", strings.Join(stats.Repository.Architectures, ","))
	fmt.Printf("components\t%s\n", strings.Join(stats.Repository.Components, ","))
	fmt.Printf("total_packages\t%d\n", stats.Packages.Total)
	fmt.Printf("total_size_bytes\t%d\n", stats.Packages.TotalSize)
	fmt.Printf("total_size_mb\t%d\n", stats.Packages.TotalSizeMB)

	for arch, count := range stats.Packages.ByArchitecture {
		fmt.Printf("arch_%s\t%d\n", arch, count)
	}
	for component, count := range stats.Packages.ByComponent {
		fmt.Printf("component_%s\t%d\n", component, count)
	}

	return nil
}

func formatPrometheusMetric(name string, labels map[string]string, value float64) string {
	var sb strings.Builder
	sb.WriteString(name)
	if len(labels) > 0 {
		sb.WriteRune('{')
		parts := make([]string, 0, len(labels))
		for k, v := range labels {
			parts = append(parts, fmt.Sprintf(`%s=%q`, k, v))
		}
		sb.WriteString(strings.Join(parts, ","))
		sb.WriteRune('}')
	}
	sb.WriteRune(' ')
	sb.WriteString(fmt.Sprintf("%f", value))
	return sb.String()
}

func outputStatsPrometheus(entry sources.Entry, stats *RepositoryStats) error {
	purl, err := url.Parse(entry.URI)
	if err != nil {
		return fmt.Errorf("failed to parse source URI: %w", err)
	}

	labels := map[string]string{
		"host":         purl.Host,
		"path":         purl.Path,
		"distribution": entry.Distribution,
		"origin":       stats.Repository.Origin,
		"label":        stats.Repository.Label,
		"suite":        stats.Repository.Suite,
	}

	var metrics []string
	labels["arch"] = "combined"
	metrics = append(metrics, formatPrometheusMetric("apt_repo_total_bytes", labels, float64(stats.Packages.TotalSize)))
	metrics = append(metrics, formatPrometheusMetric("apt_repo_total_packages", labels, float64(stats.Packages.Total)))
	delete(labels, "arch")

	for arch, pkgCount := range stats.Packages.ByArchitecture {
		labels["arch"] = arch
		metrics = append(metrics, formatPrometheusMetric("apt_repo_total_packages", labels, float64(pkgCount)))
	}
	delete(labels, "arch")

	for component, pkgCount := range stats.Packages.ByComponent {
		labels["component"] = component
		metrics = append(metrics, formatPrometheusMetric("apt_repo_total_packages", labels, float64(pkgCount)))
	}
	delete(labels, "component")

	for _, metric := range metrics {
		_, _ = os.Stdout.WriteString(metric + "\n")
	}

	return nil
}

func outputStatsRaw(stats *RepositoryStats) error {
	fmt.Printf("Origin: %s\n", stats.Repository.Origin)
	fmt.Printf("Label: %s\n", stats.Repository.Label)
	fmt.Printf("Suite: %s\n", stats.Repository.Suite)
	fmt.Printf("Codename: %s\n", stats.Repository.Codename)
	fmt.Printf("Date: %s\n", stats.Repository.Date.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	fmt.Printf("Architectures: %s\n", strings.Join(stats.Repository.Architectures, " "))
	fmt.Printf("Components: %s\n", strings.Join(stats.Repository.Components, " "))
	fmt.Printf("Total-Packages: %d\n", stats.Packages.Total)
	fmt.Printf("Total-Size: %d\n", stats.Packages.TotalSize)
	return nil
}
