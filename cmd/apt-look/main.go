package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nicwaller/apt-look/pkg/apt/sources"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

var options struct {
	format   string
	output   string
	insecure bool
}

// config holds the optional persisted defaults read from
// ~/.config/apt-look/config.yaml. Flags always override it.
type config struct {
	Format   string `yaml:"format"`
	Insecure bool   `yaml:"insecure"`
}

func loadConfig() config {
	var cfg config
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}
	path := filepath.Join(home, ".config", "apt-look", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ignoring malformed config file")
		return config{}
	}
	return cfg
}

// Root command
var rootCmd = &cobra.Command{
	Use:   "apt-look",
	Short: "Explore APT repositories without system configuration",
	Long: `apt-look is a tool for exploring remote APT repositories.
It allows you to list packages, get repository statistics, search for packages,
and download specific packages without requiring system APT configuration.`,
	Example: `  apt-look list "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  apt-look info "deb http://archive.ubuntu.com/ubuntu/ jammy main" golang-1.21
  apt-look stats "deb http://archive.ubuntu.com/ubuntu/ jammy main"`,
}

// List command
var listCmd = &cobra.Command{
	Use:   "list <source>",
	Short: "List all packages in the repository",
	Long: `List all packages available in the specified APT repository.
Source can be either a full APT source line or a path to a sources.list file.`,
	Args: cobra.ExactArgs(1),
	Example: `  apt-look list "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  apt-look list /etc/apt/sources.list
  apt-look list /etc/apt/sources.list.d/docker.list --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0], options.format)
	},
}

// Info command
var infoCmd = &cobra.Command{
	Use:   "info <source> <package>",
	Short: "Show detailed information about a specific package",
	Long: `Display detailed metadata for a specific package including version,
dependencies, description, and other available information.`,
	Args: cobra.ExactArgs(2),
	Example: `  apt-look info "deb http://archive.ubuntu.com/ubuntu/ jammy main" golang-1.21
  apt-look info /etc/apt/sources.list python3-requests --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0], args[1], options.format)
	},
}

// Stats command
var statsCmd = &cobra.Command{
	Use:   "stats <source>",
	Short: "Show repository statistics",
	Long: `Display statistics about the repository including total number of packages,
total size, breakdown by component, and other metadata.`,
	Args: cobra.ExactArgs(1),
	Example: `  apt-look stats "deb http://archive.ubuntu.com/ubuntu/ jammy main"
  apt-look stats /etc/apt/sources.list --format=json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(args[0], options.format)
	},
}

// Check command
var checkCmd = &cobra.Command{
	Use:   "check <source>",
	Short: "Verify repository integrity against declared Release metadata",
	Long: `Probe every file the Release document declares with a HEAD request and
report which ones are missing or unreachable. Declared sizes and digests
are not checked.`,
	Args: cobra.ExactArgs(1),
	Example: `  apt-look check "deb http://archive.ubuntu.com/ubuntu/ jammy main"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(args[0], options.format)
	},
}

// Latest command
var latestCmd = &cobra.Command{
	Use:   "latest <source>",
	Short: "Show the latest version of each package",
	Long:  `List the highest known version of every package, grouped by (name, architecture).`,
	Args:  cobra.ExactArgs(1),
	Example: `  apt-look latest "deb http://archive.ubuntu.com/ubuntu/ jammy main"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLatest(args[0], options.format)
	},
}

// Download command
var downloadCmd = &cobra.Command{
	Use:   "download <source> <package>",
	Short: "Download the latest version of a package",
	Long: `Download the latest version of the specified package from the repository.
The package will be saved to the current directory or the path specified with --output.`,
	Args: cobra.ExactArgs(2),
	Example: `  apt-look download "deb http://archive.ubuntu.com/ubuntu/ jammy main" golang-1.21
  apt-look download /etc/apt/sources.list containerd --output=/tmp/packages/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(args[0], args[1], options.output)
	},
}

// Search command
var searchCmd = &cobra.Command{
	Use:   "search <source> <term>",
	Short: "Search for packages matching a term",
	Long: `Search for packages whose names or descriptions contain the specified term.
The search is case-insensitive and matches partial strings.`,
	Args: cobra.ExactArgs(2),
	Example: `  apt-look search "deb http://archive.ubuntu.com/ubuntu/ jammy main" golang
  apt-look search /etc/apt/sources.list python --format=tsv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(args[0], args[1], options.format)
	},
}

func init() {
	cfg := loadConfig()
	defaultFormat := "text"
	if cfg.Format != "" {
		defaultFormat = cfg.Format
	}

	rootCmd.PersistentFlags().StringVarP(&options.format, "format", "f", defaultFormat,
		"Output format (text, json, tsv, raw, prom)")
	rootCmd.PersistentFlags().BoolVar(&options.insecure, "insecure", cfg.Insecure,
		"Skip release signature verification")

	downloadCmd.Flags().StringVarP(&options.output, "output", "o", ".",
		"Output directory for downloaded packages")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		validFormats := []string{"text", "json", "tsv", "raw", "prom"}
		for _, validFormat := range validFormats {
			if options.format == validFormat {
				return nil
			}
		}
		return fmt.Errorf("invalid format '%s'. Valid formats: %s",
			options.format, strings.Join(validFormats, ", "))
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(searchCmd)
}

// keyPolicyFor derives the aptdistro.KeyPolicy to mount entry with: the
// entry's own "signed-by" keyring option when present, skipped entirely
// when --insecure was given or no keyring was declared at all (apt-look has
// no system keyring to fall back to).
func keyPolicyFor(entry sources.Entry) aptdistro.KeyPolicy {
	if options.insecure {
		return aptdistro.NoSignatureCheck()
	}
	if ring := entry.Options["signed-by"]; ring != "" {
		return aptdistro.ArmoredKey(ring)
	}
	log.Warn().Str("source", entry.URI).Msg("no signed-by keyring declared; skipping signature verification (pass --insecure to silence this)")
	return aptdistro.NoSignatureCheck()
}

// parseSourceInput accepts either a filesystem path to a sources.list or
// deb822-sources file, or a single source line passed directly on the
// command line, and returns the Entry values it names.
func parseSourceInput(source string) ([]sources.Entry, error) {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open sources file: %w", err)
		}
		defer file.Close()

		if strings.HasSuffix(source, ".sources") {
			return sources.ParseDeb822SourcesList(file)
		}
		return sources.ParseSourcesList(file)
	}

	entry, err := sources.ParseSourceLine(source, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source line: %w", err)
	}
	return []sources.Entry{*entry}, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("%v", err)
	}
}
