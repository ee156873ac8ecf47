// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shipwright-io/nuget-publish/pkg/config"
	"github.com/shipwright-io/nuget-publish/version"
)

const longDesc = `
# nuget-publish

Packs the packable .NET projects of a repository with "dotnet pack" and pushes
the packages to one or more NuGet feeds with "dotnet nuget push".

## Usage

Settings are read from the GitHub Action inputs (INPUT_<NAME> environment
variables), an optional configuration file, and command-line flags, in
increasing order of precedence.

	$ nuget-publish --repositories https://api.nuget.org/v3/index.json

List the projects that would be packed:

	$ nuget-publish discover

## Return-Code

100 invalid input, 101 no projects, 110 no credentials, 120 dotnet missing,
130 pack failed, 140 push failed, 150 tagging failed.
`

// settings composed by command-line flag values, only flags that were set
// on the command-line override the configuration
type settings struct {
	configFile     string
	skipValidation bool
	logLevel       string

	root          string
	projects      []string
	patterns      []string
	excludes      []string
	repositories  []string
	apiKey        string
	apiKeyEnv     string
	trustedUser   string
	configuration string
	output        string
	version       string
	versionSuffix string

	includeSymbols bool
	skipDuplicate  bool
	noBuild        bool
	packArgs       []string
	pushArgs       []string

	dryRun      bool
	failOnError bool
	pushRetries int
	pushTimeout time.Duration
	checkFeeds  bool

	tagCommit   bool
	tagFormat   string
	pushTags    bool
	waitIndex   bool
	waitTimeout time.Duration

	metricsFile    string
	pushgatewayURL string
}

func newRootCmd() *cobra.Command {
	flagValues := &settings{}

	rootCmd := &cobra.Command{
		Use:           "nuget-publish [flags]",
		Short:         "Pack .NET projects and push the packages to NuGet feeds",
		Long:          longDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd, flagValues)
		},
	}

	addFlags(rootCmd.PersistentFlags(), flagValues)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Pack the projects and push the packages (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd, flagValues)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "List the projects that would be packed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, flagValues)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	})

	return rootCmd
}

func versionString() string {
	if version.Version == "" {
		return "dev"
	}

	return version.Version
}

func addFlags(flags *pflag.FlagSet, s *settings) {
	defaults := config.NewDefaultConfig()

	flags.StringVar(&s.configFile, "config", "", "YAML configuration file, defaults to the config-file input")
	flags.StringVar(&s.logLevel, "log-level", defaults.LogLevel, "log level, info or debug")

	// Mostly internal flag
	flags.BoolVar(&s.skipValidation, "skip-validation", false, "skip pre-requisite validation")

	flags.StringVar(&s.root, "root", defaults.Root, "directory the project discovery starts from")
	flags.StringArrayVar(&s.projects, "project", nil, "project file, directory or glob to pack, can be repeated. Disables discovery.")
	flags.StringArrayVar(&s.patterns, "project-pattern", defaults.ProjectPatterns, "pattern of the project files to discover")
	flags.StringArrayVar(&s.excludes, "exclude", defaults.Excludes, "pattern of paths to skip during discovery")
	flags.StringArrayVar(&s.repositories, "repository", defaults.Repositories, "NuGet source to push to, can be repeated")
	flags.StringVar(&s.apiKey, "api-key", "", "API key for the NuGet sources")
	flags.StringVar(&s.apiKeyEnv, "api-key-env", defaults.APIKeyEnv, "environment variable holding the API key")
	flags.StringVar(&s.trustedUser, "trusted-publishing-user", "", "nuget.org user to obtain a short-lived API key for through trusted publishing")
	flags.StringVar(&s.configuration, "configuration", defaults.Configuration, "build configuration")
	flags.StringVar(&s.output, "output", defaults.Output, "package output directory")
	flags.StringVar(&s.version, "package-version", "", "package version override")
	flags.StringVar(&s.versionSuffix, "version-suffix", "", "package version suffix")

	flags.BoolVar(&s.includeSymbols, "include-symbols", defaults.IncludeSymbols, "create and push symbol packages")
	flags.BoolVar(&s.skipDuplicate, "skip-duplicate", defaults.SkipDuplicate, "treat already existing package versions as skipped")
	flags.BoolVar(&s.noBuild, "no-build", defaults.NoBuild, "do not build the projects before packing")
	flags.StringArrayVar(&s.packArgs, "pack-arg", nil, "extra argument for dotnet pack, can be repeated")
	flags.StringArrayVar(&s.pushArgs, "push-arg", nil, "extra argument for dotnet nuget push, can be repeated")

	flags.BoolVar(&s.dryRun, "dry-run", defaults.DryRun, "pack, but do not push")
	flags.BoolVar(&s.failOnError, "fail-on-error", defaults.FailOnError, "exit with an error code when a pack or push failed")
	flags.IntVar(&s.pushRetries, "push-retries", defaults.PushRetries, "retries for transient push failures")
	flags.DurationVar(&s.pushTimeout, "push-timeout", defaults.PushTimeout, "timeout of a single push")
	flags.BoolVar(&s.checkFeeds, "check-feeds", defaults.CheckFeeds, "check that the feeds are reachable before packing")

	flags.BoolVar(&s.tagCommit, "tag-commit", defaults.Tag.Enabled, "create a git tag for every pushed version")
	flags.StringVar(&s.tagFormat, "tag-format", defaults.Tag.Format, "tag name format, '*' is replaced by the version")
	flags.BoolVar(&s.pushTags, "push-tags", defaults.Tag.Push, "push created tags to the origin remote")
	flags.BoolVar(&s.waitIndex, "wait-for-index", defaults.Wait.Enabled, "wait until pushed versions are listed on the feed")
	flags.DurationVar(&s.waitTimeout, "wait-timeout", defaults.Wait.Timeout, "how long to wait for a version to be listed")

	flags.StringVar(&s.metricsFile, "metrics-file", "", "file to write Prometheus metrics to")
	flags.StringVar(&s.pushgatewayURL, "pushgateway-url", "", "Prometheus Pushgateway to push metrics to")
}

// applyFlags overrides the configuration with the flags that were set on the command-line
func applyFlags(flags *pflag.FlagSet, s *settings, cfg *config.Config) {
	overrides := map[string]func(){
		"log-level":               func() { cfg.LogLevel = s.logLevel },
		"root":                    func() { cfg.Root = s.root },
		"project":                 func() { cfg.Projects = s.projects },
		"project-pattern":         func() { cfg.ProjectPatterns = s.patterns },
		"exclude":                 func() { cfg.Excludes = s.excludes },
		"repository":              func() { cfg.Repositories = s.repositories },
		"api-key":                 func() { cfg.APIKey = s.apiKey },
		"api-key-env":             func() { cfg.APIKeyEnv = s.apiKeyEnv },
		"trusted-publishing-user": func() { cfg.TrustedPublishingUser = s.trustedUser },
		"configuration":           func() { cfg.Configuration = s.configuration },
		"output":                  func() { cfg.Output = s.output },
		"package-version":         func() { cfg.Version = s.version },
		"version-suffix":          func() { cfg.VersionSuffix = s.versionSuffix },
		"include-symbols":         func() { cfg.IncludeSymbols = s.includeSymbols },
		"skip-duplicate":          func() { cfg.SkipDuplicate = s.skipDuplicate },
		"no-build":                func() { cfg.NoBuild = s.noBuild },
		"pack-arg":                func() { cfg.PackArgs = s.packArgs },
		"push-arg":                func() { cfg.PushArgs = s.pushArgs },
		"dry-run":                 func() { cfg.DryRun = s.dryRun },
		"fail-on-error":           func() { cfg.FailOnError = s.failOnError },
		"push-retries":            func() { cfg.PushRetries = s.pushRetries },
		"push-timeout":            func() { cfg.PushTimeout = s.pushTimeout },
		"check-feeds":             func() { cfg.CheckFeeds = s.checkFeeds },
		"tag-commit":              func() { cfg.Tag.Enabled = s.tagCommit },
		"tag-format":              func() { cfg.Tag.Format = s.tagFormat },
		"push-tags":               func() { cfg.Tag.Push = s.pushTags },
		"wait-for-index":          func() { cfg.Wait.Enabled = s.waitIndex },
		"wait-timeout":            func() { cfg.Wait.Timeout = s.waitTimeout },
		"metrics-file":            func() { cfg.Metrics.File = s.metricsFile },
		"pushgateway-url":         func() { cfg.Metrics.PushgatewayURL = s.pushgatewayURL },
	}

	for name, apply := range overrides {
		if flags.Changed(name) {
			apply()
		}
	}
}
