// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	kerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

const (
	// DefaultRepository is the public NuGet gallery
	DefaultRepository = "https://api.nuget.org/v3/index.json"

	// DefaultTokenServiceURL is the nuget.org endpoint that exchanges OIDC tokens for API keys
	DefaultTokenServiceURL = "https://www.nuget.org/api/v2/token"

	defaultAPIKeyEnv     = "NUGET_API_KEY"
	defaultConfiguration = "Release"
	defaultOutput        = "nupkgs"
	defaultProjectGlob   = "**/*.csproj"
	defaultTagFormat     = "v*"
	defaultPushRetries   = 2
	defaultPushTimeout   = 300 * time.Second
	defaultWaitTimeout   = 10 * time.Minute

	// githubTokenEnvVar is used to push tags when no explicit token input is set
	githubTokenEnvVar = "GITHUB_TOKEN"

	// runnerDebugEnvVar is set to 1 by GitHub when step debug logging is enabled
	runnerDebugEnvVar = "RUNNER_DEBUG"
)

var defaultExcludes = []string{
	"**/bin/**",
	"**/obj/**",
	"**/node_modules/**",
	"**/.git/**",
}

// Config hosts the parameters of a publish run
type Config struct {
	Root            string
	Projects        []string
	ProjectPatterns []string
	Excludes        []string

	Repositories          []string
	APIKey                string
	APIKeyEnv             string
	TrustedPublishingUser string
	TokenServiceURL       string

	Configuration  string
	Output         string
	Version        string
	VersionSuffix  string
	IncludeSymbols bool
	SkipDuplicate  bool
	NoBuild        bool
	PackArgs       []string
	PushArgs       []string

	DryRun      bool
	FailOnError bool
	PushRetries int
	PushTimeout time.Duration
	CheckFeeds  bool

	Tag     TagConfig
	Wait    WaitConfig
	Metrics MetricsConfig

	LogLevel string
}

// TagConfig controls the creation of git tags for pushed packages
type TagConfig struct {
	Enabled bool
	Format  string
	Push    bool
	Token   string
}

// WaitConfig controls polling the feed until pushed packages are listed
type WaitConfig struct {
	Enabled bool
	Timeout time.Duration
}

// MetricsConfig contains the export targets for the Prometheus metrics
type MetricsConfig struct {
	File           string
	PushgatewayURL string
}

// NewDefaultConfig returns a new Config with reasonable defaults for a publish run
func NewDefaultConfig() *Config {
	return &Config{
		Root:            ".",
		ProjectPatterns: []string{defaultProjectGlob},
		Excludes:        append([]string(nil), defaultExcludes...),
		Repositories:    []string{DefaultRepository},
		APIKeyEnv:       defaultAPIKeyEnv,
		TokenServiceURL: DefaultTokenServiceURL,
		Configuration:   defaultConfiguration,
		Output:          defaultOutput,
		SkipDuplicate:   true,
		FailOnError:     true,
		PushRetries:     defaultPushRetries,
		PushTimeout:     defaultPushTimeout,
		Tag: TagConfig{
			Format: defaultTagFormat,
			Push:   true,
		},
		Wait: WaitConfig{
			Timeout: defaultWaitTimeout,
		},
		LogLevel: "info",
	}
}

// SetConfigFromEnv updates the configuration from the GitHub Action inputs
// and the environment variables of the runner.
func (c *Config) SetConfigFromEnv() error {
	var errs []error

	stringInputs := map[string]*string{
		"root":                    &c.Root,
		"api-key":                 &c.APIKey,
		"api-key-env":             &c.APIKeyEnv,
		"trusted-publishing-user": &c.TrustedPublishingUser,
		"token-service-url":       &c.TokenServiceURL,
		"configuration":           &c.Configuration,
		"output":                  &c.Output,
		"version":                 &c.Version,
		"version-suffix":          &c.VersionSuffix,
		"tag-format":              &c.Tag.Format,
		"github-token":            &c.Tag.Token,
		"metrics-file":            &c.Metrics.File,
		"pushgateway-url":         &c.Metrics.PushgatewayURL,
		"log-level":               &c.LogLevel,
	}
	for name, target := range stringInputs {
		if value, ok := LookupInput(name); ok {
			*target = value
		}
	}

	listInputs := map[string]*[]string{
		"projects":        &c.Projects,
		"project-pattern": &c.ProjectPatterns,
		"exclude":         &c.Excludes,
		"repositories":    &c.Repositories,
	}
	for name, target := range listInputs {
		if value, ok := LookupInput(name); ok {
			*target = SplitList(value)
		}
	}

	argInputs := map[string]*[]string{
		"pack-args": &c.PackArgs,
		"push-args": &c.PushArgs,
	}
	for name, target := range argInputs {
		if value, ok := LookupInput(name); ok {
			*target = SplitLines(value)
		}
	}

	boolInputs := map[string]*bool{
		"include-symbols": &c.IncludeSymbols,
		"skip-duplicate":  &c.SkipDuplicate,
		"no-build":        &c.NoBuild,
		"dry-run":         &c.DryRun,
		"fail-on-error":   &c.FailOnError,
		"check-feeds":     &c.CheckFeeds,
		"tag-commit":      &c.Tag.Enabled,
		"push-tags":       &c.Tag.Push,
		"wait-for-index":  &c.Wait.Enabled,
	}
	for name, target := range boolInputs {
		if value, ok := LookupInput(name); ok {
			b, err := strconv.ParseBool(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("input %q: %w", name, err))
				continue
			}
			*target = b
		}
	}

	durationInputs := map[string]*time.Duration{
		"push-timeout": &c.PushTimeout,
		"wait-timeout": &c.Wait.Timeout,
	}
	for name, target := range durationInputs {
		if value, ok := LookupInput(name); ok {
			d, err := ParseDuration(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("input %q: %w", name, err))
				continue
			}
			*target = d
		}
	}

	if value, ok := LookupInput("push-retries"); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("input %q: %w", "push-retries", err))
		} else {
			c.PushRetries = i
		}
	}

	if c.Tag.Token == "" {
		c.Tag.Token = os.Getenv(githubTokenEnvVar)
	}

	if os.Getenv(runnerDebugEnvVar) == "1" {
		c.LogLevel = "debug"
	}

	return kerrors.NewAggregate(errs)
}

// Validate checks the configuration for values that would fail later in the run
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, fmt.Errorf("root directory must not be empty"))
	}

	if !c.DryRun && len(c.Repositories) == 0 {
		errs = append(errs, fmt.Errorf("at least one repository is required unless running in dry-run mode"))
	}

	if len(c.ProjectPatterns) == 0 && len(c.Projects) == 0 {
		errs = append(errs, fmt.Errorf("either projects or a project pattern is required"))
	}

	for _, pattern := range append(append([]string{}, c.ProjectPatterns...), c.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid pattern %q", pattern))
		}
	}

	if c.Version != "" {
		if err := nuget.ValidateVersion(c.Version); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Tag.Enabled && !strings.Contains(c.Tag.Format, "*") {
		errs = append(errs, fmt.Errorf("tag format %q must contain a '*' placeholder for the version", c.Tag.Format))
	}

	if c.PushRetries < 0 {
		errs = append(errs, fmt.Errorf("push retries must not be negative, got %d", c.PushRetries))
	}

	if c.PushTimeout < 0 || c.Wait.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeouts must not be negative"))
	}

	if strings.TrimSpace(c.Configuration) == "" {
		errs = append(errs, fmt.Errorf("build configuration must not be empty"))
	}

	return kerrors.NewAggregate(errs)
}

// ParseDuration accepts Go duration strings as well as a plain number of seconds
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if i, err := strconv.Atoi(value); err == nil {
		return time.Duration(i) * time.Second, nil
	}

	return time.ParseDuration(value)
}
