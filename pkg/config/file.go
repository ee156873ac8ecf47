// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"

	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"
)

// fileConfig is the on-disk representation, unset fields keep the current value
type fileConfig struct {
	Root            *string  `json:"root,omitempty"`
	Projects        []string `json:"projects,omitempty"`
	ProjectPatterns []string `json:"projectPatterns,omitempty"`
	Excludes        []string `json:"exclude,omitempty"`

	Repositories          []string `json:"repositories,omitempty"`
	APIKeyEnv             *string  `json:"apiKeyEnv,omitempty"`
	TrustedPublishingUser *string  `json:"trustedPublishingUser,omitempty"`

	Configuration  *string  `json:"configuration,omitempty"`
	Output         *string  `json:"output,omitempty"`
	Version        *string  `json:"version,omitempty"`
	VersionSuffix  *string  `json:"versionSuffix,omitempty"`
	IncludeSymbols *bool    `json:"includeSymbols,omitempty"`
	SkipDuplicate  *bool    `json:"skipDuplicate,omitempty"`
	NoBuild        *bool    `json:"noBuild,omitempty"`
	PackArgs       []string `json:"packArgs,omitempty"`
	PushArgs       []string `json:"pushArgs,omitempty"`

	DryRun      *bool   `json:"dryRun,omitempty"`
	FailOnError *bool   `json:"failOnError,omitempty"`
	PushRetries *int    `json:"pushRetries,omitempty"`
	PushTimeout *string `json:"pushTimeout,omitempty"`
	CheckFeeds  *bool   `json:"checkFeeds,omitempty"`

	Tag *struct {
		Enabled *bool   `json:"enabled,omitempty"`
		Format  *string `json:"format,omitempty"`
		Push    *bool   `json:"push,omitempty"`
	} `json:"tag,omitempty"`

	Wait *struct {
		Enabled *bool   `json:"enabled,omitempty"`
		Timeout *string `json:"timeout,omitempty"`
	} `json:"wait,omitempty"`

	Metrics *struct {
		File           *string `json:"file,omitempty"`
		PushgatewayURL *string `json:"pushgatewayURL,omitempty"`
	} `json:"metrics,omitempty"`
}

// LoadFile overlays the settings of a YAML configuration file onto the configuration.
// Credentials are not part of the file format.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	c.Root = ptr.Deref(fc.Root, c.Root)
	c.APIKeyEnv = ptr.Deref(fc.APIKeyEnv, c.APIKeyEnv)
	c.TrustedPublishingUser = ptr.Deref(fc.TrustedPublishingUser, c.TrustedPublishingUser)
	c.Configuration = ptr.Deref(fc.Configuration, c.Configuration)
	c.Output = ptr.Deref(fc.Output, c.Output)
	c.Version = ptr.Deref(fc.Version, c.Version)
	c.VersionSuffix = ptr.Deref(fc.VersionSuffix, c.VersionSuffix)
	c.IncludeSymbols = ptr.Deref(fc.IncludeSymbols, c.IncludeSymbols)
	c.SkipDuplicate = ptr.Deref(fc.SkipDuplicate, c.SkipDuplicate)
	c.NoBuild = ptr.Deref(fc.NoBuild, c.NoBuild)
	c.DryRun = ptr.Deref(fc.DryRun, c.DryRun)
	c.FailOnError = ptr.Deref(fc.FailOnError, c.FailOnError)
	c.PushRetries = ptr.Deref(fc.PushRetries, c.PushRetries)
	c.CheckFeeds = ptr.Deref(fc.CheckFeeds, c.CheckFeeds)

	overlayList(&c.Projects, fc.Projects)
	overlayList(&c.ProjectPatterns, fc.ProjectPatterns)
	overlayList(&c.Excludes, fc.Excludes)
	overlayList(&c.Repositories, fc.Repositories)
	overlayList(&c.PackArgs, fc.PackArgs)
	overlayList(&c.PushArgs, fc.PushArgs)

	if fc.PushTimeout != nil {
		if c.PushTimeout, err = ParseDuration(*fc.PushTimeout); err != nil {
			return fmt.Errorf("invalid pushTimeout in %s: %w", path, err)
		}
	}

	if fc.Tag != nil {
		c.Tag.Enabled = ptr.Deref(fc.Tag.Enabled, c.Tag.Enabled)
		c.Tag.Format = ptr.Deref(fc.Tag.Format, c.Tag.Format)
		c.Tag.Push = ptr.Deref(fc.Tag.Push, c.Tag.Push)
	}

	if fc.Wait != nil {
		c.Wait.Enabled = ptr.Deref(fc.Wait.Enabled, c.Wait.Enabled)
		if fc.Wait.Timeout != nil {
			if c.Wait.Timeout, err = ParseDuration(*fc.Wait.Timeout); err != nil {
				return fmt.Errorf("invalid wait timeout in %s: %w", path, err)
			}
		}
	}

	if fc.Metrics != nil {
		c.Metrics.File = ptr.Deref(fc.Metrics.File, c.Metrics.File)
		c.Metrics.PushgatewayURL = ptr.Deref(fc.Metrics.PushgatewayURL, c.Metrics.PushgatewayURL)
	}

	return nil
}

func overlayList(target *[]string, value []string) {
	if len(value) > 0 {
		*target = value
	}
}
