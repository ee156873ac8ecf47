// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package dotnet

import (
	"fmt"
	"time"
)

// PackOptions are the settings of a `dotnet pack` invocation
type PackOptions struct {
	Configuration  string
	Output         string
	Version        string
	VersionSuffix  string
	IncludeSymbols bool
	NoBuild        bool
	ExtraArgs      []string
}

// PushOptions are the settings of a `dotnet nuget push` invocation
type PushOptions struct {
	Source         string
	APIKey         string
	SkipDuplicate  bool
	IncludeSymbols bool
	Timeout        time.Duration
	ExtraArgs      []string
}

// PackArgs builds the arguments to pack a project
func PackArgs(project string, opts PackOptions) []string {
	args := []string{"pack", project, "--nologo"}

	if opts.Configuration != "" {
		args = append(args, "--configuration", opts.Configuration)
	}

	if opts.Output != "" {
		args = append(args, "--output", opts.Output)
	}

	if opts.NoBuild {
		args = append(args, "--no-build")
	}

	if opts.IncludeSymbols {
		args = append(args, "--include-symbols", "-p:SymbolPackageFormat=snupkg")
	}

	if opts.Version != "" {
		args = append(args, fmt.Sprintf("-p:PackageVersion=%s", opts.Version))
	}

	if opts.VersionSuffix != "" {
		args = append(args, "--version-suffix", opts.VersionSuffix)
	}

	return append(args, opts.ExtraArgs...)
}

// PushArgs builds the arguments to push a package to one source
func PushArgs(pkg string, opts PushOptions) []string {
	args := []string{"nuget", "push", pkg, "--source", opts.Source}

	if opts.APIKey != "" {
		args = append(args, "--api-key", opts.APIKey)
	}

	if opts.SkipDuplicate {
		args = append(args, "--skip-duplicate")
	}

	if !opts.IncludeSymbols {
		args = append(args, "--no-symbols")
	}

	if opts.Timeout > 0 {
		args = append(args, "--timeout", fmt.Sprintf("%d", int(opts.Timeout.Seconds())))
	}

	return append(args, opts.ExtraArgs...)
}
