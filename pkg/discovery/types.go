// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package discovery

// Project is a .NET project file that is packed into a NuGet package
type Project struct {
	// Path is the path of the project file
	Path string

	// RelPath is the path relative to the discovery root, using forward slashes
	RelPath string

	// Name is the file name without extension
	Name string

	// PackageID is the PackageId property, if the project sets one
	PackageID string

	// Version is the PackageVersion or Version property, if the project sets one
	Version string

	// Packable reports whether the project content passed the packable test
	Packable bool
}

// DisplayName returns the package id if known, the project name otherwise
func (p Project) DisplayName() string {
	if p.PackageID != "" {
		return p.PackageID
	}

	return p.Name
}

// Options control where and how projects are found
type Options struct {
	// Root is the directory discovery starts from, explicit entries are relative to it
	Root string

	// Projects are explicit project files, directories or glob patterns
	Projects []string

	// Patterns are the doublestar patterns project files have to match
	Patterns []string

	// Excludes are doublestar patterns of paths to skip
	Excludes []string
}
