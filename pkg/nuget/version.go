// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package nuget

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// PackageExtension is the file extension of NuGet packages
	PackageExtension = ".nupkg"
	// SymbolPackageExtension is the file extension of NuGet symbol packages
	SymbolPackageExtension = ".snupkg"

	legacySymbolSuffix = ".symbols"
)

// legacyVersionRegEx matches the four part System.Version style that NuGet still accepts
var legacyVersionRegEx = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// PackageFile is a package file name split into its parts
type PackageFile struct {
	Path    string
	ID      string
	Version string
	Symbols bool
}

// Name returns the package identity in the form <id>.<version>
func (p PackageFile) Name() string {
	return p.ID + "." + p.Version
}

// ValidateVersion checks that a version string is accepted by NuGet, which
// is SemVer 2.0 (with optional minor and patch) or the legacy four part form
func ValidateVersion(version string) error {
	if version == "" || version[0] < '0' || version[0] > '9' {
		return fmt.Errorf("invalid package version %q: must start with a digit", version)
	}

	if legacyVersionRegEx.MatchString(version) {
		return nil
	}

	if _, err := semver.NewVersion(version); err != nil {
		return fmt.Errorf("invalid package version %q: %w", version, err)
	}

	return nil
}

// NormalizeVersion returns the version the way feeds list it: lower case,
// without build metadata, and without a zero fourth part
func NormalizeVersion(version string) string {
	version = strings.ToLower(strings.SplitN(version, "+", 2)[0])

	release, label, hasLabel := strings.Cut(version, "-")
	if parts := strings.Split(release, "."); len(parts) == 4 && parts[3] == "0" {
		release = strings.Join(parts[:3], ".")
	}

	if hasLabel {
		return release + "-" + label
	}

	return release
}

// IsPackageFile reports whether the path names a package or symbol package
func IsPackageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == PackageExtension || ext == SymbolPackageExtension
}

// ParsePackageFileName splits a package file name of the form <id>.<version>.nupkg.
// Package ids may contain dots and digits, the version is the left-most suffix
// that is a valid version.
func ParsePackageFileName(path string) (PackageFile, error) {
	name := filepath.Base(path)
	result := PackageFile{Path: path}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case SymbolPackageExtension:
		result.Symbols = true
		name = strings.TrimSuffix(name, name[len(name)-len(ext):])

	case PackageExtension:
		name = strings.TrimSuffix(name, name[len(name)-len(ext):])
		if strings.HasSuffix(strings.ToLower(name), legacySymbolSuffix) {
			result.Symbols = true
			name = name[:len(name)-len(legacySymbolSuffix)]
		}

	default:
		return result, fmt.Errorf("%s is not a package file", path)
	}

	parts := strings.Split(name, ".")
	for i := 1; i < len(parts); i++ {
		candidate := strings.Join(parts[i:], ".")
		if ValidateVersion(candidate) == nil {
			result.ID = strings.Join(parts[:i], ".")
			result.Version = candidate
			return result, nil
		}
	}

	return result, fmt.Errorf("failed to determine the version of package file %s", path)
}
