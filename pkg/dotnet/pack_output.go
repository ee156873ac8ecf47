// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package dotnet

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

var createdPackageRegEx = regexp.MustCompile(`Successfully created package '([^']+\.s?nupkg)'`)

// ParsePackOutput returns the package files `dotnet pack` reports as created, in output order
func ParsePackOutput(output string) []string {
	var result []string
	var seen = map[string]struct{}{}

	for _, match := range createdPackageRegEx.FindAllStringSubmatch(output, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		result = append(result, match[1])
	}

	return result
}

// PackageSnapshot records the package files of a directory with their modification times
type PackageSnapshot map[string]int64

// SnapshotPackages lists the package files of a directory, a missing directory is an empty snapshot
func SnapshotPackages(dir string) PackageSnapshot {
	snapshot := PackageSnapshot{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return snapshot
	}

	for _, e := range entries {
		if e.IsDir() || !nuget.IsPackageFile(e.Name()) {
			continue
		}

		if info, err := e.Info(); err == nil {
			snapshot[filepath.Join(dir, e.Name())] = info.ModTime().UnixNano()
		}
	}

	return snapshot
}

// Changed returns the package files of the current snapshot that are new or modified, sorted by name
func (s PackageSnapshot) Changed(current PackageSnapshot) []string {
	var result []string
	for path, modTime := range current {
		if before, ok := s[path]; !ok || before != modTime {
			result = append(result, path)
		}
	}

	sort.Strings(result)
	return result
}
