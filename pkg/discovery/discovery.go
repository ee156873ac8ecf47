// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

var (
	isPackableTrueRegEx  = regexp.MustCompile(`(?i)<IsPackable>\s*true\s*</IsPackable>`)
	isPackableFalseRegEx = regexp.MustCompile(`(?i)<IsPackable>\s*false\s*</IsPackable>`)
	packageIDRegEx       = regexp.MustCompile(`(?i)<PackageId>\s*([^<]*?)\s*</PackageId>`)
	packageVersionRegEx  = regexp.MustCompile(`(?i)<PackageVersion>\s*([^<]*?)\s*</PackageVersion>`)
	versionRegEx         = regexp.MustCompile(`(?i)<Version>\s*([^<]*?)\s*</Version>`)
)

// IsPackable tests the content of a project file: it is packable when it sets
// IsPackable to true or declares a PackageId, unless IsPackable is false
func IsPackable(content []byte) bool {
	if isPackableFalseRegEx.Match(content) {
		return false
	}

	return isPackableTrueRegEx.Match(content) || packageIDRegEx.Match(content)
}

// Find returns the projects to pack, sorted by their relative path segment by segment
// so that src/Lib comes before src/Lib.Extensions
func Find(ctx context.Context, opts Options) ([]Project, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	var paths []string
	if len(opts.Projects) > 0 {
		paths, err = resolveExplicit(ctx, root, opts)
	} else {
		paths, err = walk(ctx, root, opts)
	}

	if err != nil {
		return nil, err
	}

	var seen = map[string]struct{}{}
	var projects []Project
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		project, err := LoadProject(root, p)
		if err != nil {
			return nil, err
		}

		if len(opts.Projects) == 0 && !project.Packable {
			ctxlog.Debug(ctx, "skipping project that is not packable", "project", project.RelPath)
			continue
		}

		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		return slices.Compare(strings.Split(projects[i].RelPath, "/"), strings.Split(projects[j].RelPath, "/")) < 0
	})

	return projects, nil
}

// LoadProject reads a project file and extracts its package properties
func LoadProject(root string, projectPath string) (Project, error) {
	content, err := os.ReadFile(projectPath)
	if err != nil {
		return Project{}, fmt.Errorf("failed to read project %s: %w", projectPath, err)
	}

	relPath, err := filepath.Rel(root, projectPath)
	if err != nil {
		relPath = projectPath
	}

	base := filepath.Base(projectPath)
	project := Project{
		Path:     projectPath,
		RelPath:  filepath.ToSlash(relPath),
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		Packable: IsPackable(content),
	}

	if match := packageIDRegEx.FindSubmatch(content); match != nil {
		project.PackageID = string(match[1])
	}

	for _, re := range []*regexp.Regexp{packageVersionRegEx, versionRegEx} {
		if match := re.FindSubmatch(content); match != nil {
			project.Version = string(match[1])
			break
		}
	}

	return project, nil
}

func walk(ctx context.Context, root string, opts Options) ([]string, error) {
	var result []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// skip directories we can't read
			ctxlog.Debug(ctx, "ignoring unreadable path", "path", p, "error", err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)
		if isExcluded(rel, opts.Excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if matchesAny(rel, opts.Patterns) {
			result = append(result, p)
		}

		return nil
	})

	return result, err
}

func resolveExplicit(ctx context.Context, root string, opts Options) ([]string, error) {
	var result []string

	for _, entry := range opts.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := entry
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, entry)
		}

		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			result = append(result, candidate)

		case err == nil && info.IsDir():
			project, err := projectInDirectory(candidate, opts.Patterns)
			if err != nil {
				return nil, err
			}
			result = append(result, project)

		default:
			matches, err := doublestar.Glob(os.DirFS(root), filepath.ToSlash(entry), doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid project pattern %q: %w", entry, err)
			}

			var found bool
			for _, match := range matches {
				if isExcluded(match, opts.Excludes) {
					continue
				}
				found = true
				result = append(result, filepath.Join(root, filepath.FromSlash(match)))
			}

			if !found {
				return nil, fmt.Errorf("project %q does not exist and matches no project file", entry)
			}
		}
	}

	return result, nil
}

// projectInDirectory returns the single project file of a directory
func projectInDirectory(dir string, patterns []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(path.Base(pattern), e.Name()); ok {
				names = append(names, e.Name())
				break
			}
		}
	}

	switch len(names) {
	case 0:
		return "", fmt.Errorf("directory %s contains no project file", dir)
	case 1:
		return filepath.Join(dir, names[0]), nil
	default:
		return "", fmt.Errorf("directory %s contains more than one project file: %s", dir, strings.Join(names, ", "))
	}
}

func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

func isExcluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}

		// directory patterns like **/bin/** also cover the directory itself
		if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
			return true
		}
	}

	return false
}
