// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	kerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/shipwright-io/nuget-publish/pkg/discovery"
	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

// Output names
const (
	OutputProjects = "projects"
	OutputPackages = "packages"
	OutputSymbols  = "symbols"
	OutputPushed   = "pushed"
	OutputSkipped  = "skipped"
	OutputFailed   = "failed"
	OutputTags     = "tags"
)

// PackResult is the result of packing one project
type PackResult struct {
	Project  discovery.Project
	Packages []nuget.PackageFile
	Duration time.Duration
	Err      error
}

// Outcome is the result of pushing one package to one repository
type Outcome struct {
	Project    discovery.Project
	Package    nuget.PackageFile
	Repository string
	Class      nuget.PushClass
	Message    string
	Attempts   int
	Duration   time.Duration

	// Failed is set for failure classes, and for duplicates when duplicates are not skipped
	Failed bool
}

// Report collects the results of a publish run
type Report struct {
	DryRun        bool
	SkipDuplicate bool

	Packs    []PackResult
	Outcomes []Outcome
	Tags     []string
	TagErr   error
	Warnings []string
}

// HasPackFailures returns whether at least one project failed to pack
func (r *Report) HasPackFailures() bool {
	for _, pack := range r.Packs {
		if pack.Err != nil {
			return true
		}
	}

	return false
}

// HasPushFailures returns whether at least one push failed
func (r *Report) HasPushFailures() bool {
	for _, outcome := range r.Outcomes {
		if outcome.Failed {
			return true
		}
	}

	return false
}

// HasFailures returns whether anything in the run failed
func (r *Report) HasFailures() bool {
	return r.HasPackFailures() || r.HasPushFailures() || r.TagErr != nil
}

// Err aggregates all failures of the run
func (r *Report) Err() error {
	var errs []error
	for _, pack := range r.Packs {
		if pack.Err != nil {
			errs = append(errs, pack.Err)
		}
	}

	for _, outcome := range r.Outcomes {
		if outcome.Failed {
			errs = append(errs, fmt.Errorf("push of %s to %s failed (%s): %s", filepath.Base(outcome.Package.Path), outcome.Repository, outcome.Class, outcome.Message))
		}
	}

	if r.TagErr != nil {
		errs = append(errs, r.TagErr)
	}

	return kerrors.NewAggregate(errs)
}

// Projects returns the relative paths of the successfully packed projects
func (r *Report) Projects() []string {
	var list uniqueList
	for _, pack := range r.Packs {
		if pack.Err == nil {
			list.add(pack.Project.RelPath)
		}
	}

	return list.items
}

// Packages returns the file names of the created packages
func (r *Report) Packages() []string {
	return fileNames(r.packages(false))
}

// Symbols returns the file names of the created symbol packages
func (r *Report) Symbols() []string {
	return fileNames(r.packages(true))
}

// Pushed returns the file names of the packages at least one repository accepted
func (r *Report) Pushed() []string {
	return r.outcomeFiles(func(o Outcome) bool { return o.Class == nuget.Pushed })
}

// Skipped returns the file names of the packages a repository already had
func (r *Report) Skipped() []string {
	return r.outcomeFiles(func(o Outcome) bool { return o.Class == nuget.Duplicate && !o.Failed })
}

// Failed returns the projects that failed to pack followed by the packages that failed to push
func (r *Report) Failed() []string {
	var list uniqueList
	for _, pack := range r.Packs {
		if pack.Err != nil {
			list.add(pack.Project.RelPath)
		}
	}

	for _, name := range r.outcomeFiles(func(o Outcome) bool { return o.Failed }) {
		list.add(name)
	}

	return list.items
}

// Outputs returns the step outputs, every value is a comma-joined list
func (r *Report) Outputs() map[string]string {
	return map[string]string{
		OutputProjects: strings.Join(r.Projects(), ","),
		OutputPackages: strings.Join(r.Packages(), ","),
		OutputSymbols:  strings.Join(r.Symbols(), ","),
		OutputPushed:   strings.Join(r.Pushed(), ","),
		OutputSkipped:  strings.Join(r.Skipped(), ","),
		OutputFailed:   strings.Join(r.Failed(), ","),
		OutputTags:     strings.Join(r.Tags, ","),
	}
}

func (r *Report) packages(symbols bool) []nuget.PackageFile {
	var result []nuget.PackageFile
	for _, pack := range r.Packs {
		for _, pkg := range pack.Packages {
			if pkg.Symbols == symbols {
				result = append(result, pkg)
			}
		}
	}

	return result
}

func (r *Report) outcomeFiles(filter func(Outcome) bool) []string {
	var list uniqueList
	for _, outcome := range r.Outcomes {
		if filter(outcome) {
			list.add(filepath.Base(outcome.Package.Path))
		}
	}

	return list.items
}

func fileNames(files []nuget.PackageFile) []string {
	var list uniqueList
	for _, file := range files {
		list.add(filepath.Base(file.Path))
	}

	return list.items
}

// uniqueList keeps the insertion order and drops repeated values
type uniqueList struct {
	items []string
	seen  map[string]struct{}
}

func (l *uniqueList) add(item string) {
	if l.seen == nil {
		l.seen = map[string]struct{}{}
	}

	if _, ok := l.seen[item]; ok || item == "" {
		return
	}

	l.seen[item] = struct{}{}
	l.items = append(l.items, item)
}
