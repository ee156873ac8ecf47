// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shipwright-io/nuget-publish/pkg/action"
	"github.com/shipwright-io/nuget-publish/pkg/auth"
	"github.com/shipwright-io/nuget-publish/pkg/config"
	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
	"github.com/shipwright-io/nuget-publish/pkg/discovery"
	"github.com/shipwright-io/nuget-publish/pkg/dotnet"
	"github.com/shipwright-io/nuget-publish/pkg/metrics"
	"github.com/shipwright-io/nuget-publish/pkg/nuget"
	"github.com/shipwright-io/nuget-publish/pkg/util"
)

// ErrFeedUnreachable is returned when the pre-flight connection check of a feed fails
var ErrFeedUnreachable = errors.New("feed unreachable")

// FeedClient waits for pushed packages to be listed on a feed
type FeedClient interface {
	WaitForPackage(ctx context.Context, source string, id string, version string, timeout time.Duration) error
}

// Tagger creates and pushes git tags
type Tagger interface {
	CreateTag(name string, message string) (bool, error)
	PushTags(ctx context.Context, names []string, token string) error
}

// Publisher packs projects and pushes the resulting packages
type Publisher struct {
	Config     *config.Config
	Runner     dotnet.Runner
	Credential auth.Credential
	Projects   []discovery.Project

	// Commands receives workflow commands for log groups and annotations
	Commands *action.Commands

	// Metrics, Feed and Tagger are optional
	Metrics *metrics.Metrics
	Feed    FeedClient
	Tagger  Tagger

	// RetryInterval is the initial interval between attempts of a transient push failure
	RetryInterval time.Duration
}

// NewPublisher returns a publisher with workflow commands written to stdout
func NewPublisher(cfg *config.Config, runner dotnet.Runner, credential auth.Credential, projects []discovery.Project) *Publisher {
	return &Publisher{
		Config:        cfg,
		Runner:        runner,
		Credential:    credential,
		Projects:      projects,
		Commands:      action.NewCommands(os.Stdout),
		RetryInterval: 2 * time.Second,
	}
}

func (p *Publisher) commands() *action.Commands {
	if p.Commands == nil {
		p.Commands = action.NewCommands(io.Discard)
	}

	return p.Commands
}

// Run packs all projects one after the other and pushes every package to every
// repository. Failures of single projects or pushes are recorded in the report,
// the returned error is reserved for failures that prevent the run as a whole.
func (p *Publisher) Run(ctx context.Context) (*Report, error) {
	report := &Report{DryRun: p.Config.DryRun, SkipDuplicate: p.Config.SkipDuplicate}

	if p.Config.CheckFeeds && !p.Config.DryRun {
		if err := p.checkFeeds(ctx); err != nil {
			return report, err
		}
	}

	if err := os.MkdirAll(p.Config.Output, 0755); err != nil {
		return report, fmt.Errorf("failed to create output directory %s: %w", p.Config.Output, err)
	}

	for _, project := range p.Projects {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := p.pack(ctx, project)
		report.Packs = append(report.Packs, result)

		if result.Err != nil || p.Config.DryRun {
			continue
		}

		for _, pkg := range result.Packages {
			// symbol packages are pushed by the client together with their package
			if pkg.Symbols {
				continue
			}

			for _, repository := range p.Config.Repositories {
				if err := ctx.Err(); err != nil {
					return report, err
				}

				report.Outcomes = append(report.Outcomes, p.push(ctx, project, pkg, repository))
			}
		}
	}

	if p.Config.DryRun {
		for _, pkg := range report.packages(false) {
			ctxlog.Info(ctx, "dry-run, not pushing", "package", filepath.Base(pkg.Path), "repositories", p.Config.Repositories)
		}
	}

	if p.Config.Wait.Enabled && !p.Config.DryRun {
		p.waitForIndex(ctx, report)
	}

	if p.Config.Tag.Enabled && !p.Config.DryRun {
		report.Tags, report.TagErr = p.tag(ctx, report)
	}

	if p.Metrics != nil {
		if err := p.Metrics.Export(ctx, p.Config.Metrics); err != nil {
			ctxlog.Error(ctx, err, "failed to export metrics")
			p.commands().Warning("", err.Error())
		}
	}

	return report, nil
}

func (p *Publisher) checkFeeds(ctx context.Context) error {
	for _, repository := range p.Config.Repositories {
		if !nuget.IsURL(repository) {
			continue
		}

		host, port, err := util.ExtractHostnamePort(repository)
		if err != nil {
			return err
		}

		if !util.TestConnection(host, port, 1) {
			return fmt.Errorf("%w: cannot connect to %s:%d of %s", ErrFeedUnreachable, host, port, repository)
		}

		ctxlog.Debug(ctx, "feed is reachable", "repository", repository)
	}

	return nil
}

func (p *Publisher) pack(ctx context.Context, project discovery.Project) PackResult {
	ctx = ctxlog.NewContext(ctx, "pack")
	start := time.Now()
	result := PackResult{Project: project}

	p.commands().Group("Pack " + project.RelPath)
	defer p.commands().EndGroup()

	before := dotnet.SnapshotPackages(p.Config.Output)

	out, err := p.Runner.Run(ctx, "", dotnet.PackArgs(project.Path, dotnet.PackOptions{
		Configuration:  p.Config.Configuration,
		Output:         p.Config.Output,
		Version:        p.Config.Version,
		VersionSuffix:  p.Config.VersionSuffix,
		IncludeSymbols: p.Config.IncludeSymbols,
		NoBuild:        p.Config.NoBuild,
		ExtraArgs:      p.Config.PackArgs,
	})...)
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = fmt.Errorf("failed to pack %s: %w", project.RelPath, err)
		p.packFailed(ctx, project, result.Err)
		return result
	}

	files := dotnet.ParsePackOutput(out)
	if len(files) == 0 {
		files = before.Changed(dotnet.SnapshotPackages(p.Config.Output))
	}

	if len(files) == 0 {
		result.Err = fmt.Errorf("packing %s did not produce a package", project.RelPath)
		p.packFailed(ctx, project, result.Err)
		return result
	}

	for _, file := range files {
		result.Packages = append(result.Packages, packageFile(project, file))
	}

	if p.Metrics != nil {
		p.Metrics.PackCountInc(metrics.PackSucceeded)
	}

	ctxlog.Info(ctx, "packed project", "project", project.RelPath, "packages", len(result.Packages), "duration", result.Duration.String())
	return result
}

func (p *Publisher) packFailed(ctx context.Context, project discovery.Project, err error) {
	ctxlog.Error(ctx, err, "pack failed", "project", project.RelPath)
	p.commands().Error(project.RelPath, err.Error())

	if p.Metrics != nil {
		p.Metrics.PackCountInc(metrics.PackFailed)
	}
}

// packageFile splits the file name, when that is not possible the project supplies the id
func packageFile(project discovery.Project, file string) nuget.PackageFile {
	if parsed, err := nuget.ParsePackageFileName(file); err == nil {
		return parsed
	}

	return nuget.PackageFile{
		Path:    file,
		ID:      project.DisplayName(),
		Version: project.Version,
		Symbols: filepath.Ext(file) == nuget.SymbolPackageExtension,
	}
}
