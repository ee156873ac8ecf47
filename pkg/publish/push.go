// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
	"github.com/shipwright-io/nuget-publish/pkg/discovery"
	"github.com/shipwright-io/nuget-publish/pkg/dotnet"
	"github.com/shipwright-io/nuget-publish/pkg/git"
	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

// errTransient marks an attempt that is worth retrying
var errTransient = errors.New("transient push failure")

func (p *Publisher) push(ctx context.Context, project discovery.Project, pkg nuget.PackageFile, repository string) Outcome {
	ctx = ctxlog.NewContext(ctx, "push")
	start := time.Now()
	outcome := Outcome{
		Project:    project,
		Package:    pkg,
		Repository: repository,
	}

	args := dotnet.PushArgs(pkg.Path, dotnet.PushOptions{
		Source:         repository,
		APIKey:         p.Credential.APIKey,
		SkipDuplicate:  p.Config.SkipDuplicate,
		IncludeSymbols: p.Config.IncludeSymbols,
		Timeout:        p.Config.PushTimeout,
		ExtraArgs:      p.Config.PushArgs,
	})

	p.commands().Group(fmt.Sprintf("Push %s to %s", filepath.Base(pkg.Path), repository))
	defer p.commands().EndGroup()

	var result nuget.PushResult
	operation := func() error {
		outcome.Attempts++

		out, err := p.Runner.Run(ctx, "", args...)

		var toolErr *dotnet.ToolError
		if err != nil && !errors.As(err, &toolErr) {
			// the tool could not be started at all
			result = nuget.PushResult{Class: nuget.Failed, Message: err.Error()}
			return backoff.Permanent(err)
		}

		result = nuget.ClassifyPush(out, err == nil)
		if result.Class == nuget.Transient {
			return fmt.Errorf("%w: %s", errTransient, result.Message)
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		ctxlog.Info(ctx, "retrying push", "package", filepath.Base(pkg.Path), "repository", repository, "attempt", outcome.Attempts, "wait", wait.String(), "reason", err.Error())
	}

	if err := backoff.RetryNotify(operation, p.retryPolicy(ctx), notify); err != nil {
		ctxlog.Debug(ctx, "push gave up", "package", filepath.Base(pkg.Path), "attempts", outcome.Attempts, "error", err.Error())
	}

	outcome.Class = result.Class
	outcome.Message = result.Message
	outcome.Duration = time.Since(start)
	outcome.Failed = result.IsFailure() || (result.Class == nuget.Duplicate && !p.Config.SkipDuplicate)

	if p.Metrics != nil {
		p.Metrics.PushObserve(repository, outcome.Class.String(), outcome.Duration)
	}

	switch {
	case outcome.Failed:
		err := fmt.Errorf("push of %s to %s failed: %s", filepath.Base(pkg.Path), repository, outcome.Message)
		ctxlog.Error(ctx, err, "push failed", "class", outcome.Class.String())
		p.commands().Error(project.RelPath, err.Error())

	case outcome.Class == nuget.Duplicate:
		ctxlog.Info(ctx, "package already exists, skipped", "package", filepath.Base(pkg.Path), "repository", repository)
		p.commands().Warning(project.RelPath, fmt.Sprintf("%s already exists on %s and was skipped", pkg.Name(), repository))

	default:
		ctxlog.Info(ctx, "package pushed", "package", filepath.Base(pkg.Path), "repository", repository, "duration", outcome.Duration.String())
	}

	return outcome
}

func (p *Publisher) retryPolicy(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	if p.RetryInterval > 0 {
		exponential.InitialInterval = p.RetryInterval
	}

	retries := p.Config.PushRetries
	if retries < 0 {
		retries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(retries)), ctx)
}

func (p *Publisher) waitForIndex(ctx context.Context, report *Report) {
	ctx = ctxlog.NewContext(ctx, "wait")
	feed := p.Feed
	if feed == nil {
		feed = nuget.NewClient("nuget-publish", p.Credential.APIKey)
	}

	for _, outcome := range report.Outcomes {
		if outcome.Class != nuget.Pushed || !nuget.IsURL(outcome.Repository) {
			continue
		}

		ctxlog.Info(ctx, "waiting for package to be listed", "package", outcome.Package.Name(), "repository", outcome.Repository)
		if err := feed.WaitForPackage(ctx, outcome.Repository, outcome.Package.ID, outcome.Package.Version, p.Config.Wait.Timeout); err != nil {
			ctxlog.Error(ctx, err, "package not listed", "package", outcome.Package.Name())
			p.commands().Warning(outcome.Project.RelPath, err.Error())
			report.Warnings = append(report.Warnings, err.Error())
		}
	}
}

func (p *Publisher) tag(ctx context.Context, report *Report) ([]string, error) {
	ctx = ctxlog.NewContext(ctx, "tag")
	if p.Tagger == nil {
		return nil, fmt.Errorf("tagging is enabled, but no git repository is available")
	}

	var created []string
	seen := map[string]struct{}{}

	for _, outcome := range report.Outcomes {
		if outcome.Class != nuget.Pushed || outcome.Package.Version == "" {
			continue
		}

		name := git.TagName(p.Config.Tag.Format, outcome.Package.Version)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		ok, err := p.Tagger.CreateTag(name, fmt.Sprintf("%s %s", outcome.Package.ID, outcome.Package.Version))
		if err != nil {
			return created, err
		}

		if !ok {
			ctxlog.Info(ctx, "tag already exists", "tag", name)
			continue
		}

		ctxlog.Info(ctx, "created tag", "tag", name)
		created = append(created, name)
	}

	if p.Config.Tag.Push && len(created) > 0 {
		if err := p.Tagger.PushTags(ctx, created, p.Config.Tag.Token); err != nil {
			return created, err
		}
	}

	return created, nil
}
