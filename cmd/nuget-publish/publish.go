// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shipwright-io/nuget-publish/pkg/action"
	"github.com/shipwright-io/nuget-publish/pkg/auth"
	"github.com/shipwright-io/nuget-publish/pkg/config"
	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
	"github.com/shipwright-io/nuget-publish/pkg/discovery"
	"github.com/shipwright-io/nuget-publish/pkg/dotnet"
	"github.com/shipwright-io/nuget-publish/pkg/git"
	"github.com/shipwright-io/nuget-publish/pkg/metrics"
	"github.com/shipwright-io/nuget-publish/pkg/publish"
	"github.com/shipwright-io/nuget-publish/pkg/util"
)

const configFileInput = "config-file"

// loadConfig layers defaults, configuration file, inputs and flags, and sets up the logger
func loadConfig(cmd *cobra.Command, s *settings) (context.Context, *config.Config, error) {
	cfg := config.NewDefaultConfig()

	configFile := s.configFile
	if configFile == "" {
		configFile, _ = config.LookupInput(configFileInput)
	}

	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return nil, nil, &ExitError{Code: ExitCodeInvalidInput, Message: "invalid configuration file", Cause: err}
		}
	}

	if err := cfg.SetConfigFromEnv(); err != nil {
		return nil, nil, &ExitError{Code: ExitCodeInvalidInput, Message: "invalid input", Cause: err}
	}

	applyFlags(cmd.Flags(), s, cfg)

	logger, err := ctxlog.NewLogger("nuget-publish", cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, &ExitError{Code: ExitCodeInvalidInput, Message: "invalid log level", Cause: err}
	}

	return ctxlog.WithLogger(cmd.Context(), logger), cfg, nil
}

func discoveryOptions(cfg *config.Config) discovery.Options {
	return discovery.Options{
		Root:     cfg.Root,
		Projects: cfg.Projects,
		Patterns: cfg.ProjectPatterns,
		Excludes: cfg.Excludes,
	}
}

func findProjects(ctx context.Context, cfg *config.Config) ([]discovery.Project, error) {
	projects, err := discovery.Find(ctx, discoveryOptions(cfg))
	if err != nil {
		return nil, &ExitError{Code: ExitCodeInvalidInput, Message: "failed to find projects", Cause: err}
	}

	if len(projects) == 0 {
		return nil, &ExitError{Code: ExitCodeNoProjects, Message: fmt.Sprintf("no packable projects found in %s", cfg.Root)}
	}

	return projects, nil
}

func runDiscover(cmd *cobra.Command, s *settings) error {
	ctx, cfg, err := loadConfig(cmd, s)
	if err != nil {
		return err
	}

	projects, err := findProjects(ctx, cfg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Project", "Package ID", "Version"})
	for _, project := range projects {
		t.AppendRow(table.Row{project.RelPath, project.DisplayName(), project.Version})
	}

	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Render()

	return nil
}

func runPublish(cmd *cobra.Command, s *settings) error {
	ctx, cfg, err := loadConfig(cmd, s)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: ExitCodeInvalidInput, Message: "invalid configuration", Cause: err}
	}

	runner := &dotnet.ExecRunner{}

	// pre-req checks
	if !s.skipValidation {
		if _, err := dotnet.CheckEnvironment(ctx, runner); err != nil {
			return &ExitError{Code: ExitCodeToolMissing, Message: "the .NET SDK is not available", Cause: err}
		}
	}

	projects, err := findProjects(ctx, cfg)
	if err != nil {
		return err
	}

	for _, project := range projects {
		ctxlog.Info(ctx, "found project", "project", project.RelPath, "package", project.DisplayName())
	}

	credential, err := auth.ResolveAPIKey(ctx, cfg)
	if err != nil {
		return &ExitError{Code: ExitCodeNoCredentials, Message: "no credentials", Cause: err}
	}

	runner.Secrets = []string{credential.APIKey}

	publisher := publish.NewPublisher(cfg, runner, credential, projects)
	publisher.Commands = action.NewCommands(cmd.OutOrStdout())

	if cfg.Metrics.File != "" || cfg.Metrics.PushgatewayURL != "" {
		publisher.Metrics = metrics.New()
	}

	if cfg.Tag.Enabled && !cfg.DryRun {
		repo, err := git.Open(cfg.Root)
		if err != nil {
			return &ExitError{Code: ExitCodeTagFailed, Message: "tagging is enabled", Cause: err}
		}

		publisher.Tagger = repo
	}

	report, runErr := publisher.Run(ctx)

	// outputs are written for partial runs as well
	if err := writeResults(ctx, cmd, cfg, report); err != nil {
		return err
	}

	if runErr != nil {
		if errors.Is(runErr, publish.ErrFeedUnreachable) {
			return &ExitError{Code: ExitCodePushFailed, Message: "feed check failed", Cause: runErr}
		}

		return runErr
	}

	return exitError(ctx, cfg, report)
}

func writeResults(ctx context.Context, cmd *cobra.Command, cfg *config.Config, report *publish.Report) error {
	if report == nil {
		return nil
	}

	report.Print(cmd.OutOrStdout())

	if err := util.PrintPackages(cmd.OutOrStdout(), cfg.Output); err != nil {
		ctxlog.Error(ctx, err, "failed to list packages", "output", cfg.Output)
	}

	if err := action.SetOutputs(ctx, report.Outputs()); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	if err := action.AppendSummary(ctx, report.Markdown()); err != nil {
		ctxlog.Error(ctx, err, "failed to write the step summary")
	}

	return nil
}

func exitError(ctx context.Context, cfg *config.Config, report *publish.Report) error {
	if !report.HasFailures() {
		return nil
	}

	if !cfg.FailOnError {
		ctxlog.Info(ctx, "publishing finished with failures, ignored because fail-on-error is disabled", "failures", report.Err().Error())
		return nil
	}

	switch {
	case report.HasPackFailures():
		return &ExitError{Code: ExitCodePackFailed, Message: "failed to pack", Cause: report.Err()}

	case report.HasPushFailures():
		return &ExitError{Code: ExitCodePushFailed, Message: "failed to push", Cause: report.Err()}

	default:
		return &ExitError{Code: ExitCodeTagFailed, Message: "failed to tag", Cause: report.Err()}
	}
}
