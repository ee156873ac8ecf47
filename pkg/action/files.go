// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sethvargo/go-githubactions"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

const (
	outputEnvVar  = "GITHUB_OUTPUT"
	summaryEnvVar = "GITHUB_STEP_SUMMARY"
)

// SetOutputs appends the outputs to the file named by GITHUB_OUTPUT, keys are
// written in sorted order. Outside of a GitHub runner the outputs are only logged.
func SetOutputs(ctx context.Context, outputs map[string]string) error {
	keys := make([]string, 0, len(outputs))
	for key := range outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ctxlog.Debug(ctx, "output", "name", key, "value", outputs[key])
	}

	path := os.Getenv(outputEnvVar)
	if path == "" {
		ctxlog.Info(ctx, "not running in a GitHub workflow, outputs are not written", "variable", outputEnvVar)
		return nil
	}

	if err := checkWritable(path); err != nil {
		return err
	}

	gha := githubactions.New()
	for _, key := range keys {
		gha.SetOutput(key, outputs[key])
	}

	return nil
}

// AppendSummary appends markdown to the job summary named by GITHUB_STEP_SUMMARY
func AppendSummary(ctx context.Context, markdown string) error {
	path := os.Getenv(summaryEnvVar)
	if path == "" {
		ctxlog.Debug(ctx, "no step summary file configured", "variable", summaryEnvVar)
		return nil
	}

	if err := checkWritable(path); err != nil {
		return err
	}

	githubactions.New().AddStepSummary(strings.TrimRight(markdown, "\n"))
	return nil
}

// checkWritable makes sure the command file can be appended to, the toolkit
// falls back to deprecated log commands otherwise
func checkWritable(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file.Close()
}
