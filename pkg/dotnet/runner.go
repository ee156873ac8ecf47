// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package dotnet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
	"github.com/shipwright-io/nuget-publish/pkg/env"
)

// Tool is the name of the .NET command-line interface executable
const Tool = "dotnet"

// Runner runs the dotnet tool and returns its combined output
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ToolError is returned when the tool exits with a non-zero exit code, it carries the
// exit code and the output so that callers can present it to the end-user
type ToolError struct {
	ExitCode int
	Output   string
	Cause    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", Tool, e.ExitCode, e.Output)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// ExecRunner runs the dotnet executable found in the PATH
type ExecRunner struct {
	// Secrets are masked in the logged command line
	Secrets []string
}

var _ Runner = &ExecRunner{}

// Run executes the tool with the given arguments in the given working directory
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, Tool, args...)
	cmd.Dir = dir
	cmd.Stdin = nil

	environ, err := env.MergeEnvVars(env.DotnetDefaults(), os.Environ(), true)
	if err != nil {
		return "", err
	}
	cmd.Env = environ

	ctxlog.Info(ctx, "running", "command", Tool+" "+strings.Join(MaskArgs(args, r.Secrets...), " "))

	out, err := cmd.CombinedOutput()

	var output string
	if out != nil {
		output = strings.TrimRight(string(out), "\n")
	}

	if err != nil {
		// In case the command fails, it is very likely to be an exit error
		// which contains the exit code of the command. Create a tool error
		// where the command output is placed into the error to be more
		// readable to the end-user.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = &ToolError{
				ExitCode: exitErr.ExitCode(),
				Output:   output,
				Cause:    err,
			}
		}
	}

	return output, err
}

// CheckEnvironment verifies that the tool is available and logs its version
func CheckEnvironment(ctx context.Context, runner Runner) (string, error) {
	if _, ok := runner.(*ExecRunner); ok {
		if _, err := exec.LookPath(Tool); err != nil {
			return "", err
		}
	}

	out, err := runner.Run(ctx, "", "--version")
	if err != nil {
		return "", err
	}

	version := strings.TrimSpace(out)
	ctxlog.Info(ctx, "found .NET SDK", "version", version)
	return version, nil
}

// MaskArgs returns a copy of the arguments with secret values replaced
func MaskArgs(args []string, secrets ...string) []string {
	masked := make([]string, len(args))
	for i, arg := range args {
		masked[i] = arg
		for _, secret := range secrets {
			if secret != "" && strings.Contains(arg, secret) {
				masked[i] = strings.ReplaceAll(masked[i], secret, "***")
			}
		}
	}

	return masked
}
