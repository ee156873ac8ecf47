// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes of the publish step
const (
	ExitCodeInvalidInput  = 100
	ExitCodeNoProjects    = 101
	ExitCodeNoCredentials = 110
	ExitCodeToolMissing   = 120
	ExitCodePackFailed    = 130
	ExitCodePushFailed    = 140
	ExitCodeTagFailed     = 150
)

// ExitError is an error which has an exit code to be used in os.Exit() to
// return both an exit code and an error message
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Cause, e.Code)
	}

	return fmt.Sprintf("%s (exit code %d)", e.Message, e.Code)
}

func (e ExitError) Unwrap() error {
	return e.Cause
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		var exitcode = 1

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitcode = exitErr.Code
		}

		log.Print(err.Error())
		cancel()
		os.Exit(exitcode)
	}
}

// Execute parses the command-line arguments and runs the selected command,
// without a command the packages are published
func Execute(ctx context.Context) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.ExecuteContext(ctx)
}
