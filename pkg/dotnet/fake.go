// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package dotnet

import (
	"context"
	"strings"
	"sync"
)

// Invocation is a recorded call of a FakeRunner
type Invocation struct {
	Dir  string
	Args []string
}

// FakeRunner is a Runner for tests, it records all invocations and answers
// with the result of the Handler
type FakeRunner struct {
	Handler func(args []string) (string, error)

	mu          sync.Mutex
	invocations []Invocation
}

var _ Runner = &FakeRunner{}

// Run records the invocation and returns the handler result
func (f *FakeRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	f.mu.Lock()
	f.invocations = append(f.invocations, Invocation{Dir: dir, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if f.Handler == nil {
		return "", nil
	}

	return f.Handler(args)
}

// Invocations returns the recorded invocations
func (f *FakeRunner) Invocations() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Invocation(nil), f.invocations...)
}

// Commands returns the recorded invocations whose arguments start with the given prefix
func (f *FakeRunner) Commands(prefix ...string) []Invocation {
	var result []Invocation
	for _, inv := range f.Invocations() {
		if len(inv.Args) >= len(prefix) && strings.Join(inv.Args[:len(prefix)], " ") == strings.Join(prefix, " ") {
			result = append(result, inv)
		}
	}

	return result
}
