// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"fmt"
	"strings"

	kerrors "k8s.io/apimachinery/pkg/util/errors"
)

// MergeEnvVars merges one slice of KEY=VALUE environment entries into another one
// if overwriteValues is false, this function will return an error if a duplicate name is encountered
// if overwriteValues is true, this function will overwrite the existing value with the new value if a duplicate is encountered
func MergeEnvVars(new []string, into []string, overwriteValues bool) ([]string, error) {
	// if new, into, or both are empty, there is no need to run through the processing logic
	// just quickly return the appropriate value
	if len(new) == 0 && len(into) == 0 {
		return []string{}, nil
	} else if len(new) == 0 {
		return into, nil
	} else if len(into) == 0 {
		return new, nil
	}

	// create a map of the original (into) env vars with the name as the key and
	// their index as the value so we can do value replacements later if overwriteValues is true
	originalEnvs := make(map[string]int)

	for i, o := range into {
		originalEnvs[Name(o)] = i
	}

	// errs holds a slice of error objects from the merge process
	var errs []error

	for _, n := range new {
		name := Name(n)
		_, exists := originalEnvs[name]

		switch {
		case exists && overwriteValues:
			into[originalEnvs[name]] = n
		case exists && !overwriteValues:
			errs = append(errs, fmt.Errorf("environment variable %q already exists", name))
		default:
			originalEnvs[name] = len(into)
			into = append(into, n)
		}
	}

	// kerrors.NewAggregate will return nil if the slice is empty
	// or an aggregated error otherwise
	return into, kerrors.NewAggregate(errs)
}

// Name returns the variable name of a KEY=VALUE entry
func Name(entry string) string {
	name, _, _ := strings.Cut(entry, "=")
	return name
}

// DotnetDefaults are the environment settings every dotnet invocation runs with,
// they keep the tool output free of telemetry banners and first run messages
func DotnetDefaults() []string {
	return []string{
		"DOTNET_CLI_TELEMETRY_OPTOUT=1",
		"DOTNET_NOLOGO=1",
		"DOTNET_SKIP_FIRST_TIME_EXPERIENCE=1",
	}
}
