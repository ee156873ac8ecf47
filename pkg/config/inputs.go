// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"

	"github.com/sethvargo/go-githubactions"
)

// LookupInput returns the value of a GitHub Action input. The runner exports
// inputs as INPUT_<NAME> with the hyphens kept. Both the hyphenated and the
// underscored spelling are accepted so that the step also works when started
// from a plain shell. Empty inputs count as not set.
func LookupInput(name string) (string, bool) {
	gha := githubactions.New()

	for _, candidate := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if value := gha.GetInput(candidate); value != "" {
			return value, true
		}
	}

	return "", false
}

// SplitList splits a newline or comma delimited list, empty entries and
// entries starting with '#' are dropped
func SplitList(value string) []string {
	return split(value, func(r rune) bool { return r == '\n' || r == '\r' || r == ',' })
}

// SplitLines splits a newline delimited list, used for argument lists
// that may carry commas themselves
func SplitLines(value string) []string {
	return split(value, func(r rune) bool { return r == '\n' || r == '\r' })
}

func split(value string, sep func(rune) bool) []string {
	var result []string
	for _, entry := range strings.FieldsFunc(value, sep) {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}

		result = append(result, entry)
	}

	return result
}
