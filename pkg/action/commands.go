// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"io"

	"github.com/sethvargo/go-githubactions"
)

// Commands writes GitHub Actions workflow commands, the runner picks them up from the step output
type Commands struct {
	gha *githubactions.Action
}

// NewCommands returns a workflow command writer
func NewCommands(out io.Writer) *Commands {
	return &Commands{gha: githubactions.New(githubactions.WithWriter(out))}
}

// Group starts a collapsible group in the log
func (c *Commands) Group(title string) {
	c.gha.Group(title)
}

// EndGroup ends the current group
func (c *Commands) EndGroup() {
	c.gha.EndGroup()
}

// Error creates an error annotation, the file is optional
func (c *Commands) Error(file string, message string) {
	c.withFile(file).Errorf("%s", message)
}

// Warning creates a warning annotation, the file is optional
func (c *Commands) Warning(file string, message string) {
	c.withFile(file).Warningf("%s", message)
}

// AddMask registers a value that the runner replaces in all log output
func (c *Commands) AddMask(secret string) {
	if secret == "" {
		return
	}

	c.gha.AddMask(secret)
}

func (c *Commands) withFile(file string) *githubactions.Action {
	if file == "" {
		return c.gha
	}

	return c.gha.WithFieldsMap(map[string]string{"file": file})
}
