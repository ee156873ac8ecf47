// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

func (r *Report) table() table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Project", "Package", "Repository", "Result", "Attempts", "Duration"})

	for _, pack := range r.Packs {
		if pack.Err != nil {
			t.AppendRow(table.Row{pack.Project.RelPath, "", "", "Pack failed", "", pack.Duration.Round(time.Millisecond).String()})
			continue
		}

		if r.DryRun {
			for _, pkg := range pack.Packages {
				t.AppendRow(table.Row{pack.Project.RelPath, filepath.Base(pkg.Path), "", "Packed (dry-run)", "", pack.Duration.Round(time.Millisecond).String()})
			}
		}
	}

	for _, outcome := range r.Outcomes {
		result := outcome.Class.String()
		if outcome.Failed && !outcome.Class.IsFailure() {
			result += " (failed)"
		}

		t.AppendRow(table.Row{
			outcome.Project.RelPath,
			filepath.Base(outcome.Package.Path),
			outcome.Repository,
			result,
			outcome.Attempts,
			outcome.Duration.Round(time.Millisecond).String(),
		})
	}

	return t
}

// Print writes the results as a table for the console log
func (r *Report) Print(w io.Writer) {
	t := r.table()
	t.SetOutputMirror(w)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box.MiddleHorizontal = "─"
	t.Render()
}

// Markdown renders the results for the job summary
func (r *Report) Markdown() string {
	var sb strings.Builder

	title := "NuGet publish"
	if r.DryRun {
		title += " (dry-run)"
	}

	fmt.Fprintf(&sb, "### %s\n\n", title)
	sb.WriteString(r.table().RenderMarkdown())
	sb.WriteString("\n")

	if len(r.Tags) > 0 {
		fmt.Fprintf(&sb, "\nTags: %s\n", strings.Join(r.Tags, ", "))
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(&sb, "\n> [!WARNING]\n> %s\n", warning)
	}

	return sb.String()
}
