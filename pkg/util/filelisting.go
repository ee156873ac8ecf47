// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

// PackageFileInfo describes a package file for the listing
type PackageFileInfo struct {
	Path    string
	ID      string
	Version string
	Symbols bool
	Size    int64
}

// ListPackages returns the package files in the given directory, sorted by name.
// A missing directory has no packages.
func ListPackages(dir string) ([]PackageFileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var result []PackageFileInfo
	for _, entry := range entries {
		if entry.IsDir() || !nuget.IsPackageFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		path := filepath.Join(dir, entry.Name())
		file := PackageFileInfo{Path: path, Size: info.Size()}
		if parsed, err := nuget.ParsePackageFileName(path); err == nil {
			file.ID, file.Version, file.Symbols = parsed.ID, parsed.Version, parsed.Symbols
		}

		result = append(result, file)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// PrintPackages prints a table of the package files in a given directory to the provided writer
func PrintPackages(w io.Writer, dir string) error {
	files, err := ListPackages(dir)
	if err != nil {
		return err
	}

	var totalBytes int64

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box.MiddleHorizontal = "─"

	for _, file := range files {
		totalBytes += file.Size

		kind := "package"
		if file.Symbols {
			kind = "symbols"
		}

		t.AppendRow(table.Row{
			file.ID,
			file.Version,
			kind,
			HumanReadableSize(file.Size),
			filepath.Base(file.Path),
		})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{
		"", "", "",
		HumanReadableSize(totalBytes),
		fmt.Sprintf("%d files in %s", len(files), dir),
	})

	t.Render()
	return nil
}

// HumanReadableSize is a minimal effort function to return a human readable
// size of the given number of bytes in a compact form
func HumanReadableSize(bytes int64) string {
	value := float64(bytes)

	var mods = []string{"B", "K", "M", "G", "T"}
	var i int
	for value > 1023.9 {
		value /= 1024.0
		i++
	}

	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", value), "0"), ".") + mods[i]
}
