// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package action_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shipwright-io/nuget-publish/pkg/action"
)

// parseOutputs reads the key<<delimiter blocks of an output file
func parseOutputs(content string) map[string]string {
	result := map[string]string{}

	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		key, delimiter, found := strings.Cut(lines[i], "<<")
		if !found {
			continue
		}

		var value []string
		for i++; i < len(lines) && lines[i] != delimiter; i++ {
			value = append(value, lines[i])
		}

		result[key] = strings.Join(value, "\n")
	}

	return result
}

var _ = Describe("GitHub Actions integration", func() {
	Context("workflow commands", func() {
		var buf *bytes.Buffer
		var commands *action.Commands

		BeforeEach(func() {
			buf = &bytes.Buffer{}
			commands = action.NewCommands(buf)
		})

		It("should write groups", func() {
			commands.Group("Pack src/Lib/Lib.csproj")
			commands.EndGroup()
			Expect(buf.String()).To(Equal("::group::Pack src/Lib/Lib.csproj\n::endgroup::\n"))
		})

		It("should write annotations with an escaped file property and message", func() {
			commands.Error("src/a,b/Lib.csproj", "pack failed\n100%")
			Expect(buf.String()).To(Equal("::error file=src/a%2Cb/Lib.csproj::pack failed%0A100%25\n"))
		})

		It("should write annotations without a file", func() {
			commands.Warning("", "duplicate")
			Expect(buf.String()).To(Equal("::warning::duplicate\n"))
		})

		It("should mask secrets and ignore empty ones", func() {
			commands.AddMask("")
			commands.AddMask("oy2abc")
			Expect(buf.String()).To(Equal("::add-mask::oy2abc\n"))
		})
	})

	Context("output file", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp(os.TempDir(), "action")
			Expect(err).ToNot(HaveOccurred())
		})

		AfterEach(func() {
			os.Unsetenv("GITHUB_OUTPUT")
			os.Unsetenv("GITHUB_STEP_SUMMARY")
			os.RemoveAll(dir)
		})

		It("should append outputs in the delimiter form", func() {
			path := filepath.Join(dir, "output")
			Expect(os.WriteFile(path, []byte("existing<<EOF\nvalue\nEOF\n"), 0644)).To(Succeed())
			os.Setenv("GITHUB_OUTPUT", path)

			Expect(action.SetOutputs(context.TODO(), map[string]string{
				"packages": "A.1.0.0.nupkg,B.2.0.0.nupkg",
				"failed":   "",
				"message":  "line one\nline two",
			})).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(HavePrefix("existing<<EOF\nvalue\nEOF\nfailed<<"))
			Expect(parseOutputs(string(data))).To(Equal(map[string]string{
				"existing": "value",
				"failed":   "",
				"message":  "line one\nline two",
				"packages": "A.1.0.0.nupkg,B.2.0.0.nupkg",
			}))

			Expect(strings.Index(string(data), "\nmessage<<")).To(BeNumerically("<", strings.Index(string(data), "\npackages<<")))
		})

		It("should fail for an output file that cannot be written", func() {
			os.Setenv("GITHUB_OUTPUT", filepath.Join(dir, "missing", "output"))
			Expect(action.SetOutputs(context.TODO(), map[string]string{"pushed": ""})).ToNot(Succeed())
		})

		It("should not fail outside of a workflow", func() {
			os.Unsetenv("GITHUB_OUTPUT")
			Expect(action.SetOutputs(context.TODO(), map[string]string{"pushed": ""})).To(Succeed())
		})

		It("should append to the step summary", func() {
			path := filepath.Join(dir, "summary")
			os.Setenv("GITHUB_STEP_SUMMARY", path)

			Expect(action.AppendSummary(context.TODO(), "# one")).To(Succeed())
			Expect(action.AppendSummary(context.TODO(), "# two\n")).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("# one\n# two\n"))
		})
	})
})
