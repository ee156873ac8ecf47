// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package main_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	. "github.com/shipwright-io/nuget-publish/cmd/nuget-publish"
)

const fakeDotnet = `#!/bin/sh
case "$1" in
  --version)
    echo "8.0.404"
    ;;
  pack)
    name=$(basename "$2" .csproj)
    prev=""
    for arg in "$@"; do
      if [ "$prev" = "--output" ]; then out="$arg"; fi
      prev="$arg"
    done
    mkdir -p "$out"
    echo "package" > "$out/$name.1.0.0.nupkg"
    echo "  Successfully created package '$out/$name.1.0.0.nupkg'."
    ;;
  nuget)
    echo "$@" >> "$FAKE_DOTNET_LOG"
    case "$3" in
      *Forbidden*)
        echo "error: Response status code does not indicate success: 403 (Forbidden)."
        exit 1
        ;;
    esac
    echo "Your package was pushed."
    ;;
esac
`

type opts struct {
	ctx            context.Context
	args           []string
	skipValidation bool
}

type runOpts func(*opts)

func withArgs(args ...string) runOpts { return func(o *opts) { o.args = args } }
func withValidation() runOpts         { return func(o *opts) { o.skipValidation = false } }

func run(o ...runOpts) error {
	var settings = &opts{skipValidation: true}
	for _, entry := range o {
		entry(settings)
	}

	// context default: use context.TODO()
	if settings.ctx == nil {
		settings.ctx = context.TODO()
	}

	os.Args = []string{"tool"}
	if settings.skipValidation {
		os.Args = append(os.Args, "--skip-validation")
	}

	os.Args = append(os.Args, settings.args...)
	return Execute(settings.ctx)
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return -1
}

var _ = Describe("nuget-publish", func() {
	var (
		workspace    string
		binDir       string
		outputFile   string
		pushLog      string
		originalPath string
	)

	var file = func(path string, data string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())
	}

	var filecontent = func(path string) string {
		data, err := os.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		return string(data)
	}

	var project = func(name string) {
		file(filepath.Join(workspace, "src", name, name+".csproj"), `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <PackageId>`+name+`</PackageId>
  </PropertyGroup>
</Project>`)
	}

	var common = func(args ...string) []string {
		return append([]string{
			"--root", workspace,
			"--output", filepath.Join(workspace, "nupkgs"),
			"--repository", "https://feed.example.com/v3/index.json",
			"--api-key", "secret",
		}, args...)
	}

	BeforeEach(func() {
		var err error
		workspace, err = os.MkdirTemp(os.TempDir(), "workspace")
		Expect(err).ToNot(HaveOccurred())

		binDir, err = os.MkdirTemp(os.TempDir(), "bin")
		Expect(err).ToNot(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(binDir, "dotnet"), []byte(fakeDotnet), 0755)).To(Succeed())

		originalPath = os.Getenv("PATH")
		os.Setenv("PATH", binDir+string(os.PathListSeparator)+originalPath)

		outputFile = filepath.Join(workspace, "github-output")
		pushLog = filepath.Join(workspace, "push.log")
		os.Setenv("GITHUB_OUTPUT", outputFile)
		os.Setenv("GITHUB_STEP_SUMMARY", filepath.Join(workspace, "summary.md"))
		os.Setenv("FAKE_DOTNET_LOG", pushLog)
	})

	AfterEach(func() {
		os.Setenv("PATH", originalPath)
		os.Unsetenv("GITHUB_OUTPUT")
		os.Unsetenv("GITHUB_STEP_SUMMARY")
		os.Unsetenv("FAKE_DOTNET_LOG")
		os.RemoveAll(workspace)
		os.RemoveAll(binDir)
	})

	Context("validations and error cases", func() {
		It("should succeed in case the help is requested", func() {
			Expect(run(withArgs("--help"))).To(Succeed())
		})

		It("should print the version", func() {
			Expect(run(withArgs("version"))).To(Succeed())
		})

		It("should fail for invalid settings", func() {
			err := run(withArgs(common("--push-retries", "-1")...))
			Expect(exitCode(err)).To(Equal(100))
		})

		It("should fail for an unknown log level", func() {
			err := run(withArgs(common("--log-level", "verbose")...))
			Expect(exitCode(err)).To(Equal(100))
		})

		It("should fail for a missing configuration file", func() {
			err := run(withArgs(common("--config", filepath.Join(workspace, "missing.yaml"))...))
			Expect(exitCode(err)).To(Equal(100))
		})

		It("should fail when there is nothing to pack", func() {
			file(filepath.Join(workspace, "tests", "Tests.csproj"), "<Project><PropertyGroup><IsPackable>false</IsPackable></PropertyGroup></Project>")

			err := run(withArgs(common()...))
			Expect(exitCode(err)).To(Equal(101))
		})

		It("should fail without credentials", func() {
			project("Lib")

			err := run(withArgs(
				"--root", workspace,
				"--output", filepath.Join(workspace, "nupkgs"),
				"--repository", "https://feed.example.com/v3/index.json",
				"--api-key-env", "NUGET_PUBLISH_TEST_NO_SUCH_VARIABLE",
			))
			Expect(exitCode(err)).To(Equal(110))
		})

		It("should fail when the .NET SDK is missing", func() {
			os.Setenv("PATH", workspace)
			project("Lib")

			err := run(withValidation(), withArgs(common()...))
			Expect(exitCode(err)).To(Equal(120))
		})
	})

	Context("publishing", func() {
		It("should pack and push all packable projects", func() {
			project("Lib")
			project("Lib.Extensions")

			Expect(run(withValidation(), withArgs(common()...))).To(Succeed())

			Expect(filecontent(pushLog)).To(ContainSubstring("--api-key secret"))
			Expect(filecontent(pushLog)).To(ContainSubstring("Lib.Extensions.1.0.0.nupkg --source https://feed.example.com/v3/index.json"))

			outputs := filecontent(outputFile)
			Expect(outputs).To(ContainSubstring("\nLib.1.0.0.nupkg,Lib.Extensions.1.0.0.nupkg\n"))
			Expect(outputs).To(ContainSubstring("\nsrc/Lib/Lib.csproj,src/Lib.Extensions/Lib.Extensions.csproj\n"))

			Expect(filecontent(filepath.Join(workspace, "summary.md"))).To(ContainSubstring("### NuGet publish"))
		})

		It("should pack only the given projects", func() {
			project("Lib")
			project("Other")

			Expect(run(withArgs(common("--project", "src/Lib")...))).To(Succeed())
			Expect(filecontent(pushLog)).ToNot(ContainSubstring("Other"))
		})

		It("should not push in dry-run mode", func() {
			project("Lib")

			Expect(run(withArgs(common("--dry-run")...))).To(Succeed())
			Expect(pushLog).ToNot(BeAnExistingFile())
			Expect(filepath.Join(workspace, "nupkgs", "Lib.1.0.0.nupkg")).To(BeAnExistingFile())
		})

		It("should read settings from a configuration file", func() {
			project("Lib")
			file(filepath.Join(workspace, "nuget-publish.yaml"), "dryRun: true\nconfiguration: Debug\n")

			Expect(run(withArgs(common("--config", filepath.Join(workspace, "nuget-publish.yaml"))...))).To(Succeed())
			Expect(pushLog).ToNot(BeAnExistingFile())
		})

		It("should let the configuration file decide for inputs without a value", func() {
			project("Lib")
			configFile := filepath.Join(workspace, "nuget-publish.yaml")
			file(configFile, "dryRun: true\nconfiguration: Debug\n")

			inputs := map[string]string{
				"INPUT_CONFIG-FILE":   configFile,
				"INPUT_DRY-RUN":       "",
				"INPUT_CONFIGURATION": "",
				"INPUT_PUSH-RETRIES":  "",
			}
			for k, v := range inputs {
				os.Setenv(k, v)
			}

			defer func() {
				for k := range inputs {
					os.Unsetenv(k)
				}
			}()

			Expect(run(withArgs(common()...))).To(Succeed())
			Expect(pushLog).ToNot(BeAnExistingFile())
		})

		It("should not declare input defaults that would shadow the configuration file", func() {
			data, err := os.ReadFile(filepath.Join("..", "..", "action.yml"))
			Expect(err).ToNot(HaveOccurred())

			var metadata struct {
				Inputs map[string]map[string]interface{} `json:"inputs"`
			}
			Expect(yaml.Unmarshal(data, &metadata)).To(Succeed())
			Expect(metadata.Inputs).To(HaveKey("dry-run"))

			// credentials are not part of the configuration file
			for name, input := range metadata.Inputs {
				if name == "github-token" {
					continue
				}

				Expect(input).ToNot(HaveKey("default"), name)
			}
		})

		It("should write the outputs when the feed check fails", func() {
			project("Lib")

			err := run(withArgs(
				"--root", workspace,
				"--output", filepath.Join(workspace, "nupkgs"),
				"--repository", "http://127.0.0.1:1/v3/index.json",
				"--api-key", "secret",
				"--check-feeds",
			))
			Expect(exitCode(err)).To(Equal(140))

			Expect(filecontent(outputFile)).To(ContainSubstring("failed<<"))
			Expect(filecontent(outputFile)).To(ContainSubstring("pushed<<"))
			Expect(filecontent(filepath.Join(workspace, "summary.md"))).To(ContainSubstring("### NuGet publish"))
			Expect(pushLog).ToNot(BeAnExistingFile())
		})

		It("should fail with the push exit code when the feed refuses a package", func() {
			project("Forbidden")

			err := run(withArgs(common()...))
			Expect(exitCode(err)).To(Equal(140))
			Expect(filecontent(outputFile)).To(ContainSubstring("\nForbidden.1.0.0.nupkg\n"))
		})

		It("should not fail when failures are tolerated", func() {
			project("Forbidden")

			Expect(run(withArgs(common("--fail-on-error=false")...))).To(Succeed())
		})

		It("should write metrics", func() {
			project("Lib")
			metricsFile := filepath.Join(workspace, "nuget.prom")

			Expect(run(withArgs(common("--metrics-file", metricsFile)...))).To(Succeed())
			Expect(filecontent(metricsFile)).To(ContainSubstring(`nuget_publish_projects_packed_total{result="succeeded"} 1`))
		})

		It("should list the projects", func() {
			project("Lib")

			Expect(run(withArgs("discover", "--root", workspace))).To(Succeed())
		})
	})
})
