// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package discovery_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/shipwright-io/nuget-publish/pkg/discovery"
)

const (
	packableByFlag = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <IsPackable> true </IsPackable>
    <Version>1.2.3</Version>
  </PropertyGroup>
</Project>`

	packableByID = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <PackageId>Shipwright.Client</PackageId>
    <PackageVersion>2.0.0-beta.1</PackageVersion>
    <Version>1.0.0</Version>
  </PropertyGroup>
</Project>`

	notPackable = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
</Project>`

	explicitlyNotPackable = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <PackageId>Shipwright.Tests</PackageId>
    <IsPackable>false</IsPackable>
  </PropertyGroup>
</Project>`
)

var _ = Describe("Discovery", func() {
	var root string

	var file = func(rel string, content string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	}

	var relPaths = func(projects []Project) []string {
		var result []string
		for _, p := range projects {
			result = append(result, p.RelPath)
		}
		return result
	}

	var defaultOptions = func() Options {
		return Options{
			Root:     root,
			Patterns: []string{"**/*.csproj"},
			Excludes: []string{"**/bin/**", "**/obj/**"},
		}
	}

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp(os.TempDir(), "discovery")
		Expect(err).ToNot(HaveOccurred())

		file("src/Lib/Lib.csproj", packableByFlag)
		file("src/Client/Client.csproj", packableByID)
		file("src/App/App.csproj", notPackable)
		file("test/Lib.Tests/Lib.Tests.csproj", explicitlyNotPackable)
		file("src/Lib/bin/Release/Copy.csproj", packableByFlag)
		file("src/Lib/README.md", "<IsPackable>true</IsPackable>")
		file("Root.csproj", packableByID)
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	Context("testing project content", func() {
		It("should accept IsPackable true", func() {
			Expect(IsPackable([]byte(packableByFlag))).To(BeTrue())
		})

		It("should accept a PackageId", func() {
			Expect(IsPackable([]byte(packableByID))).To(BeTrue())
		})

		It("should reject projects without package properties", func() {
			Expect(IsPackable([]byte(notPackable))).To(BeFalse())
		})

		It("should reject projects with IsPackable false", func() {
			Expect(IsPackable([]byte(explicitlyNotPackable))).To(BeFalse())
		})

		It("should ignore the case of element names", func() {
			Expect(IsPackable([]byte("<ispackable>True</ispackable>"))).To(BeTrue())
		})
	})

	Context("discovering projects", func() {
		It("should find the packable projects sorted by path", func() {
			projects, err := Find(context.TODO(), defaultOptions())
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{
				"Root.csproj",
				"src/Client/Client.csproj",
				"src/Lib/Lib.csproj",
			}))
		})

		It("should sort a directory before its dotted siblings", func() {
			file("src/Lib.Extensions/Lib.Extensions.csproj", packableByFlag)

			projects, err := Find(context.TODO(), defaultOptions())
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{
				"Root.csproj",
				"src/Client/Client.csproj",
				"src/Lib/Lib.csproj",
				"src/Lib.Extensions/Lib.Extensions.csproj",
			}))
		})

		It("should extract package properties", func() {
			projects, err := Find(context.TODO(), defaultOptions())
			Expect(err).ToNot(HaveOccurred())

			client := projects[1]
			Expect(client.Name).To(Equal("Client"))
			Expect(client.PackageID).To(Equal("Shipwright.Client"))
			Expect(client.Version).To(Equal("2.0.0-beta.1"))
			Expect(client.DisplayName()).To(Equal("Shipwright.Client"))

			lib := projects[2]
			Expect(lib.PackageID).To(BeEmpty())
			Expect(lib.Version).To(Equal("1.2.3"))
			Expect(lib.DisplayName()).To(Equal("Lib"))
		})

		It("should respect custom patterns", func() {
			opts := defaultOptions()
			opts.Patterns = []string{"src/**/*.csproj"}

			projects, err := Find(context.TODO(), opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{"src/Client/Client.csproj", "src/Lib/Lib.csproj"}))
		})

		It("should respect excludes", func() {
			opts := defaultOptions()
			opts.Excludes = append(opts.Excludes, "src/Client/**")

			projects, err := Find(context.TODO(), opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{"Root.csproj", "src/Lib/Lib.csproj"}))
		})

		It("should return nothing for a tree without projects", func() {
			empty, err := os.MkdirTemp(os.TempDir(), "empty")
			Expect(err).ToNot(HaveOccurred())
			defer os.RemoveAll(empty)

			projects, err := Find(context.TODO(), Options{Root: empty, Patterns: []string{"**/*.csproj"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(projects).To(BeEmpty())
		})

		It("should fail for a missing root", func() {
			_, err := Find(context.TODO(), Options{Root: filepath.Join(root, "missing")})
			Expect(err).To(HaveOccurred())
		})

		It("should stop when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := Find(ctx, defaultOptions())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("resolving explicit projects", func() {
		It("should take project files as they are, even if not packable", func() {
			opts := defaultOptions()
			opts.Projects = []string{"src/App/App.csproj", "src/Lib/Lib.csproj"}

			projects, err := Find(context.TODO(), opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{"src/App/App.csproj", "src/Lib/Lib.csproj"}))
			Expect(projects[0].Packable).To(BeFalse())
		})

		It("should find the project file in a directory", func() {
			opts := defaultOptions()
			opts.Projects = []string{"src/Client"}

			projects, err := Find(context.TODO(), opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{"src/Client/Client.csproj"}))
		})

		It("should fail for a directory with more than one project file", func() {
			file("src/Client/Other.csproj", packableByID)

			opts := defaultOptions()
			opts.Projects = []string{"src/Client"}

			_, err := Find(context.TODO(), opts)
			Expect(err).To(HaveOccurred())
		})

		It("should expand glob patterns and de-duplicate", func() {
			opts := defaultOptions()
			opts.Projects = []string{"src/*/*.csproj", "src/Lib/Lib.csproj"}

			projects, err := Find(context.TODO(), opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(relPaths(projects)).To(Equal([]string{
				"src/App/App.csproj",
				"src/Client/Client.csproj",
				"src/Lib/Lib.csproj",
			}))
		})

		It("should fail for entries that resolve to nothing", func() {
			opts := defaultOptions()
			opts.Projects = []string{"src/Missing/Missing.csproj"}

			_, err := Find(context.TODO(), opts)
			Expect(err).To(HaveOccurred())
		})
	})
})
