// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package discovery finds the .NET projects of a repository that produce NuGet
// packages. Projects are either listed explicitly (files, directories or glob
// patterns) or discovered by walking the repository and testing each project
// file for the IsPackable and PackageId build properties.
package discovery
