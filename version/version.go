// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package version

// Version describes the version of nuget-publish, it is set through the
// go linker flags at build time
var Version = ""

// SetVersion sets the version of nuget-publish
func SetVersion(version string) {
	Version = version
}
