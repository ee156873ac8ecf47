// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package util_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shipwright-io/nuget-publish/pkg/util"
)

var _ = Describe("TCP", func() {

	Context("TestConnection", func() {

		var result bool
		var hostname string
		var port int

		JustBeforeEach(func() {
			result = util.TestConnection(hostname, port, 1)
		})

		Context("For a closed port", func() {

			BeforeEach(func() {
				listener, err := net.Listen("tcp", "127.0.0.1:0")
				Expect(err).ToNot(HaveOccurred())

				hostname = "127.0.0.1"
				port = listener.Addr().(*net.TCPAddr).Port
				Expect(listener.Close()).To(Succeed())
			})

			It("returns false", func() {
				Expect(result).To(BeFalse())
			})
		})

		Context("For an unknown host", func() {

			BeforeEach(func() {
				hostname = "nuget-publish-dhasldglidgewidgwd.invalid"
				port = 443
			})

			It("returns false", func() {
				Expect(result).To(BeFalse())
			})
		})

		Context("For a functional endpoint", func() {

			var listener net.Listener

			BeforeEach(func() {
				var err error
				listener, err = net.Listen("tcp", "127.0.0.1:0")
				Expect(err).ToNot(HaveOccurred())

				hostname = "127.0.0.1"
				port = listener.Addr().(*net.TCPAddr).Port
			})

			AfterEach(func() {
				listener.Close()
			})

			It("returns true", func() {
				Expect(result).To(BeTrue())
			})
		})
	})

	DescribeTable("the extraction of hostname and port",
		func(url string, expectedHost string, expectedPort int, expectError bool) {
			host, port, err := util.ExtractHostnamePort(url)
			if expectError {
				Expect(err).To(HaveOccurred())
			} else {
				Expect(err).ToNot(HaveOccurred())
				Expect(host).To(Equal(expectedHost), "for "+url)
				Expect(port).To(Equal(expectedPort), "for "+url)
			}
		},
		Entry("Check HTTPS URL with default port", "https://api.nuget.org/v3/index.json", "api.nuget.org", 443, false),
		Entry("Check HTTP URL with default port", "http://feed.local/v3/index.json", "feed.local", 80, false),
		Entry("Check HTTPS URL with custom port", "https://nuget.pkg.github.com:8443/octo/index.json", "nuget.pkg.github.com", 8443, false),
		Entry("Check source name", "github", "", 0, true),
		Entry("Check local folder", "/tmp/feed", "", 0, true),
	)
})
