// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// TestConnection tries to establish a connection to a provided host using a 5 seconds timeout.
func TestConnection(hostname string, port int, retries int) bool {
	host := net.JoinHostPort(hostname, strconv.Itoa(port))

	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	for i := 0; i <= retries; i++ {
		conn, _ := dialer.Dial("tcp", host)
		if conn != nil {
			_ = conn.Close()
			return true
		}
	}

	return false
}

// ExtractHostnamePort extracts the hostname and port of an HTTP(S) feed URL,
// the port defaults to the one of the scheme
func ExtractHostnamePort(feedURL string) (string, int, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", 0, err
	}

	var port int
	switch u.Scheme {
	case "http":
		port = 80
	case "https":
		port = 443
	default:
		return "", 0, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, feedURL)
	}

	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("no host in %s", feedURL)
	}

	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return "", 0, err
		}
	}

	return u.Hostname(), port, nil
}
