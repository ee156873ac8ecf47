// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package nuget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

// packageBaseAddressTypes are the service index resource types of the flat container
var packageBaseAddressTypes = []string{"PackageBaseAddress/3.0.0"}

// ErrTimeout is returned when a package does not show up on the feed in time
var ErrTimeout = errors.New("timeout waiting for package")

// ServiceIndex is the entry point document of a NuGet V3 feed
type ServiceIndex struct {
	Version   string     `json:"version"`
	Resources []Resource `json:"resources"`
}

// Resource is one entry of the service index
type Resource struct {
	ID      string `json:"@id"`
	Type    string `json:"@type"`
	Comment string `json:"comment,omitempty"`
}

// Lookup returns the URL of the first resource matching one of the types
func (s *ServiceIndex) Lookup(types ...string) (string, bool) {
	for _, t := range types {
		for _, r := range s.Resources {
			if strings.EqualFold(r.Type, t) {
				return strings.TrimRight(r.ID, "/") + "/", true
			}
		}
	}

	return "", false
}

// Client reads package information from NuGet V3 feeds
type Client struct {
	httpClient *http.Client
	userAgent  string
	apiKey     string
	interval   time.Duration
}

// NewClient returns a feed client, the API key is sent as X-NuGet-ApiKey
// which private feeds such as GitHub Packages accept for reads
func NewClient(userAgent, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  userAgent,
		apiKey:     apiKey,
		interval:   10 * time.Second,
	}
}

// WithPollInterval sets how often WaitForPackage asks the feed
func (c *Client) WithPollInterval(interval time.Duration) *Client {
	c.interval = interval
	return c
}

// IsURL reports whether a repository is an HTTP(S) feed rather than a configured source name or local folder
func IsURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ServiceIndex fetches the service index of a V3 feed
func (c *Client) ServiceIndex(ctx context.Context, source string) (*ServiceIndex, error) {
	var index ServiceIndex
	found, err := c.getJSON(ctx, source, &index)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("service index %s not found", source)
	}

	if !strings.HasPrefix(index.Version, "3.") {
		return nil, fmt.Errorf("service index %s has unsupported version %q", source, index.Version)
	}

	return &index, nil
}

// PackageVersions lists the versions of a package id using the flat container resource,
// an unknown package id results in an empty list
func (c *Client) PackageVersions(ctx context.Context, source string, id string) ([]string, error) {
	index, err := c.ServiceIndex(ctx, source)
	if err != nil {
		return nil, err
	}

	base, ok := index.Lookup(packageBaseAddressTypes...)
	if !ok {
		return nil, fmt.Errorf("feed %s does not offer a package base address resource", source)
	}

	var versions struct {
		Versions []string `json:"versions"`
	}

	if _, err := c.getJSON(ctx, base+strings.ToLower(id)+"/index.json", &versions); err != nil {
		return nil, err
	}

	return versions.Versions, nil
}

// WaitForPackage polls the feed until the given package version is listed, or the timeout is reached
func (c *Client) WaitForPackage(ctx context.Context, source string, id string, version string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	want := NormalizeVersion(version)
	for {
		versions, err := c.PackageVersions(ctx, source, id)
		if err != nil {
			ctxlog.Debug(ctx, "failed to list package versions, retrying", "package", id, "error", err.Error())
		}

		for _, v := range versions {
			if NormalizeVersion(v) == want {
				ctxlog.Info(ctx, "package is available on the feed", "package", id, "version", version, "feed", source)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: %s %s not listed on %s after %v", ErrTimeout, id, version, source, timeout)
		case <-ticker.C:
			// do nothing and continue polling
		}
	}
}

func (c *Client) getJSON(ctx context.Context, target string, into interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.apiKey != "" {
		req.Header.Set("X-NuGet-ApiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}

	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, err
		}

		if err := json.Unmarshal(data, into); err != nil {
			return false, fmt.Errorf("failed to decode %s: %w", target, err)
		}

		return true, nil

	case http.StatusNotFound:
		return false, nil

	default:
		return false, fmt.Errorf("request to %s failed with HTTP status code %d", target, resp.StatusCode)
	}
}
