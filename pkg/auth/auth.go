// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shipwright-io/nuget-publish/pkg/action"
	"github.com/shipwright-io/nuget-publish/pkg/config"
	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
	"github.com/shipwright-io/nuget-publish/pkg/nuget"
)

// Source names where a credential came from
type Source string

const (
	// SourceNone means that no API key is available
	SourceNone Source = "none"
	// SourceInput means that the API key was provided as input or flag
	SourceInput Source = "input"
	// SourceEnvironment means that the API key was read from an environment variable
	SourceEnvironment Source = "environment"
	// SourceTrustedPublishing means that the API key was obtained by exchanging an OIDC token
	SourceTrustedPublishing Source = "trusted-publishing"
)

// ErrNoCredentials is returned when a push needs an API key and none is available
var ErrNoCredentials = errors.New("no NuGet API key available")

// Credential is the API key used for pushing packages
type Credential struct {
	APIKey    string
	Source    Source
	ExpiresAt time.Time
}

// IsEmpty returns whether the credential carries no API key
func (c Credential) IsEmpty() bool {
	return c.APIKey == ""
}

// Resolver determines the API key of a publish run
type Resolver struct {
	HTTPClient *http.Client
	Getenv     func(string) string
	Mask       func(secret string)
	Now        func() time.Time
}

// NewResolver returns a resolver that reads the process environment and
// masks obtained keys in the workflow log
func NewResolver() *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Getenv:     os.Getenv,
		Mask: func(secret string) {
			action.NewCommands(os.Stdout).AddMask(secret)
		},
		Now: time.Now,
	}
}

// ResolveAPIKey determines the API key using the default resolver
func ResolveAPIKey(ctx context.Context, cfg *config.Config) (Credential, error) {
	return NewResolver().Resolve(ctx, cfg)
}

// Resolve looks for the API key in the following order: the explicit input,
// the environment variable named by the configuration, and trusted publishing.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config) (Credential, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		ctxlog.Debug(ctx, "using API key from input")
		return Credential{APIKey: key, Source: SourceInput}, nil
	}

	if cfg.APIKeyEnv != "" {
		if key := strings.TrimSpace(r.Getenv(cfg.APIKeyEnv)); key != "" {
			ctxlog.Debug(ctx, "using API key from environment", "variable", cfg.APIKeyEnv)
			return Credential{APIKey: key, Source: SourceEnvironment}, nil
		}
	}

	if cfg.TrustedPublishingUser != "" && !cfg.DryRun {
		credential, err := r.trustedPublishing(ctx, cfg.TrustedPublishingUser, cfg.TokenServiceURL)
		if err != nil {
			return Credential{Source: SourceNone}, fmt.Errorf("trusted publishing failed: %w", err)
		}

		if r.Mask != nil {
			r.Mask(credential.APIKey)
		}

		ctxlog.Info(ctx, "obtained short-lived API key through trusted publishing", "user", cfg.TrustedPublishingUser, "expires", credential.ExpiresAt)
		return credential, nil
	}

	if requiresCredentials(cfg) {
		return Credential{Source: SourceNone}, fmt.Errorf("%w: set the api-key input, the %s environment variable, or trusted-publishing-user", ErrNoCredentials, cfg.APIKeyEnv)
	}

	ctxlog.Info(ctx, "no API key configured, relying on the NuGet configuration of the sources")
	return Credential{Source: SourceNone}, nil
}

// requiresCredentials reports whether a push goes to at least one URL feed,
// sources configured by name may carry their own credentials
func requiresCredentials(cfg *config.Config) bool {
	if cfg.DryRun {
		return false
	}

	for _, repository := range cfg.Repositories {
		if nuget.IsURL(repository) {
			return true
		}
	}

	return false
}
