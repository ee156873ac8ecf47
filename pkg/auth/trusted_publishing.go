// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// Audience is the audience of the OIDC token nuget.org accepts
	Audience = "https://www.nuget.org"

	idTokenRequestURLEnvVar   = "ACTIONS_ID_TOKEN_REQUEST_URL"
	idTokenRequestTokenEnvVar = "ACTIONS_ID_TOKEN_REQUEST_TOKEN"

	userAgent = "nuget-publish"
)

type idTokenResponse struct {
	Value string `json:"value"`
}

type tokenRequest struct {
	Username  string `json:"username"`
	TokenType string `json:"tokenType"`
}

type tokenResponse struct {
	APIKey  string `json:"apiKey"`
	Expires string `json:"expires,omitempty"`
}

func (r *Resolver) trustedPublishing(ctx context.Context, user string, tokenServiceURL string) (Credential, error) {
	idToken, err := r.requestIDToken(ctx)
	if err != nil {
		return Credential{}, err
	}

	if err := r.inspectIDToken(idToken); err != nil {
		return Credential{}, err
	}

	return r.exchange(ctx, idToken, user, tokenServiceURL)
}

// requestIDToken asks the GitHub runner for an OIDC token, this requires the
// workflow permission id-token: write
func (r *Resolver) requestIDToken(ctx context.Context) (string, error) {
	requestURL := r.Getenv(idTokenRequestURLEnvVar)
	requestToken := r.Getenv(idTokenRequestTokenEnvVar)
	if requestURL == "" || requestToken == "" {
		return "", fmt.Errorf("%s and %s are not set, grant the workflow the permission id-token: write", idTokenRequestURLEnvVar, idTokenRequestTokenEnvVar)
	}

	u, err := url.Parse(requestURL)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", idTokenRequestURLEnvVar, err)
	}

	query := u.Query()
	query.Set("audience", Audience)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+requestToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var response idTokenResponse
	if err := r.do(req, &response); err != nil {
		return "", fmt.Errorf("failed to request OIDC token: %w", err)
	}

	if response.Value == "" {
		return "", fmt.Errorf("OIDC token response did not contain a token")
	}

	return response.Value, nil
}

// inspectIDToken checks audience and expiry of the token before it is sent to
// the token service. The signature is verified by the token service.
func (r *Resolver) inspectIDToken(idToken string) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return fmt.Errorf("failed to parse OIDC token: %w", err)
	}

	if !claims.VerifyAudience(Audience, true) {
		return fmt.Errorf("OIDC token audience %v does not contain %s", []string(claims.Audience), Audience)
	}

	if !claims.VerifyExpiresAt(r.Now(), true) {
		return fmt.Errorf("OIDC token is expired or has no expiry")
	}

	return nil
}

func (r *Resolver) exchange(ctx context.Context, idToken string, user string, tokenServiceURL string) (Credential, error) {
	body, err := json.Marshal(tokenRequest{Username: user, TokenType: "ApiKey"})
	if err != nil {
		return Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenServiceURL, bytes.NewReader(body))
	if err != nil {
		return Credential{}, err
	}

	req.Header.Set("Authorization", "Bearer "+idToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var response tokenResponse
	if err := r.do(req, &response); err != nil {
		return Credential{}, fmt.Errorf("failed to exchange OIDC token at %s: %w", tokenServiceURL, err)
	}

	if response.APIKey == "" {
		return Credential{}, fmt.Errorf("token service %s did not return an API key", tokenServiceURL)
	}

	credential := Credential{APIKey: response.APIKey, Source: SourceTrustedPublishing}
	if response.Expires != "" {
		if expires, err := time.Parse(time.RFC3339, response.Expires); err == nil {
			credential.ExpiresAt = expires
		}
	}

	return credential, nil
}

func (r *Resolver) do(req *http.Request, into interface{}) error {
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP status code %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	return json.Unmarshal(data, into)
}
