// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	gogitv5 "github.com/go-git/go-git/v5"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

const (
	defaultRemote = "origin"

	// tokenUsername is the user name GitHub expects for token based HTTPS authentication
	tokenUsername = "x-access-token"

	taggerName  = "github-actions[bot]"
	taggerEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

// Repository is a local git checkout in which release tags are created
type Repository struct {
	repo *gogitv5.Repository
	now  func() time.Time
}

// Open opens the repository containing the given path, parent directories are searched for the .git directory
func Open(path string) (*Repository, error) {
	repo, err := gogitv5.PlainOpenWithOptions(path, &gogitv5.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", path, err)
	}

	return &Repository{repo: repo, now: time.Now}, nil
}

// TagName returns the tag name for a package version, the '*' in the format is replaced by the version
func TagName(format string, version string) string {
	return strings.ReplaceAll(format, "*", version)
}

// HeadCommit returns the hash of the commit HEAD points to
func (r *Repository) HeadCommit() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return head.Hash().String(), nil
}

// CreateTag creates an annotated tag on HEAD. An existing tag is left untouched,
// in which case created is false.
func (r *Repository) CreateTag(name string, message string) (created bool, err error) {
	if _, err := r.repo.Tag(name); err == nil {
		return false, nil
	} else if !errors.Is(err, gogitv5.ErrTagNotFound) {
		return false, err
	}

	commit, err := r.HeadCommit()
	if err != nil {
		return false, err
	}

	_, err = r.repo.CreateTag(name, plumbing.NewHash(commit), &gogitv5.CreateTagOptions{
		Tagger: &object.Signature{
			Name:  taggerName,
			Email: taggerEmail,
			When:  r.now(),
		},
		Message: message,
	})
	if err != nil {
		if errors.Is(err, gogitv5.ErrTagExists) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create tag %s: %w", name, err)
	}

	return true, nil
}

// PushTags pushes the named tags to the origin remote. The token is used for
// HTTPS basic authentication, an empty token means no authentication.
func (r *Repository) PushTags(ctx context.Context, names []string, token string) error {
	if len(names) == 0 {
		return nil
	}

	refSpecs := make([]config.RefSpec, 0, len(names))
	for _, name := range names {
		refSpecs = append(refSpecs, config.RefSpec(fmt.Sprintf("refs/tags/%[1]s:refs/tags/%[1]s", name)))
	}

	options := &gogitv5.PushOptions{
		RemoteName: defaultRemote,
		RefSpecs:   refSpecs,
	}

	if token != "" {
		options.Auth = &http.BasicAuth{
			Username: tokenUsername,
			Password: token,
		}
	}

	ctxlog.Info(ctx, "pushing tags", "remote", defaultRemote, "tags", strings.Join(names, ","))

	err := r.repo.PushContext(ctx, options)
	if err != nil && !errors.Is(err, gogitv5.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push tags: %w", err)
	}

	return nil
}
