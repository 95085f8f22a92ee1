/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package gitpipeline clones git-sourced dependencies the way cargo
// itself does: a bare "database" clone holding every object ever
// fetched for that repository, and a disposable, revision-pinned
// checkout (with submodules materialized) taken locally from that
// database; only submodules are fetched from their own remotes.
package gitpipeline

import (
	"context"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

var allRefSpecs = []config.RefSpec{
	"+refs/heads/*:refs/heads/*",
	"+refs/tags/*:refs/tags/*",
}

// CloneOrUpdateBare clones repoURL as a bare repository at dir, or,
// if dir already holds one, fetches updates into it. It always fetches
// every branch and tag so that an arbitrary pinned revision resolves
// without a second round-trip.
func CloneOrUpdateBare(ctx context.Context, repoURL, dir string) (*git.Repository, error) {
	if _, err := os.Stat(dir); err == nil {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open bare repo %s", dir)
		}

		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			RefSpecs:   allRefSpecs,
			Force:      true,
			Tags:       git.AllTags,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return nil, errors.Wrapf(err, "failed to fetch %s", repoURL)
		}
		return repo, nil
	}

	repo, err := git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
		URL:  repoURL,
		Tags: git.AllTags,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to clone %s", repoURL)
	}
	return repo, nil
}

// ResolveRevision finds the commit hash a short or full revision
// string refers to within repo.
func ResolveRevision(repo *git.Repository, revision string) (plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return plumbing.ZeroHash, errors.Wrapf(err, "failed to resolve revision %s", revision)
	}
	return *h, nil
}
