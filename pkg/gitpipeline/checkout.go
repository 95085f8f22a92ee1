/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package gitpipeline

import (
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
)

// Checkout clones bareDir locally (a filesystem clone, so it's cheap
// — go-git hard-links/copies the object database rather than
// re-transferring it over the network) into target, hard-resets the
// worktree to revision, and recursively materializes every submodule.
func Checkout(bareDir, target, revision string) error {
	if err := os.RemoveAll(target); err != nil {
		return errors.Wrapf(err, "failed to clean checkout dir %s", target)
	}

	repo, err := git.PlainClone(target, false, &git.CloneOptions{
		URL: bareDir,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to clone %s locally into %s", bareDir, target)
	}

	hash, err := ResolveRevision(repo, revision)
	if err != nil {
		return err
	}

	w, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "failed to open worktree")
	}

	if err := w.Reset(&git.ResetOptions{
		Commit: hash,
		Mode:   git.HardReset,
	}); err != nil {
		return errors.Wrapf(err, "failed to reset %s to %s", target, revision)
	}

	if err := materializeSubmodules(w); err != nil {
		return errors.Wrapf(err, "failed to materialize submodules for %s", target)
	}

	return nil
}

func materializeSubmodules(w *git.Worktree) error {
	subs, err := w.Submodules()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	return subs.Update(&git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
}
