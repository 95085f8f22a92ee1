/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package operations

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/crateio"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/gitpipeline"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/lockfile"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/pipeline"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/registry"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/registryindex"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

// Mirror resolves lockPath and stages every artifact it names into
// oc's backend: registry indices (gated by max-stale), crate
// tarballs, and git bare/checkout snapshots — anything the backend's
// single prefix listing shows is already present is left alone
// (§4.5's O(keys) existence optimisation).
func Mirror(ctx context.Context, oc *Context, lockPath string) (*Summary, error) {
	res, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve lockfile")
	}

	existing, err := listExisting(ctx, oc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list backend contents")
	}

	summary := &Summary{}

	// The git class runs alongside the registry class so a slow git
	// clone does not hold up index and crate work.
	var gitsPool *pipeline.Pool
	gitsDone := make(chan struct{})
	go func() {
		defer close(gitsDone)
		gitsPool = mirrorGits(ctx, oc, res.Gits, existing)
	}()

	if oc.Config.General.IncludeIndex {
		indexPool := mirrorIndices(ctx, oc, res, existing)
		summary.Indices = indexPool.Stats()
		summary.Failures = append(summary.Failures, indexPool.Errors()...)
	}

	cratesPool := mirrorCrates(ctx, oc, res, existing)
	summary.Crates = cratesPool.Stats()
	summary.Failures = append(summary.Failures, cratesPool.Errors()...)

	<-gitsDone
	summary.Gits = gitsPool.Stats()
	summary.Failures = append(summary.Failures, gitsPool.Errors()...)

	return summary, nil
}

// listExisting performs the single list(prefix) call §4.5 requires,
// returning every key currently in the backend as a membership set.
func listExisting(ctx context.Context, oc *Context) (map[string]bool, error) {
	keys, err := oc.Backend.List(ctx, oc.prefix())
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set, nil
}

func mirrorIndices(ctx context.Context, oc *Context, res *lockfile.Resolved, existing map[string]bool) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)
	maxStale, _ := ParseMaxStale(oc.Config.General.MaxStale)

	for id, reg := range res.Registries {
		id, reg := id, reg
		pool.Go("index:"+id, func() (int64, error) {
			key := oc.key("index", id+".tar.zst")

			if updated, err := oc.Backend.Updated(ctx, key); err == nil {
				if maxStale > 0 && time.Since(updated) < maxStale {
					return 0, nil
				}
			}

			return mirrorOneIndex(ctx, oc, reg, res, key)
		})
	}
	pool.Wait()
	return pool
}

func mirrorOneIndex(ctx context.Context, oc *Context, reg *registry.Registry, res *lockfile.Resolved, key string) (int64, error) {
	destDir, err := os.MkdirTemp(oc.scratchDir(), "index-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(destDir)

	var hash string
	if reg.Protocol == registry.ProtocolGit {
		hash, err = registryindex.FetchGitIndex(ctx, reg.Index, destDir)
		if err != nil {
			oc.Logger.IndexEvent("error", "mirror", reg.ShortName(), "", err)
			return 0, err
		}
	} else {
		hash, err = registryindex.FetchSparseConfig(oc.Guard, reg, destDir)
		if err != nil {
			oc.Logger.IndexEvent("error", "mirror", reg.ShortName(), "", err)
			return 0, err
		}
		for _, k := range res.Crates {
			if k.Source.RegistryID != reg.ShortName() {
				continue
			}
			if _, err := registryindex.FetchSparseEntry(oc.Guard, reg, k.Name, destDir); err != nil {
				oc.Logger.IndexEvent("error", "mirror", reg.ShortName(), hash, err)
				return 0, err
			}
		}
	}

	if err := registryindex.WriteIndexHash(destDir, hash); err != nil {
		return 0, err
	}

	n, err := packAndUpload(ctx, oc, destDir, key)
	if err != nil {
		oc.Logger.IndexEvent("error", "mirror", reg.ShortName(), hash, err)
		return n, err
	}
	oc.Logger.IndexEvent("info", "mirrored", reg.ShortName(), hash, nil)
	return n, nil
}

func mirrorCrates(ctx context.Context, oc *Context, res *lockfile.Resolved, existing map[string]bool) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)

	for _, k := range res.Crates {
		k := k
		key := oc.key(k.LocalID())
		if existing[key] {
			continue
		}

		reg, ok := res.Registries[k.Source.RegistryID]
		if !ok {
			continue
		}

		pool.Go(k.String(), func() (int64, error) {
			downloadURL := reg.DownloadURL(k.Name, k.Version, k.Source.Checksum)
			tmp := filepath.Join(oc.scratchDir(), "crates", k.LocalID())

			n, err := crateio.Download(oc.Guard, downloadURL, tmp, k.Source.Checksum)
			if err != nil {
				oc.Logger.KrateEvent("error", "mirror", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}
			defer os.Remove(tmp)

			fd, err := os.Open(tmp)
			if err != nil {
				return 0, err
			}
			defer fd.Close()

			if err := oc.Backend.Upload(ctx, key, fd, n); err != nil {
				oc.Logger.KrateEvent("error", "mirror", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}
			oc.Logger.KrateEvent("info", "mirrored", k.Name, k.Version, k.Source.RegistryID, key, nil)
			return n, nil
		})
	}
	pool.Wait()
	return pool
}

func mirrorGits(ctx context.Context, oc *Context, gits []*specs.Krate, existing map[string]bool) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)

	for _, k := range gits {
		k := k
		pool.Go(k.String(), func() (int64, error) {
			bareDir := filepath.Join(oc.scratchDir(), "git", "db", k.Source.RepoIdent)
			if _, err := gitpipeline.CloneOrUpdateBare(ctx, k.Source.RepoURL, bareDir); err != nil {
				oc.Logger.GitEvent("error", "mirror", k.Source.RepoIdent, k.Source.Revision, "", err)
				return 0, err
			}

			var total int64

			bareKey := oc.key("git", "db", k.Source.RepoIdent+"-"+k.Source.Revision+".tar.zst")
			if !existing[bareKey] {
				n, err := packAndUpload(ctx, oc, bareDir, bareKey)
				if err != nil {
					oc.Logger.GitEvent("error", "mirror", k.Source.RepoIdent, k.Source.Revision, bareKey, err)
					return 0, err
				}
				total += n
			}

			coKey := oc.key("git", "co", k.Source.RepoIdent+"-"+k.Source.Revision+".tar.zst")
			if !existing[coKey] {
				coDir := filepath.Join(oc.scratchDir(), "git", "co", k.Source.RepoIdent+"-"+k.Source.Revision)
				if err := gitpipeline.Checkout(bareDir, coDir, k.Source.Revision); err != nil {
					oc.Logger.GitEvent("error", "mirror", k.Source.RepoIdent, k.Source.Revision, coKey, err)
					return 0, err
				}
				n, err := packAndUpload(ctx, oc, coDir, coKey)
				if err != nil {
					oc.Logger.GitEvent("error", "mirror", k.Source.RepoIdent, k.Source.Revision, coKey, err)
					return 0, err
				}
				total += n
			}

			oc.Logger.GitEvent("info", "mirrored", k.Source.RepoIdent, k.Source.Revision, bareKey, nil)
			return total, nil
		})
	}
	pool.Wait()
	return pool
}

func (c *Context) scratchDir() string {
	return c.WorkDir
}
