/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package operations

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/helpers"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/lockfile"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/packer"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/pipeline"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/registryindex"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

// Sync resolves lockPath and lays every artifact it names out under
// cargoHome in the shape a Cargo-compatible build tool expects (§3):
// registry caches/sources/indices, and git object databases/checkouts.
func Sync(ctx context.Context, oc *Context, lockPath, cargoHome string) (*Summary, error) {
	res, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve lockfile")
	}

	summary := &Summary{}

	// The git class runs alongside the registry class so a slow git
	// download does not hold up index and crate work.
	var gitsPool *pipeline.Pool
	gitsDone := make(chan struct{})
	go func() {
		defer close(gitsDone)
		gitsPool = syncGits(ctx, oc, res.Gits, cargoHome)
	}()

	if oc.Config.General.IncludeIndex {
		indexPool := syncIndices(ctx, oc, res, cargoHome)
		summary.Indices = indexPool.Stats()
		summary.Failures = append(summary.Failures, indexPool.Errors()...)
	}

	cratesPool := syncCrates(ctx, oc, res, cargoHome)
	summary.Crates = cratesPool.Stats()
	summary.Failures = append(summary.Failures, cratesPool.Errors()...)

	<-gitsDone
	summary.Gits = gitsPool.Stats()
	summary.Failures = append(summary.Failures, gitsPool.Errors()...)

	return summary, nil
}

func syncIndices(ctx context.Context, oc *Context, res *lockfile.Resolved, cargoHome string) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)

	for id := range res.Registries {
		id := id
		pool.Go("index:"+id, func() (int64, error) {
			key := oc.key("index", id+".tar.zst")
			indexDir := filepath.Join(cargoHome, "registry", "index", id)

			if err := os.MkdirAll(indexDir, 0755); err != nil {
				return 0, err
			}
			n, err := fetchAndUnpack(ctx, oc, key, indexDir)
			if err != nil {
				oc.Logger.IndexEvent("error", "sync", id, "", err)
				return 0, err
			}

			hash, err := registryindex.ReadIndexHash(indexDir)
			if err != nil {
				oc.Logger.IndexEvent("error", "sync", id, "", err)
				return n, err
			}

			var names []string
			for _, k := range res.Crates {
				if k.Source.RegistryID == id {
					names = append(names, k.Name)
				}
			}
			if err := registryindex.WriteCacheEntries(indexDir, hash, names); err != nil {
				oc.Logger.IndexEvent("error", "sync", id, hash, err)
				return n, err
			}

			oc.Logger.IndexEvent("info", "synced", id, hash, nil)
			return n, nil
		})
	}
	pool.Wait()
	return pool
}

func syncCrates(ctx context.Context, oc *Context, res *lockfile.Resolved, cargoHome string) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)

	for _, k := range res.Crates {
		k := k
		pool.Go(k.String(), func() (int64, error) {
			key := oc.key(k.LocalID())

			cachePath := filepath.Join(cargoHome, "registry", "cache", k.Source.RegistryID, k.LocalID())
			if err := fetchToFile(ctx, oc, key, cachePath); err != nil {
				oc.Logger.KrateEvent("error", "sync", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}

			got, err := helpers.GetFileSha256(cachePath)
			if err != nil {
				oc.Logger.KrateEvent("error", "sync", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}
			if got != k.Source.Checksum {
				os.Remove(cachePath)
				err := errors.Errorf("checksum mismatch for cached %s: got %s, want %s", k.LocalID(), got, k.Source.Checksum)
				oc.Logger.KrateEvent("error", "sync", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}

			srcParent := filepath.Join(cargoHome, "registry", "src", k.Source.RegistryID)
			if err := os.MkdirAll(srcParent, 0755); err != nil {
				return 0, err
			}
			if err := packer.UnpackAuto(cachePath, srcParent); err != nil {
				oc.Logger.KrateEvent("error", "sync", k.Name, k.Version, k.Source.RegistryID, key, err)
				return 0, err
			}

			info, err := os.Stat(cachePath)
			if err != nil {
				return 0, err
			}
			oc.Logger.KrateEvent("info", "synced", k.Name, k.Version, k.Source.RegistryID, key, nil)
			return info.Size(), nil
		})
	}
	pool.Wait()
	return pool
}

func syncGits(ctx context.Context, oc *Context, gits []*specs.Krate, cargoHome string) *pipeline.Pool {
	pool := pipeline.New(oc.Config.General.Concurrency)

	for _, k := range gits {
		k := k
		pool.Go(k.String(), func() (int64, error) {
			var total int64

			bareKey := oc.key("git", "db", k.Source.RepoIdent+"-"+k.Source.Revision+".tar.zst")
			bareDir := filepath.Join(cargoHome, "git", "db", k.Source.RepoIdent)
			var bareN int64
			var errBare error
			bareDone := make(chan struct{})
			go func() {
				defer close(bareDone)
				bareN, errBare = fetchAndUnpackParallel(ctx, oc, bareKey, bareDir)
			}()

			coKey := oc.key("git", "co", k.Source.RepoIdent+"-"+k.Source.Revision+".tar.zst")
			coDir := filepath.Join(cargoHome, "git", "checkouts", k.Source.RepoIdent, specs.ShortRevision(k.Source.Revision))
			coN, errCo := fetchAndUnpackParallel(ctx, oc, coKey, coDir)
			<-bareDone

			if errBare != nil {
				oc.Logger.GitEvent("error", "sync", k.Source.RepoIdent, k.Source.Revision, bareKey, errBare)
				return 0, errBare
			}
			if errCo != nil {
				oc.Logger.GitEvent("error", "sync", k.Source.RepoIdent, k.Source.Revision, coKey, errCo)
				return 0, errCo
			}
			total = bareN + coN
			oc.Logger.GitEvent("info", "synced", k.Source.RepoIdent, k.Source.Revision, coKey, nil)
			return total, nil
		})
	}
	pool.Wait()
	return pool
}

// fetchAndUnpackParallel is fetchAndUnpack under a name that documents
// why bare/checkout are not sequenced with each other (§4.6: the
// checkout snapshot is self-contained and needs nothing from the bare
// clone on disk, so both downloads for one package proceed at once).
func fetchAndUnpackParallel(ctx context.Context, oc *Context, key, destDir string) (int64, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, err
	}
	return fetchAndUnpack(ctx, oc, key, destDir)
}

// fetchToFile downloads key to an adjacent temp file and renames it
// into place, so a reader of destPath never observes a partial write.
func fetchToFile(ctx context.Context, oc *Context, key, destPath string) error {
	rc, err := oc.Backend.Fetch(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch %s", key)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".sync-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, destPath)
}
