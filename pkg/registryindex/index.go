/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package registryindex

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	guard "github.com/geaaru/rest-guard/pkg/guard"
	guard_specs "github.com/geaaru/rest-guard/pkg/specs"
	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/registry"
)

// FetchGitIndex clones (or updates, if destDir already holds a clone)
// a git-protocol registry index, leaving its working tree checked out
// at destDir, and returns the commit hex the index's default branch
// HEAD resolved to — the value cargo's .cache entries, and our own
// stale-check, key off of.
func FetchGitIndex(ctx context.Context, repoURL, destDir string) (string, error) {
	var repo *git.Repository

	if _, err := os.Stat(filepath.Join(destDir, ".git")); err == nil {
		repo, err = git.PlainOpen(destDir)
		if err != nil {
			return "", errors.Wrapf(err, "failed to open existing index checkout %s", destDir)
		}
		w, err := repo.Worktree()
		if err != nil {
			return "", err
		}
		err = w.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Force: true})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return "", errors.Wrapf(err, "failed to update index checkout %s", destDir)
		}
	} else {
		repo, err = git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{URL: repoURL})
		if err != nil {
			return "", errors.Wrapf(err, "failed to clone index %s", repoURL)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve index HEAD")
	}
	return head.Hash().String(), nil
}

// ListCrateIndexFiles walks a checked-out git-protocol index tree and
// returns every crate name present (derived from each file's path,
// ignoring the .git/.cache/config.json housekeeping entries).
func ListCrateIndexFiles(indexDir string) ([]string, error) {
	var names []string
	err := filepath.Walk(indexDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == ".cache" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") || info.Name() == "config.json" {
			return nil
		}
		names = append(names, info.Name())
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk index %s", indexDir)
	}
	return names, nil
}

// FetchSparseEntry fetches a single crate's sparse-index metadata
// file over HTTPS and writes it to the per-crate path within destDir
// that cargo's sparse source expects (the same prefix sharding as the
// git-protocol index), returning the response's ETag for staleness
// tracking.
func FetchSparseEntry(g *guard.RestGuard, reg *registry.Registry, crateName, destDir string) (etag string, err error) {
	lname := strings.ToLower(crateName)
	relPath := filepath.Join(registry.CratePrefix(lname), lname)

	host, basePath := splitIndexURL(reg.Index)
	node := guard_specs.NewRestNode(host, host+basePath, true)
	service := guard_specs.NewRestService(host)
	service.Retries = 3
	service.AddNode(node)

	ticket := service.GetTicket()
	_, err = g.CreateRequest(ticket, http.MethodGet, "/"+relPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to build request for %s", crateName)
	}

	if err := g.Do(ticket); err != nil {
		return "", errors.Wrapf(err, "failed to fetch sparse entry for %s", crateName)
	}
	defer ticket.Rip()

	resp := ticket.GetResponse()
	if resp == nil {
		return "", errors.Errorf("no response fetching sparse entry for %s", crateName)
	}

	target := filepath.Join(destDir, relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", err
	}
	fd, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	if _, err := io.Copy(fd, resp.Body); err != nil {
		return "", errors.Wrapf(err, "failed to write sparse entry for %s", crateName)
	}

	return resp.Header.Get("ETag"), nil
}

// FetchSparseConfig fetches a sparse registry's config.json (the
// document that carries the dl/api templates) into destDir, returning
// its ETag as the index-level freshness hash — the sparse-protocol
// analogue of a git index's HEAD commit.
func FetchSparseConfig(g *guard.RestGuard, reg *registry.Registry, destDir string) (etag string, err error) {
	host, basePath := splitIndexURL(reg.Index)
	node := guard_specs.NewRestNode(host, host+basePath, true)
	service := guard_specs.NewRestService(host)
	service.Retries = 3
	service.AddNode(node)

	ticket := service.GetTicket()
	_, err = g.CreateRequest(ticket, http.MethodGet, "/config.json")
	if err != nil {
		return "", errors.Wrap(err, "failed to build request for config.json")
	}

	if err := g.Do(ticket); err != nil {
		return "", errors.Wrap(err, "failed to fetch sparse config.json")
	}
	defer ticket.Rip()

	resp := ticket.GetResponse()
	if resp == nil {
		return "", errors.New("no response fetching sparse config.json")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	fd, err := os.Create(filepath.Join(destDir, "config.json"))
	if err != nil {
		return "", err
	}
	defer fd.Close()

	if _, err := io.Copy(fd, resp.Body); err != nil {
		return "", errors.Wrap(err, "failed to write config.json")
	}

	return resp.Header.Get("ETag"), nil
}

func splitIndexURL(index string) (host, path string) {
	u := index
	for _, scheme := range []string{"sparse+https://", "https://", "sparse+http://", "http://"} {
		if strings.HasPrefix(u, scheme) {
			u = strings.TrimPrefix(u, scheme)
			break
		}
	}
	if i := strings.IndexByte(u, '/'); i >= 0 {
		return u[:i], u[i:]
	}
	return u, ""
}
