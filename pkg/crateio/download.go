/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package crateio fetches a single registry crate tarball over HTTP
// and verifies it against the checksum the lockfile declared.
package crateio

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	guard "github.com/geaaru/rest-guard/pkg/guard"
	guard_specs "github.com/geaaru/rest-guard/pkg/specs"
	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/helpers"
)

// Download fetches downloadURL into destPath and verifies its SHA-256
// against wantSha256. A checksum mismatch deletes the partial file
// and returns an IntegrityError-shaped error; the caller must not
// treat the bytes on disk as valid.
func Download(g *guard.RestGuard, downloadURL, destPath, wantSha256 string) (int64, error) {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid download url %s", downloadURL)
	}

	ssl := u.Scheme == "https"
	node := guard_specs.NewRestNode(u.Host, u.Host+path.Dir(u.Path), ssl)
	service := guard_specs.NewRestService(u.Host)
	service.Retries = 3
	service.AddNode(node)

	ticket := service.GetTicket()
	defer ticket.Rip()

	if _, err := g.CreateRequest(ticket, "GET", "/"+path.Base(u.Path)); err != nil {
		return 0, errors.Wrapf(err, "failed to build request for %s", downloadURL)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, err
	}

	artefact, err := g.DoDownload(ticket, destPath)
	if err != nil {
		if resp := ticket.GetResponse(); resp != nil {
			return 0, fmt.Errorf("%s - %s", err.Error(), resp.Status)
		}
		return 0, err
	}

	got, err := helpers.GetFileSha256(destPath)
	if err != nil {
		return 0, err
	}
	if got != wantSha256 {
		os.Remove(destPath)
		return 0, fmt.Errorf("checksum mismatch for %s: got %s, want %s", downloadURL, got, wantSha256)
	}

	return artefact.Size, nil
}
