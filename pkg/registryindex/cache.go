/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package registryindex synthesizes the per-crate ".cache" binary
// summaries cargo's registry index source writes lazily on first use,
// so a freshly synced index tree is already warm and cargo never has
// to pay that cost itself (see cargo's
// src/cargo/sources/registry/index.rs for the format this mirrors).
package registryindex

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/registry"
)

// cacheVersion is the leading version byte every .cache entry starts
// with. Cargo has shipped version 1, 2 and 3 over its history; the
// registries this tool talks to today expect 3.
const cacheVersion byte = 3

// WriteCacheEntries synthesizes a .cache/<prefix>/<name> entry for
// every crate name under indexDir, reading each crate's index file
// (a stream of newline-delimited JSON summaries, one per published
// version) and re-emitting it in cargo's binary cache tuple format,
// tagged with headCommit so cargo can tell the cache entry is still
// fresh relative to the index's current HEAD.
func WriteCacheEntries(indexDir, headCommit string, crateNames []string) error {
	cacheDir := filepath.Join(indexDir, ".cache")

	var lastErr error
	for _, name := range crateNames {
		lname := strings.ToLower(name)
		relPath := filepath.Join(registry.CratePrefix(lname), lname)

		buf, err := buildSummary(indexDir, relPath, headCommit)
		if err != nil {
			lastErr = errors.Wrapf(err, "crate %s", name)
			continue
		}

		cachePath := filepath.Join(cacheDir, relPath)
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			lastErr = errors.Wrapf(err, "crate %s", name)
			continue
		}
		if err := os.WriteFile(cachePath, buf, 0644); err != nil {
			lastErr = errors.Wrapf(err, "crate %s", name)
			continue
		}
	}
	return lastErr
}

func buildSummary(indexDir, relPath, headCommit string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, relPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read index entry")
	}

	buf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	buf.WriteByte(cacheVersion)
	buf.WriteString(headCommit)
	buf.WriteByte(0)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		version := extractVersion(line)
		if version == "" {
			continue
		}
		buf.WriteString(version)
		buf.WriteByte(0)
		buf.Write(line)
		buf.WriteByte(0)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan index entry")
	}

	return buf.Bytes(), nil
}

// indexHashFile is a small sidecar cargo-fetcher writes at the root of
// every index snapshot so the hash that identifies "how fresh is this
// index" (a commit id for git-protocol indices, an ETag for sparse
// ones) survives the pack/unpack round trip instead of only existing
// transiently at mirror time.
const indexHashFile = ".index-hash"

// WriteIndexHash records hash at the root of indexDir.
func WriteIndexHash(indexDir, hash string) error {
	return os.WriteFile(filepath.Join(indexDir, indexHashFile), []byte(hash), 0644)
}

// ReadIndexHash reads back the hash WriteIndexHash recorded.
func ReadIndexHash(indexDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, indexHashFile))
	if err != nil {
		return "", errors.Wrap(err, "failed to read index hash")
	}
	return string(data), nil
}

// extractVersion pulls the "vers":"..." field out of a raw index-line
// JSON object without a full JSON decode, mirroring the reference
// tool's own string-search shortcut.
func extractVersion(line []byte) string {
	const marker = `"vers":"`
	idx := bytes.Index(line, []byte(marker))
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(marker):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return string(rest[:end])
}
