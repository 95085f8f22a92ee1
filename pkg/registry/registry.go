/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package registry implements the registry-index identity, URL
// canonicalization, and download-URL templating rules the reference
// cargo build tool relies on: the on-disk registry directory name and
// the crate-tarball download URL must both be bit-compatible with what
// cargo itself derives, or a synced tree is not a faithful restore.
package registry

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/siphash"
)

const (
	CratesIOUrl       = "https://github.com/rust-lang/crates.io-index"
	CratesIOSparseUrl = "sparse+https://index.crates.io/"
	CratesIODl        = "https://crates.io/api/v1/crates"
)

type Protocol int

const (
	ProtocolGit Protocol = iota
	ProtocolSparse
)

func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "git":
		return ProtocolGit, nil
	case "sparse":
		return ProtocolSparse, nil
	default:
		return ProtocolGit, fmt.Errorf("unknown registry protocol %q", s)
	}
}

// Registry is the identity and download-URL-construction authority
// for a single cargo package registry.
type Registry struct {
	Index    string
	Dl       string
	Protocol Protocol
}

func New(index, dl string, protocol Protocol) (*Registry, error) {
	canon, err := Canonicalize(index)
	if err != nil {
		return nil, err
	}
	return &Registry{Index: canon, Dl: dl, Protocol: protocol}, nil
}

func CratesIO(protocol Protocol) *Registry {
	index := CratesIOUrl
	if protocol == ProtocolSparse {
		index = CratesIOSparseUrl
	}
	return &Registry{Index: index, Dl: CratesIODl, Protocol: protocol}
}

// ShortName reproduces cargo's `{host}-{siphash}` on-disk directory
// name for a registry index.
func (r *Registry) ShortName() string {
	u, err := url.Parse(r.Index)
	host := "index"
	if err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%s-%s", host, r.hashHex())
}

// hashHex mirrors cargo's Hash impl for a SourceId: a registry source
// hashes as a little-endian u64 kind discriminator (2 for the git
// protocol, 3 for sparse) followed by the registry's Index string (the
// crates.io constant, or the canonicalized index URL the lockfile
// resolver stores, "sparse+"-prefixed for a sparse registry) — the
// discriminator is what keeps a
// sparse registry from colliding with a git-protocol one at the same
// host.
func (r *Registry) hashHex() string {
	var kind uint64 = 2
	if r.Protocol == ProtocolSparse {
		kind = 3
	}
	var kindBuf [8]byte
	binary.LittleEndian.PutUint64(kindBuf[:], kind)
	payload := append(kindBuf[:], []byte(r.Index)...)
	return siphash.ShortHash(payload)
}

// DownloadURL substitutes {crate}, {version}, {prefix}, {lowerprefix}
// and {sha256} placeholders in the registry's dl template, falling
// back to the default crates.io-shaped path when the template has no
// placeholders at all.
func (r *Registry) DownloadURL(name, version, checksum string) string {
	tmpl := r.Dl
	if !strings.Contains(tmpl, "{crate}") && !strings.Contains(tmpl, "{version}") {
		return fmt.Sprintf("%s/%s/%s/download", strings.TrimSuffix(tmpl, "/"), name, version)
	}

	lname := strings.ToLower(name)
	prefix := CratePrefix(lname)
	lowerprefix := strings.ToLower(prefix)

	out := tmpl
	out = strings.ReplaceAll(out, "{crate}", name)
	out = strings.ReplaceAll(out, "{version}", version)
	out = strings.ReplaceAll(out, "{prefix}", prefix)
	out = strings.ReplaceAll(out, "{lowerprefix}", lowerprefix)
	out = strings.ReplaceAll(out, "{sha256}", checksum)
	return out
}

// CratePrefix implements cargo's index-path sharding rule
// (src/cargo/sources/registry/mod.rs get_crate_prefix): 1-char names
// live directly under "1/", 2-char under "2/", 3-char under
// "3/<first-char>/", and 4+-char names are sharded by their first two
// and next two characters. The split is by Unicode scalar value, not
// byte, so multi-byte crate names still produce a two-rune prefix.
func CratePrefix(name string) string {
	runes := []rune(name)
	switch len(runes) {
	case 0:
		return ""
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3/" + string(runes[0])
	default:
		return string(runes[0:2]) + "/" + string(runes[2:4])
	}
}

// Canonicalize normalizes a registry/repo URL the way cargo's
// `Canonicalized` type does: force https, lowercase the host, strip a
// trailing slash, and — only for github.com — strip a trailing
// ".git" suffix (other hosts require the suffix to avoid a redirect).
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.User = nil

	path := strings.TrimSuffix(u.Path, "/")
	if strings.EqualFold(u.Host, "github.com") {
		path = strings.TrimSuffix(path, ".git")
	}
	u.Path = path
	u.Fragment = ""
	u.RawQuery = ""

	return u.String(), nil
}

// Ident is the on-disk repo-ident for a plain git dependency: the
// SipHash short-hash of the canonical URL, with no leading
// discriminator (a git source's Hash impl only ever sees the URL
// field, unlike a registry SourceId's kind-prefixed hash).
func Ident(canonicalURL string) string {
	return siphash.ShortHash([]byte(canonicalURL))
}
