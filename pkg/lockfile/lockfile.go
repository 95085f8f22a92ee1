/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package lockfile parses a Cargo.lock (both the v1 TOML-array
// checksum-map shape and the v2 inline-checksum shape) and resolves
// each listed package into a specs.Krate with a typed Source.
package lockfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/registry"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

type tomlPackage struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Source   string `toml:"source"`
	Checksum string `toml:"checksum"`
}

type tomlLock struct {
	Package  []tomlPackage     `toml:"package"`
	Metadata map[string]string `toml:"metadata"`
}

// Resolved is the disjoint output of resolving a lockfile: every
// krate that sources from a registry, and every krate that sources
// from git, deduplicated by (source-kind, key) per §4.3.
type Resolved struct {
	Registries map[string]*registry.Registry // registry-id -> registry
	Crates     []*specs.Krate
	Gits       []*specs.Krate
}

// Load reads and resolves a lockfile at path.
func Load(path string) (*Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read lockfile %s", path)
	}
	return Parse(data)
}

// Parse resolves lockfile bytes into the registry/git krate sets.
func Parse(data []byte) (*Resolved, error) {
	var lock tomlLock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(err, "failed to parse lockfile toml")
	}

	res := &Resolved{
		Registries: map[string]*registry.Registry{},
	}

	seen := map[string]struct{}{}

	defaultCratesIO := registry.CratesIO(registry.ProtocolSparse)
	res.Registries[defaultCratesIO.ShortName()] = defaultCratesIO

	for _, p := range lock.Package {
		if p.Source == "" {
			// "path =" source: a local workspace member, silently skipped.
			continue
		}

		krate, reg, err := resolveOne(p, lock.Metadata)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s-%s", p.Name, p.Version)
		}
		if krate == nil {
			continue
		}

		key := krate.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if krate.Source.IsGit() {
			res.Gits = append(res.Gits, krate)
		} else {
			if reg != nil {
				res.Registries[reg.ShortName()] = reg
			}
			res.Crates = append(res.Crates, krate)
		}
	}

	return res, nil
}

func resolveOne(p tomlPackage, metadata map[string]string) (*specs.Krate, *registry.Registry, error) {
	switch {
	case strings.HasPrefix(p.Source, "registry+"):
		return resolveRegistry(p, metadata)
	case strings.HasPrefix(p.Source, "git+"):
		krate, err := resolveGit(p)
		return krate, nil, err
	case strings.HasPrefix(p.Source, "sparse+"):
		return resolveRegistry(p, metadata)
	default:
		return nil, nil, fmt.Errorf("unsupported source kind %q", p.Source)
	}
}

func resolveRegistry(p tomlPackage, metadata map[string]string) (*specs.Krate, *registry.Registry, error) {
	indexURL := strings.TrimPrefix(strings.TrimPrefix(p.Source, "registry+"), "sparse+")

	checksum := p.Checksum
	if checksum == "" {
		// v1 lockfile shape: checksum lives in [metadata] keyed by a
		// formatted lookup string rather than inline on the package.
		lookup := fmt.Sprintf("checksum %s %s (%s)", p.Name, p.Version, p.Source)
		checksum = metadata[lookup]
	}
	if checksum == "" {
		return nil, nil, errors.New("missing checksum")
	}

	protocol := registry.ProtocolGit
	if strings.HasPrefix(p.Source, "sparse+") {
		protocol = registry.ProtocolSparse
	}

	var reg *registry.Registry
	if isCratesIO(indexURL) {
		reg = registry.CratesIO(protocol)
	} else {
		canon, err := registry.Canonicalize(indexURL)
		if err != nil {
			return nil, nil, err
		}
		indexForHash := canon
		if protocol == registry.ProtocolSparse {
			// Cargo hashes the sparse registry's SourceId over the
			// URL with its "sparse+" scheme prefix intact, so two
			// registries at the same host under different protocols
			// never collide on-disk.
			indexForHash = "sparse+" + canon
		}
		reg = &registry.Registry{Index: indexForHash, Protocol: protocol}
		dl := os.Getenv(dlEnvName(reg.ShortName()))
		if dl == "" {
			dl = strings.TrimSuffix(canon, "/") + "/{crate}/{version}/download"
		}
		reg.Dl = dl
	}

	krate := &specs.Krate{
		Name:    p.Name,
		Version: p.Version,
		Source:  specs.RegistrySource(reg.ShortName(), reg.Dl, checksum),
	}
	return krate, reg, nil
}

func resolveGit(p tomlPackage) (*specs.Krate, error) {
	raw := strings.TrimPrefix(p.Source, "git+")

	idx := strings.IndexByte(raw, '#')
	if idx < 0 {
		return nil, errors.New("git source url missing #<rev> fragment")
	}
	rev := raw[idx+1:]
	base := raw[:idx]

	var reference string
	if qi := strings.IndexByte(base, '?'); qi >= 0 {
		reference = base[qi+1:]
		base = base[:qi]
	}

	if len(rev) < 7 {
		return nil, fmt.Errorf("revision specifier %q is too short", rev)
	}

	canon, err := registry.Canonicalize(base)
	if err != nil {
		return nil, err
	}
	ident := registry.Ident(canon)

	krate := &specs.Krate{
		Name:    p.Name,
		Version: p.Version,
		Source:  specs.GitSource(canon, reference, rev, ident),
	}
	return krate, nil
}

func isCratesIO(indexURL string) bool {
	return strings.Contains(indexURL, "github.com/rust-lang/crates.io-index") ||
		strings.Contains(indexURL, "index.crates.io")
}

func dlEnvName(registryShortName string) string {
	upper := strings.ToUpper(registryShortName)
	upper = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, upper)
	return "CARGO_FETCHER_" + upper + "_DL"
}
