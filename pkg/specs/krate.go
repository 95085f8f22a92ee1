/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package specs

import "fmt"

// SourceKind discriminates the two closed variants a Krate's Source can be.
// Consumers must switch on this tag; it is not meant to be extended.
type SourceKind int

const (
	SourceRegistry SourceKind = iota
	SourceGit
)

// Source is a tagged union: exactly one of the Registry* or Git* field
// groups is meaningful, selected by Kind.
type Source struct {
	Kind SourceKind

	// Registry variant
	RegistryID   string
	URLTemplate  string
	Checksum     string

	// Git variant
	RepoURL  string
	Reference string
	Revision string
	RepoIdent string
}

func RegistrySource(registryID, urlTemplate, checksum string) Source {
	return Source{
		Kind:        SourceRegistry,
		RegistryID:  registryID,
		URLTemplate: urlTemplate,
		Checksum:    checksum,
	}
}

func GitSource(repoURL, reference, revision, repoIdent string) Source {
	return Source{
		Kind:      SourceGit,
		RepoURL:   repoURL,
		Reference: reference,
		Revision:  revision,
		RepoIdent: repoIdent,
	}
}

func (s Source) IsGit() bool { return s.Kind == SourceGit }

// Krate is a single resolved lockfile entry: a package identifier plus
// the Source it was resolved to.
type Krate struct {
	Name    string
	Version string
	Source  Source
}

func (k *Krate) String() string {
	typ := "registry"
	if k.Source.IsGit() {
		typ = "git"
	}
	return fmt.Sprintf("%s-%s(%s)", k.Name, k.Version, typ)
}

// LocalID is the on-disk/basename identity of the krate: the .crate
// filename for registry packages, or the repo-ident for git packages
// (the bare/checkout trees are addressed by repo-ident + revision, see
// CloudID).
func (k *Krate) LocalID() string {
	if k.Source.IsGit() {
		return k.Source.RepoIdent
	}
	return fmt.Sprintf("%s-%s.crate", k.Name, k.Version)
}

// CloudID is a content identity for this krate's artifact: the
// checksum for registry packages, or repo-ident+revision for git
// packages (the stem of the git snapshot keys). Registry crates are
// keyed in the backend by LocalID, not by CloudID.
func (k *Krate) CloudID() string {
	if k.Source.IsGit() {
		return fmt.Sprintf("%s-%s", k.Source.RepoIdent, k.Source.Revision)
	}
	return k.Source.Checksum
}

// DedupKey identifies krates that resolve to the same underlying
// artifact and therefore should be fetched/unpacked exactly once
// (invariant 5, §3).
func (k *Krate) DedupKey() string {
	if k.Source.IsGit() {
		return "git:" + k.Source.RepoIdent + ":" + k.Source.Revision
	}
	return "registry:" + k.Source.RegistryID + ":" + k.Name + ":" + k.Version
}

// ShortRevision returns the first 7 hex characters of a git revision,
// matching the checkout directory naming in §3.
func ShortRevision(rev string) string {
	if len(rev) <= 7 {
		return rev
	}
	return rev[:7]
}
