/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package operations composes every other package into the tool's two
// top-level flows, mirror and sync: resolve work from a lockfile,
// dispatch it across bounded concurrency pools, and gather a
// pass/fail summary without letting one artifact's failure cancel its
// siblings.
package operations

import (
	"os"
	"path"
	"strings"

	guard "github.com/geaaru/rest-guard/pkg/guard"
	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/backend"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/logger"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

// Context bundles everything a mirror/sync run needs: the resolved
// config, the selected backend, a shared HTTP client, and a scratch
// directory for clones/downloads that never outlives one run.
type Context struct {
	Config  *specs.Config
	Logger  *logger.Logger
	Backend backend.Backend
	Guard   *guard.RestGuard
	WorkDir string
}

// NewContext builds a Context, constructing its own rest-guard client
// from the config's rest section.
func NewContext(cfg *specs.Config, log *logger.Logger, be backend.Backend, workDir string) (*Context, error) {
	g, err := guard.NewRestGuard(cfg.GetRest())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create scratch dir %s", workDir)
	}
	return &Context{
		Config:  cfg,
		Logger:  log,
		Backend: be,
		Guard:   g,
		WorkDir: workDir,
	}, nil
}

func (c *Context) prefix() string {
	return strings.Trim(c.Config.Backend.Prefix, "/")
}

func (c *Context) key(parts ...string) string {
	return path.Join(append([]string{c.prefix()}, parts...)...)
}
