/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package packer packs a directory (a registry index, a git bare
// clone or a git checkout) into a single zstd-compressed tar snapshot
// for upload to a Backend, and unpacks one back onto disk on the sync
// side. Individual crate tarballs are already .crate archives and are
// stored as-is rather than packed.
package packer

import (
	"io"
	"os"

	executor "github.com/geaaru/tar-formers/pkg/executor"
	tarf_specs "github.com/geaaru/tar-formers/pkg/specs"
	"github.com/klauspost/compress/zstd"
	v "github.com/spf13/viper"

	"github.com/pkg/errors"
)

// Pack tars dir and writes the zstd-compressed result to w.
func Pack(dir string, w io.Writer) error {
	cfg := tarf_specs.NewConfig(v.New())
	cfg.GetLogging().Level = "warning"

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "failed to create zstd encoder")
	}
	defer enc.Close()

	tarformers := executor.NewTarFormers(cfg)
	tarformers.SetWriter(enc)

	spec := tarf_specs.NewSpecFile()
	spec.SameChtimes = false
	spec.Writer = tarf_specs.NewWriter()
	spec.Writer.AddDir(dir)

	if err := tarformers.RunTaskWriter(spec); err != nil {
		return errors.Wrapf(err, "failed to tar %s", dir)
	}
	return enc.Close()
}

// PackFile is a convenience wrapper around Pack that writes the
// snapshot to a file on disk.
func PackFile(dir, tarballPath string) error {
	fd, err := os.Create(tarballPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", tarballPath)
	}
	defer fd.Close()
	return Pack(dir, fd)
}
