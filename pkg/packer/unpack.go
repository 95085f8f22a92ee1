/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package packer

import (
	"io"

	executor "github.com/geaaru/tar-formers/pkg/executor"
	tarf_specs "github.com/geaaru/tar-formers/pkg/specs"
	tarf_tools "github.com/geaaru/tar-formers/pkg/tools"
	"github.com/klauspost/compress/zstd"
	v "github.com/spf13/viper"

	"github.com/pkg/errors"
)

// Unpack reads a zstd-compressed tar stream from r and materializes
// it under destDir.
func Unpack(r io.Reader, destDir string) error {
	cfg := tarf_specs.NewConfig(v.New())
	cfg.GetLogging().Level = "warning"

	dec, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "failed to create zstd decoder")
	}
	defer dec.Close()

	tarformers := executor.NewTarFormers(cfg)
	tarformers.SetReader(dec)

	spec := tarf_specs.NewSpecFile()

	if err := tarformers.RunTask(spec, destDir); err != nil {
		return errors.Wrapf(err, "failed to unpack snapshot into %s", destDir)
	}
	return nil
}

// UnpackAuto extracts a self-describing archive (gzip or plain tar —
// a published .crate tarball is gzip) at srcFile into destDir,
// auto-detecting the compression rather than assuming zstd, since
// crate tarballs never carry our own snapshot framing.
func UnpackAuto(srcFile, destDir string) error {
	cfg := tarf_specs.NewConfig(v.New())
	cfg.GetLogging().Level = "warning"

	tarformers := executor.NewTarFormers(cfg)
	opts := tarf_tools.NewTarReaderCompressionOpts(true)
	defer opts.Close()

	if err := tarf_tools.PrepareTarReader(srcFile, opts); err != nil {
		return errors.Wrapf(err, "failed to prepare reader for %s", srcFile)
	}
	if opts.CompressReader != nil {
		tarformers.SetReader(opts.CompressReader)
	} else {
		tarformers.SetReader(opts.FileReader)
	}

	spec := tarf_specs.NewSpecFile()
	if err := tarformers.RunTask(spec, destDir); err != nil {
		return errors.Wrapf(err, "failed to unpack %s into %s", srcFile, destDir)
	}
	return nil
}
