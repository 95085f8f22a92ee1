/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/backend"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/logger"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/operations"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

func mirrorCmdCommand(config *specs.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Stage every crate and git dependency a lockfile names into the backend cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(config)
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.String("max-stale", config.Viper.GetString("general.max_stale"),
		"Skip refreshing a registry index snapshot newer than this (e.g. 1h, 2d).")
	config.Viper.BindPFlag("general.max_stale", pflags.Lookup("max-stale"))

	return cmd
}

func runMirror(config *specs.Config) error {
	log := logger.GetDefaultLogger()

	be, err := backend.Open(context.Background(), config.Backend.Url, config.Backend.Prefix)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}

	workDir, err := os.MkdirTemp("", "cargo-fetcher-mirror-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	oc, err := operations.NewContext(config, log, be, workDir)
	if err != nil {
		return err
	}

	log.Info(fmt.Sprintf("mirroring %s into %s", config.General.LockFile, config.Backend.Url))

	summary, err := operations.Mirror(context.Background(), oc, config.General.LockFile)
	if err != nil {
		return err
	}

	fmt.Print(summary.String())
	if summary.HasFailures() {
		os.Exit(1)
	}
	return nil
}
