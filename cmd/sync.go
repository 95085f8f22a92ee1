/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/backend"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/logger"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/operations"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"
)

func syncCmdCommand(config *specs.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Restore every crate and git dependency a lockfile names from the backend cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(config)
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.String("cargo-home", defaultCargoHome(),
		"Cargo home directory to populate (defaults to $CARGO_HOME or ~/.cargo).")
	config.Viper.BindPFlag("general.cargo_home", pflags.Lookup("cargo-home"))

	return cmd
}

func defaultCargoHome() string {
	if ch := os.Getenv("CARGO_HOME"); ch != "" {
		return ch
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cargo"
	}
	return filepath.Join(home, ".cargo")
}

func runSync(config *specs.Config) error {
	log := logger.GetDefaultLogger()

	be, err := backend.Open(context.Background(), config.Backend.Url, config.Backend.Prefix)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}

	workDir, err := os.MkdirTemp("", "cargo-fetcher-sync-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	oc, err := operations.NewContext(config, log, be, workDir)
	if err != nil {
		return err
	}

	cargoHome := config.Viper.GetString("general.cargo_home")
	if cargoHome == "" {
		cargoHome = defaultCargoHome()
	}

	log.Info(fmt.Sprintf("syncing %s from %s into %s", config.General.LockFile, config.Backend.Url, cargoHome))

	summary, err := operations.Sync(context.Background(), oc, config.General.LockFile, cargoHome)
	if err != nil {
		return err
	}

	fmt.Print(summary.String())
	if summary.HasFailures() {
		os.Exit(1)
	}
	return nil
}
