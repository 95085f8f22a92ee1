/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/logger"
	"github.com/EmbarkStudios/cargo-fetcher/pkg/specs"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cliName = `cargo-fetcher

Mirrors cargo dependency artifacts into an object-store cache and
restores them into a Cargo-compatible on-disk layout, for clean-room
builds that shouldn't have to hit the crates.io network directly.

Distributed under the terms of the GNU General Public License version 3
this tool comes with ABSOLUTELY NO WARRANTY; This is free software, and you
are welcome to redistribute it under certain conditions.
`
)

var (
	BuildTime   string
	BuildCommit string
)

func initConfig(config *specs.Config) {
	config.Viper.SetEnvPrefix(specs.FETCHER_ENV_PREFIX)
	config.Viper.BindEnv("config")
	config.Viper.SetDefault("config", "")

	config.Viper.AutomaticEnv()

	replacer := strings.NewReplacer(".", "__", "-", "_")
	config.Viper.SetEnvKeyReplacer(replacer)

	config.Viper.SetConfigName(specs.FETCHER_CONFIGNAME)

	config.Viper.SetTypeByDefaultValue(true)
}

func initCommand(rootCmd *cobra.Command, config *specs.Config) {
	var pflags = rootCmd.PersistentFlags()

	pflags.StringP("config", "c", "", "cargo-fetcher configuration file")
	pflags.BoolP("debug", "d", config.Viper.GetBool("general.debug"),
		"Enable debug output.")
	pflags.String("lock-file", config.Viper.GetString("general.lock_file"),
		"Path to the Cargo.lock to mirror or sync.")
	pflags.String("url", config.Viper.GetString("backend.url"),
		"Backend URL (file://, s3://, gs://, blob://).")
	pflags.String("prefix", config.Viper.GetString("backend.prefix"),
		"Key prefix within the backend.")
	pflags.Int("timeout", config.Viper.GetInt("general.timeout"),
		"Per-request timeout in seconds.")
	pflags.Int("concurrency", config.Viper.GetInt("general.concurrency"),
		"Maximum number of concurrent fetch/upload tasks per class.")
	pflags.Bool("include-index", config.Viper.GetBool("general.include_index"),
		"Mirror/sync registry index snapshots in addition to crates.")

	config.Viper.BindPFlag("config", pflags.Lookup("config"))
	config.Viper.BindPFlag("general.debug", pflags.Lookup("debug"))
	config.Viper.BindPFlag("general.lock_file", pflags.Lookup("lock-file"))
	config.Viper.BindPFlag("backend.url", pflags.Lookup("url"))
	config.Viper.BindPFlag("backend.prefix", pflags.Lookup("prefix"))
	config.Viper.BindPFlag("general.timeout", pflags.Lookup("timeout"))
	config.Viper.BindPFlag("general.concurrency", pflags.Lookup("concurrency"))
	config.Viper.BindPFlag("general.include_index", pflags.Lookup("include-index"))

	rootCmd.AddCommand(
		mirrorCmdCommand(config),
		syncCmdCommand(config),
	)
}

func Execute() {
	var config *specs.Config = specs.NewConfig(nil)

	initConfig(config)

	var rootCmd = &cobra.Command{
		Short:        cliName,
		Version:      fmt.Sprintf("%s-g%s %s", specs.FETCHER_VERSION, BuildCommit, BuildTime),
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				cmd.Help()
				os.Exit(0)
			}
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			var v *viper.Viper = config.Viper

			v.SetConfigType("yml")
			if v.Get("config") == "" {
				config.Viper.AddConfigPath(".")
			} else {
				v.SetConfigFile(v.Get("config").(string))
			}

			err = config.Unmarshal()
			if err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					// Config file not found; flags/env/defaults still apply.
				} else {
					fmt.Println(err)
					os.Exit(1)
				}
			}

			log := logger.NewLogger(config)
			if config.GetLogging().EnableLogFile && config.GetLogging().Path != "" {
				if err := log.InitLogger2File(); err != nil {
					log.Fatal("Error on initialize logfile")
				}
			}
			log.SetAsDefault()
		},
	}

	initCommand(rootCmd, config)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
