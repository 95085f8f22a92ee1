/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package specs

import (
	rg "github.com/geaaru/rest-guard/pkg/specs"
	v "github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	FETCHER_CONFIGNAME = "cargo-fetcher"
	FETCHER_ENV_PREFIX  = "CARGO_FETCHER"
	FETCHER_VERSION     = `0.1.0`
)

// Config is the root process configuration, populated from flags,
// environment variables and an optional YAML config file through viper.
type Config struct {
	Viper *v.Viper `yaml:"-" json:"-"`

	General MarkGeneral `mapstructure:"general" json:"general,omitempty" yaml:"general,omitempty"`
	Logging MarkLogging `mapstructure:"logging" json:"logging,omitempty" yaml:"logging,omitempty"`
	Backend BackendConfig `mapstructure:"backend" json:"backend,omitempty" yaml:"backend,omitempty"`
	RgConfig *rg.RestGuardConfig `mapstructure:"rest" json:"rest,omitempty" yaml:"rest,omitempty"`
}

type MarkGeneral struct {
	Debug       bool   `mapstructure:"debug,omitempty" json:"debug,omitempty" yaml:"debug,omitempty"`
	LockFile    string `mapstructure:"lock_file,omitempty" json:"lock_file,omitempty" yaml:"lock_file,omitempty"`
	Concurrency int    `mapstructure:"concurrency,omitempty" json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Timeout     int    `mapstructure:"timeout,omitempty" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	IncludeIndex bool  `mapstructure:"include_index,omitempty" json:"include_index,omitempty" yaml:"include_index,omitempty"`
	MaxStale    string `mapstructure:"max_stale,omitempty" json:"max_stale,omitempty" yaml:"max_stale,omitempty"`
}

type MarkLogging struct {
	Path          string `mapstructure:"path,omitempty" json:"path,omitempty" yaml:"path,omitempty"`
	EnableLogFile bool   `mapstructure:"enable_logfile,omitempty" json:"enable_logfile,omitempty" yaml:"enable_logfile,omitempty"`
	JsonFormat    bool   `mapstructure:"json_format,omitempty" json:"json_format,omitempty" yaml:"json_format,omitempty"`
	Level         string `mapstructure:"level,omitempty" json:"level,omitempty" yaml:"level,omitempty"`
	EnableEmoji   bool   `mapstructure:"enable_emoji,omitempty" json:"enable_emoji,omitempty" yaml:"enable_emoji,omitempty"`
	Color         bool   `mapstructure:"color,omitempty" json:"color,omitempty" yaml:"color,omitempty"`
}

// BackendConfig carries the flags/env needed to construct whichever
// storage backend is selected at runtime (see pkg/backend).
type BackendConfig struct {
	Kind string `mapstructure:"kind,omitempty" json:"kind,omitempty" yaml:"kind,omitempty"`
	Url  string `mapstructure:"url,omitempty" json:"url,omitempty" yaml:"url,omitempty"`
	Prefix string `mapstructure:"prefix,omitempty" json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

func NewConfig(viper *v.Viper) *Config {
	if viper == nil {
		viper = v.New()
	}

	GenDefault(viper)
	return &Config{Viper: viper}
}

func (c *Config) GetGeneral() *MarkGeneral   { return &c.General }
func (c *Config) GetLogging() *MarkLogging   { return &c.Logging }
func (c *Config) GetBackend() *BackendConfig { return &c.Backend }

func (c *Config) GetRest() *rg.RestGuardConfig {
	if c.RgConfig == nil {
		c.RgConfig = rg.NewConfig()
	}
	return c.RgConfig
}

func (c *Config) Unmarshal() error {
	var err error

	err = c.Viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return err
		}
		// else: config file not found; ignore, flags/env/defaults still apply.
	}

	return c.Viper.Unmarshal(&c)
}

func (c *Config) Yaml() ([]byte, error) {
	return yaml.Marshal(c)
}

func GenDefault(viper *v.Viper) {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.lock_file", "Cargo.lock")
	viper.SetDefault("general.concurrency", 8)
	viper.SetDefault("general.timeout", 30)
	viper.SetDefault("general.include_index", true)
	viper.SetDefault("general.max_stale", "1d")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.enable_logfile", false)
	viper.SetDefault("logging.path", "/var/log/cargo-fetcher/cargo-fetcher.log")
	viper.SetDefault("logging.json_format", false)
	viper.SetDefault("logging.enable_emoji", true)
	viper.SetDefault("logging.color", true)

	viper.SetDefault("backend.kind", "file")
	viper.SetDefault("backend.url", "file://./cargo-fetcher-cache")
	viper.SetDefault("backend.prefix", "")

	viper.SetDefault("rest.reqs_timeout", 30)
	viper.SetDefault("rest.user_agent", "cargo-fetcher-bot")
}

func (g *MarkGeneral) HasDebug() bool { return g.Debug }
