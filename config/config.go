package config

import (
	"errors"
	"fmt"
	"strings"

	kerrors "github.com/pilab-dev/keysmith/errors"
	"github.com/pilab-dev/keysmith/internal/primes"
	"github.com/pilab-dev/keysmith/internal/randstr"
	"github.com/pilab-dev/keysmith/internal/report"
	"github.com/pilab-dev/keysmith/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName        = "keysmith"
	ConfigFileName = "keysmith"
	ConfigFileType = "yaml"
	EnvPrefix      = "KEYSMITH"
)

// Config holds the settings shared by the keysmith commands.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	String  StringConfig  `mapstructure:"string"`
	Prime   PrimeConfig   `mapstructure:"prime"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type StringConfig struct {
	Length int    `mapstructure:"length"`
	Pool   string `mapstructure:"pool"`
}

type PrimeConfig struct {
	Bits       int `mapstructure:"bits"`
	MaxRetries int `mapstructure:"max_retries"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Textfile is the path of a node_exporter textfile; empty disables it.
	Textfile string `mapstructure:"textfile"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NewViper returns a viper instance with search paths, env binding and
// defaults set up. cfgFile, when non-empty, replaces the search paths.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/" + AppName + "/")
		v.AddConfigPath("$HOME/." + AppName)
	}

	// KEYSMITH_PRIME_BITS etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("string.length", randstr.DefaultLength)
	v.SetDefault("string.pool", randstr.DefaultChars)
	v.SetDefault("prime.bits", primes.DefaultBits)
	v.SetDefault("prime.max_retries", primes.DefaultMaxRetries)
	v.SetDefault("output.format", string(report.FormatText))
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("tracing.enabled", false)

	return v
}

// BindFlags binds each flag in flags to the config key in keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes it with env and flag
// overrides applied. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings used by both commands.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return kerrors.NewInvalidArgument(fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// ValidateString checks the random string settings.
func (c *Config) ValidateString() error {
	if c.String.Length <= 0 {
		return kerrors.NewInvalidArgument(fmt.Sprintf("string.length must be positive, got %d", c.String.Length))
	}
	if _, err := randstr.NewPool(c.String.Pool); err != nil {
		return err
	}
	return nil
}

// ValidatePrime checks the prime pair settings.
func (c *Config) ValidatePrime() error {
	if c.Prime.Bits < primes.MinBits {
		return kerrors.NewInvalidArgument(fmt.Sprintf("prime.bits must be at least %d, got %d", primes.MinBits, c.Prime.Bits))
	}
	if c.Prime.MaxRetries < 1 {
		return kerrors.NewInvalidArgument(fmt.Sprintf("prime.max_retries must be positive, got %d", c.Prime.MaxRetries))
	}
	return nil
}
