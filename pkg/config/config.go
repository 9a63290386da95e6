// Package config loads the configuration of the reqb command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/request"
)

const (
	EnvPrefix      = "REQB"
	DefaultEnvFile = ".env"
)

const (
	BackendConn  = "conn"
	BackendResty = "resty"
)

const (
	TraceNone = "none"
	TraceLog  = "log"
	TraceDump = "dump"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{ //nolint:gochecknoglobals
	"user-agent": "user_agent",
	"log-level":  "log_level",
	"backend":    "backend",
	"trace":      "trace",
	"charset":    "charset",
}

// Config of the reqb command.
type Config struct {
	TimeoutMS   int64           `mapstructure:"timeout_ms"`
	Timeout     time.Duration   `mapstructure:"-"`
	UserAgent   string          `mapstructure:"user_agent"`
	LogLevel    string          `mapstructure:"log_level"`
	Backend     string          `mapstructure:"backend"`
	Trace       string          `mapstructure:"trace"`
	CharsetName string          `mapstructure:"charset"`
	Charset     request.Charset `mapstructure:"-"`
}

// Options of the Load function, all fields are optional.
type Options struct {
	// ConfigFile is a YAML configuration file.
	ConfigFile string
	// EnvFile is loaded to the process environment, if it exists. Existing variables are not overwritten.
	EnvFile string
	// Flags are bound to the configuration keys, a changed flag has the highest priority.
	Flags *pflag.FlagSet
}

// Load reads the configuration.
// Priority, from the highest: changed flags, REQB_* environment variables, the config file, defaults.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot load env file \"%s\": %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("timeout_ms", request.DefaultTimeout.Milliseconds())
	v.SetDefault("user_agent", client.DefaultUserAgent)
	v.SetDefault("log_level", "info")
	v.SetDefault("backend", BackendConn)
	v.SetDefault("trace", TraceNone)
	v.SetDefault("charset", request.DefaultCharset.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file \"%s\": %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if flag := opts.Flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("cannot bind flag \"%s\": %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("invalid timeout_ms \"%d\" (must be positive milliseconds)", c.TimeoutMS)
	}
	c.Timeout = time.Duration(c.TimeoutMS) * time.Millisecond

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level \"%s\" (expected one of: debug, info, warn, error)", c.LogLevel)
	}

	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case BackendConn, BackendResty:
	default:
		return fmt.Errorf("invalid backend \"%s\" (expected one of: %s, %s)", c.Backend, BackendConn, BackendResty)
	}

	c.Trace = strings.ToLower(c.Trace)
	switch c.Trace {
	case TraceNone, TraceLog, TraceDump:
	default:
		return fmt.Errorf("invalid trace \"%s\" (expected one of: %s, %s, %s)", c.Trace, TraceNone, TraceLog, TraceDump)
	}

	charset, err := request.ParseCharset(c.CharsetName)
	if err != nil {
		return fmt.Errorf("invalid charset: %w", err)
	}
	c.Charset = charset
	return nil
}
