// Package config loads the server configuration.
//
// PRECEDENCE (lowest to highest):
//  1. Defaults (setDefaults below)
//  2. superlists.toml in the working directory, or the file given by --config
//  3. SUPERLISTS_* environment variables (SUPERLISTS_SERVER_PORT, SUPERLISTS_MAIL_HOST, ...)
//  4. Command-line flags (--port, --db, ...)
//
// WHY VIPER?
// It merges all four sources into one key space ("server.port"), so the rest
// of the code reads a single typed Config struct and never cares where a
// value came from.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: server.port → SUPERLISTS_SERVER_PORT.
const EnvPrefix = "SUPERLISTS"

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "pretty"}
)

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	Mail      MailConfig      `mapstructure:"mail"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`

	// SecretGenerated is set when no session secret was configured and a
	// random one was made up. Sessions won't survive a restart.
	SecretGenerated bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL is the public scheme+host used in login links, e.g.
	// "https://superlists.example.com". Empty means "whatever the request says".
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	MaxAge time.Duration `mapstructure:"max_age"`
	Secure bool          `mapstructure:"secure"`
}

// MailConfig configures outbound email. With an empty Host, mail is written
// to the log instead of being sent.
type MailConfig struct {
	From     string `mapstructure:"from"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")

	v.SetDefault("database.path", "data/superlists.db")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.max_age", 14*24*time.Hour)
	v.SetDefault("session.secure", false)

	v.SetDefault("mail.from", "noreply@superlists")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)
}

// flags maps command-line flags onto config keys.
var flags = []struct {
	name, key, usage string
}{
	{"port", "server.port", "HTTP port to listen on"},
	{"base-url", "server.base_url", "public base URL used in login links"},
	{"db", "database.path", "path to the SQLite database file"},
	{"log-level", "log.level", "log level: debug, info, warn, error"},
	{"log-format", "log.format", "log format: text, json, pretty"},
}

// Load builds the Config from defaults, config file, environment and args.
// args are the command-line arguments without the program name.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("superlists", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a TOML config file")
	fs.Int("port", 0, "")
	fs.String("base-url", "", "")
	fs.String("db", "", "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	for _, f := range flags {
		fs.Lookup(f.name).Usage = f.usage
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}
	for _, f := range flags {
		// BindPFlag only overrides the key when the flag was actually set.
		if err := v.BindPFlag(f.key, fs.Lookup(f.name)); err != nil {
			return nil, fmt.Errorf("config: binding --%s: %w", f.name, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", *configFile, err)
		}
	} else {
		v.SetConfigName("superlists")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading superlists.toml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.Session.Secret == "" {
		cfg.Session.Secret = genSecret()
		cfg.SecretGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: server.base_url must look like https://host, got %q", c.Server.BaseURL)
		}
	}
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("config: session.secret must be at least 16 characters")
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("config: session.max_age must be positive, got %s", c.Session.MaxAge)
	}
	if c.Mail.Host != "" && (c.Mail.Port <= 0 || c.Mail.Port > 65535) {
		return fmt.Errorf("config: invalid mail.port %d", c.Mail.Port)
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("config: invalid log.level %q (want one of %s)", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("config: invalid log.format %q (want one of %s)", c.Log.Format, strings.Join(validLogFormats, ", "))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("config: ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}

func genSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
