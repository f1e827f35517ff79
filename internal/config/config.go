// Package config loads lastlayer settings from defaults, an optional YAML
// file and LASTLAYER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/scoring"
)

const (
	DefaultConfigDir  = ".lastlayer"
	DefaultConfigFile = "config.yaml"
	EnvPrefix         = "LASTLAYER"
)

type Config struct {
	// File is the config file that was read, empty when none was found.
	File    string
	Backend BackendConfig
	// Profile is the path of a YAML scoring profile. Empty selects the
	// built-in tables.
	Profile string
	Log     LogConfig
	Server  ServerConfig
}

type BackendConfig struct {
	Name    string
	Command string
	Args    []string
}

type LogConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Addr           string
	RateLimit      int
	Burst          int
	CORSOrigins    []string
	TrustedProxies []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.name", "heuristic")
	v.SetDefault("backend.command", "")
	v.SetDefault("backend.args", []string{})
	v.SetDefault("profile", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8088")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.burst", 40)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})
}

// Load reads the configuration. When path is empty the file is looked up as
// ~/.lastlayer/config.yaml and a missing file is not an error; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, DefaultConfigDir, DefaultConfigFile))
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		File: v.ConfigFileUsed(),
		Backend: BackendConfig{
			Name:    v.GetString("backend.name"),
			Command: v.GetString("backend.command"),
			Args:    v.GetStringSlice("backend.args"),
		},
		Profile: v.GetString("profile"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			RateLimit:      v.GetInt("server.rate_limit"),
			Burst:          v.GetInt("server.burst"),
			CORSOrigins:    v.GetStringSlice("server.cors_origins"),
			TrustedProxies: v.GetStringSlice("server.trusted_proxies"),
		},
	}
	if _, err := os.Stat(cfg.File); err != nil {
		cfg.File = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isNotFound reports whether err means the implicit config file is absent.
// SetConfigFile makes viper surface the raw fs error rather than
// ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := backend.New(c.backendOptions()); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server: rate_limit and burst must not be negative")
	}
	for _, p := range c.Server.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("server: trusted_proxies: %q is not an IP address or CIDR", p)
		}
	}
	return nil
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

func (c *Config) backendOptions() backend.Options {
	return backend.Options{Name: c.Backend.Name, Command: c.Backend.Command, Args: c.Backend.Args}
}

// NewBackend builds the configured detection backend.
func (c *Config) NewBackend() (backend.Backend, error) {
	return backend.New(c.backendOptions())
}

// ScoringModel loads the configured profile, or the built-in tables when no
// profile is set.
func (c *Config) ScoringModel() (*scoring.Model, error) {
	if c.Profile == "" {
		return scoring.Default(), nil
	}
	return scoring.LoadProfile(c.Profile)
}
