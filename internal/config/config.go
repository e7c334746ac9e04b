// Package config loads the client configuration from defaults, an optional
// YAML file, ART_CHAT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/omochice/art-chat/internal/client"
	"github.com/omochice/art-chat/internal/transport"
)

type Config struct {
	ServerURL   string          `mapstructure:"server_url"`
	Transport   string          `mapstructure:"transport"`
	DialTimeout time.Duration   `mapstructure:"dial_timeout"`
	SendTimeout time.Duration   `mapstructure:"send_timeout"`
	Reconnect   ReconnectConfig `mapstructure:"reconnect"`
	Log         LogConfig       `mapstructure:"log"`
	Bridge      BridgeConfig    `mapstructure:"bridge"`
	History     HistoryConfig   `mapstructure:"history"`
	Profile     ProfileConfig   `mapstructure:"profile"`
}

type ReconnectConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BridgeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type ProfileConfig struct {
	Nickname string `mapstructure:"nickname"`
}

// Flags registers the command-line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.StringP("server", "s", client.DefaultServerURL, "WebSocket server URL")
	fs.StringP("transport", "t", transport.Coder, "WebSocket library: "+strings.Join(transport.Names(), ", "))
	fs.Bool("reconnect", false, "reconnect with backoff when the connection drops")
	fs.Bool("bridge", false, "serve the HTTP host bridge")
	fs.String("bridge-addr", "127.0.0.1:1420", "host bridge listen address")
	fs.String("history", "art-chat.db", "sqlite transcript path, empty disables")
	fs.String("nick", "", "nickname stored in the local profile")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_url", client.DefaultServerURL)
	v.SetDefault("transport", transport.Coder)
	v.SetDefault("dial_timeout", "0s")
	v.SetDefault("send_timeout", "0s")
	v.SetDefault("reconnect.enabled", false)
	v.SetDefault("reconnect.initial_backoff", "1s")
	v.SetDefault("reconnect.max_backoff", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("bridge.enabled", false)
	v.SetDefault("bridge.addr", "127.0.0.1:1420")
	v.SetDefault("history.path", "art-chat.db")
	v.SetDefault("profile.nickname", "")
}

// Load builds the configuration. fs may be nil; when given, only flags the
// user actually set override file and environment values.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ART_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if fs != nil {
		binds := map[string]string{
			"server_url":        "server",
			"transport":         "transport",
			"reconnect.enabled": "reconnect",
			"bridge.enabled":    "bridge",
			"bridge.addr":       "bridge-addr",
			"history.path":      "history",
			"profile.nickname":  "nick",
			"log.level":         "log-level",
		}
		for key, flag := range binds {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if path := configPath(fs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Info().Str("file", path).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	path, err := fs.GetString("config")
	if err != nil {
		return ""
	}
	return path
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server_url %q: scheme must be ws or wss", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server_url %q: missing host", c.ServerURL)
	}
	if !transport.Valid(c.Transport) {
		return fmt.Errorf("unknown transport %q (want one of %s)", c.Transport, strings.Join(transport.Names(), ", "))
	}
	if c.DialTimeout < 0 || c.SendTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Reconnect.Enabled {
		if c.Reconnect.InitialBackoff <= 0 {
			return fmt.Errorf("reconnect.initial_backoff must be positive")
		}
		if c.Reconnect.MaxBackoff < c.Reconnect.InitialBackoff {
			return fmt.Errorf("reconnect.max_backoff must be >= reconnect.initial_backoff")
		}
	}
	if c.Bridge.Enabled && c.Bridge.Addr == "" {
		return fmt.Errorf("bridge.addr is required when the bridge is enabled")
	}
	return nil
}

// ClientConfig returns the relay settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		URL:            c.ServerURL,
		DialTimeout:    c.DialTimeout,
		SendTimeout:    c.SendTimeout,
		Reconnect:      c.Reconnect.Enabled,
		InitialBackoff: c.Reconnect.InitialBackoff,
		MaxBackoff:     c.Reconnect.MaxBackoff,
	}
}
