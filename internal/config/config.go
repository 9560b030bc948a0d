// Package config loads livechat settings from defaults, an optional TOML
// file, .env and LIVECHAT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. LIVECHAT_RELAY_PORT.
const EnvPrefix = "LIVECHAT_"

// DefaultPaths are tried in order when no explicit config file is given.
var DefaultPaths = []string{"./livechat.toml", "$HOME/.livechat.toml"}

// Config is the full application configuration.
type Config struct {
	Relay  RelayConfig  `koanf:"relay"`
	Client ClientConfig `koanf:"client"`
	Log    LogConfig    `koanf:"log"`
}

// RelayConfig configures the channel server.
type RelayConfig struct {
	// Port for local serving; negative disables it.
	Port int    `koanf:"port"`
	Name string `koanf:"name"`
	// ServerURLs are Portal relay servers to publish through.
	ServerURLs []string `koanf:"server_urls"`
	CredKey    string   `koanf:"cred_key"`
}

// ClientConfig configures the visitor and pastor consoles.
type ClientConfig struct {
	URL              string        `koanf:"url"`
	DataPath         string        `koanf:"data_path"`
	Ephemeral        bool          `koanf:"ephemeral"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

func defaults() map[string]any {
	return map[string]any{
		"relay.port":               8093,
		"relay.name":               "livechat",
		"relay.server_urls":        splitList(os.Getenv("RELAY")),
		"client.url":               "ws://localhost:8093/ws",
		"client.handshake_timeout": "10s",
		"client.write_timeout":     "10s",
		"log.level":                "info",
		"log.pretty":               true,
	}
}

// Load builds the configuration. path may be empty, in which case
// DefaultPaths are tried and a missing file is not an error. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		for _, p := range DefaultPaths {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", p, err)
			}
			break
		}
	}

	// LIVECHAT_CLIENT_DATA_PATH -> client.data_path: only the first
	// underscore separates the section.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Relay.ServerURLs = splitList(strings.Join(cfg.Relay.ServerURLs, ","))
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Client.URL == "" {
		return errors.New("client url is required")
	}
	if c.Relay.Name == "" {
		return errors.New("relay name is required")
	}
	if !c.Client.Ephemeral && c.Client.DataPath == "" {
		return errors.New("client data_path is required unless ephemeral")
	}
	return nil
}

// DefaultDataPath is the per-role profile directory under the user's home.
func DefaultDataPath(role string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".livechat/" + role
	}
	return home + "/.livechat/" + role
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
