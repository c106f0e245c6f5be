// Package config provides configuration management for the gateway.
// It handles loading and parsing YAML configuration files and provides
// structured access to the listen address, per-provider settings,
// model aliases, and the Amp upstream key.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/byokey/byokey/internal/byok"
)

// Defaults applied when the file omits the field.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8018
)

// Config represents the application's configuration, loaded from a
// YAML file. A loaded Config is treated as immutable; reloads build a
// new value and swap it in atomically.
type Config struct {
	// Host is the interface the API server binds to.
	Host string `yaml:"host"`

	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// DBPath overrides the token-store database path.
	DBPath string `yaml:"db-path"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url"`

	// Providers maps a provider id to its settings.
	Providers map[byok.Provider]ProviderConfig `yaml:"providers"`

	// ModelAlias maps a provider id to its model alias rules.
	ModelAlias map[byok.Provider][]ModelAlias `yaml:"model-alias"`

	// Amp configures the Amp management-plane proxy.
	Amp AmpConfig `yaml:"amp"`
}

// ProviderConfig holds the per-provider settings.
type ProviderConfig struct {
	// APIKey authenticates directly against the provider, bypassing OAuth.
	APIKey string `yaml:"api-key"`

	// APIKeys lists additional keys rotated through on retryable errors.
	APIKeys []string `yaml:"api-keys"`

	// Enabled gates the provider's models in listings. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Backend reroutes all of this provider's traffic to another provider.
	Backend byok.Provider `yaml:"backend"`

	// Fallback names a provider tried when this one fails.
	Fallback byok.Provider `yaml:"fallback"`

	// ExcludeModels hides models from listings.
	ExcludeModels []string `yaml:"exclude-models"`
}

// IsEnabled reports whether the provider participates in listings and
// routing.
func (p ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// AllAPIKeys returns the configured keys, single key first.
func (p ProviderConfig) AllAPIKeys() []string {
	var keys []string
	if p.APIKey != "" {
		keys = append(keys, p.APIKey)
	}
	for _, k := range p.APIKeys {
		if k != "" && k != p.APIKey {
			keys = append(keys, k)
		}
	}
	return keys
}

// ModelAlias renames a model in listings and requests. With Fork set
// both the canonical id and the alias are exposed.
type ModelAlias struct {
	Name  string `yaml:"name"`
	Alias string `yaml:"alias"`
	Fork  bool   `yaml:"fork"`
}

// AmpConfig configures the transparent Amp proxy.
type AmpConfig struct {
	// UpstreamKey replaces client credentials on forwarded Amp requests.
	UpstreamKey string `yaml:"upstream-key"`
}

// Provider returns the settings for a provider, zero value when absent.
func (c *Config) Provider(id byok.Provider) ProviderConfig {
	if c == nil {
		return ProviderConfig{}
	}
	return c.Providers[id]
}

// Aliases returns the alias rules for a provider.
func (c *Config) Aliases(id byok.Provider) []ModelAlias {
	if c == nil {
		return nil
	}
	return c.ModelAlias[id]
}

// ResolveAlias maps a client-facing model name back to the canonical
// id. Unknown names pass through unchanged.
func (c *Config) ResolveAlias(model string) string {
	if c == nil {
		return model
	}
	for _, aliases := range c.ModelAlias {
		for _, a := range aliases {
			if a.Alias == model {
				return a.Name
			}
		}
	}
	return model
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Host:      DefaultHost,
		Port:      DefaultPort,
		Providers: make(map[byok.Provider]ProviderConfig),
	}
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, applies defaults, and returns it.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Providers == nil {
		config.Providers = make(map[byok.Provider]ProviderConfig)
	}
	return &config, nil
}
