// Package config loads checkout settings from defaults, a TOML file and
// CHECKOUT_ prefixed environment variables.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-checkout/core"
	sqlstore "github.com/goliatone/go-checkout/store/sql"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultEnvPrefix = "CHECKOUT_"

	sectionCheckout    = "checkout"
	sectionPersistence = "persistence"
	sectionLogging     = "logging"
)

// DefaultPaths are probed in order when no explicit path is configured.
var DefaultPaths = []string{"./checkout.toml", "$HOME/.checkout.toml"}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Loader reads the [checkout], [persistence] and [logging] sections. Env
// keys map CHECKOUT_REQUEST_TIMEOUT to checkout.request_timeout and
// CHECKOUT_PERSISTENCE__DSN to persistence.dsn.
type Loader struct {
	Path      string
	EnvPrefix string
	Defaults  map[string]any
}

func NewLoader(path string) *Loader {
	return &Loader{Path: strings.TrimSpace(path), EnvPrefix: DefaultEnvPrefix}
}

func defaultValues() map[string]any {
	return map[string]any{
		"persistence.driver":       sqlstore.DriverSQLite,
		"persistence.dsn":          "file:checkout.db?cache=shared",
		"persistence.ping_timeout": "5s",
		"persistence.migrate":      true,
		"logging.level":            "info",
		"logging.format":           "json",
	}
}

func (l *Loader) load() (*koanf.Koanf, error) {
	k := koanf.New(".")

	defaults := defaultValues()
	if l != nil {
		for key, value := range l.Defaults {
			defaults[key] = value
		}
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	path := ""
	prefix := DefaultEnvPrefix
	if l != nil {
		path = l.Path
		if strings.TrimSpace(l.EnvPrefix) != "" {
			prefix = l.EnvPrefix
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	} else {
		for _, candidate := range DefaultPaths {
			candidate = os.ExpandEnv(candidate)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := k.Load(file.Provider(candidate), toml.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", candidate, err)
			}
			break
		}
	}

	if err := k.Load(env.ProviderWithValue(prefix, ".", func(name string, value string) (string, any) {
		return envKey(prefix, name), strings.TrimSpace(value)
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	return k, nil
}

// envKey returns "" for a bare prefix so koanf skips the variable.
func envKey(prefix string, name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, prefix))
	if key == "" {
		return ""
	}
	if section, field, ok := strings.Cut(key, "__"); ok {
		return section + "." + field
	}
	return sectionCheckout + "." + key
}

// LoadRaw returns the [checkout] section for core.CfgxConfigProvider.
func (l *Loader) LoadRaw(context.Context) (map[string]any, error) {
	k, err := l.load()
	if err != nil {
		return nil, err
	}
	raw := k.Cut(sectionCheckout).Raw()
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func (l *Loader) Persistence() (sqlstore.PersistenceConfig, error) {
	k, err := l.load()
	if err != nil {
		return sqlstore.PersistenceConfig{}, err
	}
	var out sqlstore.PersistenceConfig
	if err := k.Unmarshal(sectionPersistence, &out); err != nil {
		return sqlstore.PersistenceConfig{}, fmt.Errorf("config: decode persistence: %w", err)
	}
	return out, nil
}

func (l *Loader) Logging() (LoggingConfig, error) {
	k, err := l.load()
	if err != nil {
		return LoggingConfig{}, err
	}
	var out LoggingConfig
	if err := k.Unmarshal(sectionLogging, &out); err != nil {
		return LoggingConfig{}, fmt.Errorf("config: decode logging: %w", err)
	}
	return out, nil
}

var _ core.RawConfigLoader = (*Loader)(nil)
