package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
	EnvStage      = "stage"
	EnvLocal      = "local"
	EnvTest       = "test"
)

type Config struct {
	ServiceName    string        `koanf:"service_name" mapstructure:"service_name"`
	Env            string        `koanf:"env" mapstructure:"env"`
	AuthAPIURL     string        `koanf:"auth_api_url" mapstructure:"auth_api_url"`
	GraphQLURL     string        `koanf:"graphql_url" mapstructure:"graphql_url"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	TokenCacheTTL  time.Duration `koanf:"token_cache_ttl" mapstructure:"token_cache_ttl"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "checkout",
		Env:            EnvProduction,
		AuthAPIURL:     "https://api.paypal.com/v1/oauth2/token",
		GraphQLURL:     "https://www.paypal.com/graphql",
		RequestTimeout: 30 * time.Second,
		TokenCacheTTL:  15 * time.Minute,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.TrimSpace(strings.ToLower(c.Env)) {
	case EnvProduction, EnvSandbox, EnvStage, EnvLocal, EnvTest:
	default:
		return fmt.Errorf("core: env %q is invalid", c.Env)
	}
	for key, value := range map[string]string{"auth_api_url": c.AuthAPIURL, "graphql_url": c.GraphQLURL} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("core: %s is required", key)
		}
		parsed, err := url.Parse(strings.TrimSpace(value))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: %s %q is invalid", key, value)
		}
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("core: request_timeout must not be negative")
	}
	if c.TokenCacheTTL < 0 {
		return fmt.Errorf("core: token_cache_ttl must not be negative")
	}
	return nil
}
