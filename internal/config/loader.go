package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// recognized lists every environment variable the router understands;
// anything else on the process environment is ignored.
var recognized = map[string]bool{
	"BACKEND_IPS":              true,
	"MAX_REQUESTS_PER_BACKEND": true,
	"REDIS_URL":                true,
	"PORT":                     true,
	"MAPPING_TTL_IN_S":         true,
	"ALLOW_ORIGIN":             true,
	"LOG_LEVEL":                true,
}

// Load reads the process environment via koanf's env provider and
// resolves it into a validated Config. Parsing errors (non-integer
// MAX_REQUESTS_PER_BACKEND, PORT or MAPPING_TTL_IN_S) and missing
// required values are both fatal. Parsing errors are returned together
// as one error before validation runs; only when there are none are
// the missing or malformed values reported, together, by Validate.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := &Config{}
	var errs []string

	cfg.BackendIPs = splitBackendIPs(k.String("BACKEND_IPS"))

	if raw := k.String("MAX_REQUESTS_PER_BACKEND"); raw != "" {
		v, err := parseIntEnv("MAX_REQUESTS_PER_BACKEND", raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			cfg.MaxPerBackend = v
		}
	}

	cfg.RedisURL = k.String("REDIS_URL")

	if raw := k.String("PORT"); raw != "" {
		v, err := parseIntEnv("PORT", raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			cfg.Port = v
		}
	}

	if raw := k.String("MAPPING_TTL_IN_S"); raw != "" {
		v, err := parseIntEnv("MAPPING_TTL_IN_S", raw)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			cfg.MappingTTLInS = v
		}
	}

	cfg.AllowOrigin = k.String("ALLOW_ORIGIN")
	cfg.LogLevel = k.String("LOG_LEVEL")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad loads the configuration or panics. Used by processes that
// have no other way to report a fatal startup error before logging is
// initialized.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
