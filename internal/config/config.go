// Package config loads the router's process environment into a typed,
// validated configuration.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved, validated configuration for a router
// process.
type Config struct {
	BackendIPs       []string      `koanf:"BACKEND_IPS"`
	MaxPerBackend    int           `koanf:"MAX_REQUESTS_PER_BACKEND"`
	RedisURL         string        `koanf:"REDIS_URL"`
	Port             int           `koanf:"PORT"`
	MappingTTL       time.Duration `koanf:"-"`
	MappingTTLInS    int           `koanf:"MAPPING_TTL_IN_S"`
	AllowOrigin      string        `koanf:"ALLOW_ORIGIN"`
	AllowAnyOrigin   bool          `koanf:"-"`
	AllowedOrigins   []string      `koanf:"-"`
	LogLevel         string        `koanf:"LOG_LEVEL"`
	MetricsNamespace string        `koanf:"-"`
}

const (
	defaultPort       = 8080
	defaultTTLSeconds = 3600
	defaultAllowOrig  = "*"
	defaultLogLevel   = "info"
)

// Validate checks the loaded configuration for the required fields and
// normalizes derived values. Missing required values and malformed
// values are aggregated into a single error so an operator sees every
// problem on the first attempt.
func (c *Config) Validate() error {
	var errs []string

	if len(c.BackendIPs) == 0 {
		errs = append(errs, "BACKEND_IPS is required and must be non-empty")
	}

	if c.MaxPerBackend <= 0 {
		errs = append(errs, "MAX_REQUESTS_PER_BACKEND is required and must be a positive integer")
	}

	if strings.TrimSpace(c.RedisURL) == "" {
		errs = append(errs, "REDIS_URL is required")
	} else if _, err := url.Parse(c.RedisURL); err != nil {
		errs = append(errs, fmt.Sprintf("REDIS_URL is malformed: %v", err))
	}

	if c.Port <= 0 {
		c.Port = defaultPort
	}

	if c.MappingTTLInS <= 0 {
		c.MappingTTLInS = defaultTTLSeconds
	}
	c.MappingTTL = time.Duration(c.MappingTTLInS) * time.Second

	if c.AllowOrigin == "" {
		c.AllowOrigin = defaultAllowOrig
	}
	c.AllowAnyOrigin = c.AllowOrigin == "*"
	if !c.AllowAnyOrigin {
		for _, o := range strings.Split(c.AllowOrigin, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.MetricsNamespace = "session_router"

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// splitBackendIPs turns the raw BACKEND_IPS value into a cleaned slice
// of addresses, dropping empty entries left by stray commas.
func splitBackendIPs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseIntEnv parses an integer environment value, returning 0 and no
// error when raw is empty so callers can fall back to a default.
func parseIntEnv(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}
