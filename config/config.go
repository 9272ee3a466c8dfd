/*
Package config loads server settings from the environment.

PURPOSE:
  One place that knows every knob of the rent engine server. Values come
  from an optional .env file (joho/godotenv), then the process environment;
  cmd/server flags override the result.

ENVIRONMENT:
  RENT_PORT                 HTTP port (default: 8080)
  RENT_DB_PATH              SQLite path, ":memory:" allowed (default: rent.db)
  LOG_LEVEL                 debug, info, warn, error (default: info)
  RENT_CORS_ORIGINS         Comma separated allowed origins
  RENT_DISCOUNT_ALLOCATION  per_term | per_property (default: per_term)
  RENT_PRORATION            time | none (default: time)
  RENT_BALANCE_CARRY        term_remainder | running (default: term_remainder)
  RENT_REFRESH_INTERVAL     Outstanding balance gauge refresh (default: 1m)

SEE ALSO:
  - cmd/server/main.go: Flag overrides and startup
  - lease/policy.go: Billing policy values
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	CORSOrigins     []string
	Policy          lease.Policy
	RefreshInterval time.Duration
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:            8080,
		DBPath:          "rent.db",
		LogLevel:        "info",
		CORSOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		Policy:          lease.DefaultPolicy(),
		RefreshInterval: time.Minute,
	}
}

// Load reads .env files (when present) and the environment.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load(envFiles...)
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a lookup function such as os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("RENT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("RENT_PORT: invalid port %q", v)
		}
		cfg.Port = port
	}
	if v, ok := lookup("RENT_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("RENT_CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("RENT_DISCOUNT_ALLOCATION"); ok && v != "" {
		cfg.Policy.DiscountAllocation = lease.DiscountAllocation(v)
	}
	if v, ok := lookup("RENT_PRORATION"); ok && v != "" {
		cfg.Policy.Proration = billing.Proration(v)
	}
	if v, ok := lookup("RENT_BALANCE_CARRY"); ok && v != "" {
		cfg.Policy.BalanceCarry = lease.BalanceCarry(v)
	}
	if v, ok := lookup("RENT_REFRESH_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("RENT_REFRESH_INTERVAL: invalid duration %q", v)
		}
		cfg.RefreshInterval = d
	}

	if err := cfg.Policy.Validate(); err != nil {
		return Config{}, fmt.Errorf("billing policy: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
