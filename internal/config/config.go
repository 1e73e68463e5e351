package config

import (
	"fmt"
	"os"
	"strings"
)

// Midtrans holds the gateway credentials. The client key is only handed out
// to frontends embedding the Snap widget; the server key signs everything.
type Midtrans struct {
	ServerKey  string
	ClientKey  string
	Production bool
}

type Config struct {
	Port          string
	Midtrans      Midtrans
	DatabaseDSN   string
	RunMigrations bool
	RabbitURL     string
}

// Load reads the full configuration from the environment. Missing required
// values are reported by Validate, not here, so that one run surfaces all of
// them at once.
func Load() Config {
	return Config{
		Port: env("PORT", "4000"),
		Midtrans: Midtrans{
			ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			ClientKey:  os.Getenv("MIDTRANS_CLIENT_KEY"),
			Production: envBool("MIDTRANS_IS_PRODUCTION", false),
		},
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RunMigrations: envBool("RUN_MIGRATIONS", true),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
	}
}

func (c Config) HTTPAddr() string {
	return ":" + c.Port
}

// Validate returns a single error naming every missing required variable.
// Must pass before the process starts serving traffic.
func (c Config) Validate() error {
	var missing []string
	if c.Midtrans.ServerKey == "" {
		missing = append(missing, "MIDTRANS_SERVER_KEY")
	}
	if c.Midtrans.ClientKey == "" {
		missing = append(missing, "MIDTRANS_CLIENT_KEY")
	}
	if c.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
