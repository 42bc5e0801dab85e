// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries everything main needs to wire the service.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string
	// DatabaseURL selects the postgres store when set; empty means in-memory.
	DatabaseURL string
	// EnrollmentPrefix is the prefix of generated enrollment numbers.
	EnrollmentPrefix string
	// DevSeed loads a small course catalog at startup for local testing.
	DevSeed bool

	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

// Load reads .env (if present) and the environment. Env always wins over
// the file, which is godotenv's default behavior.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, err
		}
	}

	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("enrollment_prefix", "")
	v.SetDefault("dev_seed", false)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return Config{
		Addr:             v.GetString("addr"),
		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		EnrollmentPrefix: v.GetString("enrollment_prefix"),
		DevSeed:          v.GetBool("dev_seed"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		ShutdownTimeout:  v.GetDuration("shutdown_timeout"),
	}, nil
}
