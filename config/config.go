/*
Package config loads runtime configuration from the environment and
constructs the shared logger.

PURPOSE:
  One place for env parsing and logger setup. A .env file is loaded if
  present (development convenience); real deployments set the variables
  directly. Flags in cmd/server override these values.

VARIABLES:
  PORT        HTTP port                      (default 8080)
  DB_PATH     SQLite database path           (default canteen.db)
  ADMIN_PIN   Operator PIN for withdrawals   (default 0000)
  LOG_LEVEL   logrus level                   (default info)
  LOG_JSON    "true" for JSON log output     (default false)
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     int
	DBPath   string
	AdminPIN string
	LogLevel string
	LogJSON  bool
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     envInt("PORT", 8080),
		DBPath:   envString("DB_PATH", "canteen.db"),
		AdminPIN: envString("ADMIN_PIN", "0000"),
		LogLevel: envString("LOG_LEVEL", "info"),
		LogJSON:  envString("LOG_JSON", "") == "true",
	}
}

// NewLogger builds the shared logrus logger from the config.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
