// Package config provides small helpers for reading configuration from
// environment variables with defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of the environment variable key, or fallback if
// it is unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable key, or
// fallback if it is unset or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvDuration returns the duration value of the environment variable
// key (e.g. "5s", "1m"), or fallback if it is unset or unparseable.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
