package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvString returns the value of an environment variable and whether it
// is set to a non-empty value.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s=%q is not an integer: %w", key, value, err)
	}
	return parsed, true, nil
}

// EnvDuration parses a duration environment variable ("10m", "30s").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s=%q is not a duration: %w", key, value, err)
	}
	return parsed, true, nil
}
