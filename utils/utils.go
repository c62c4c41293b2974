package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// GetEnvBool parses key as a boolean ("1", "true", "yes", "on").
func GetEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// GetEnvInt64 parses key as a base-10 integer, returning fallback on error.
func GetEnvInt64(key string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(GetEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetEnvFloat parses key as a float, returning fallback on error.
func GetEnvFloat(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}
