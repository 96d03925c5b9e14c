package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables consulted for the API key, in order.
const (
	EnvAPIKey         = "BLIP_API_KEY"
	EnvAPIKeyFallback = "API_KEY"
)

// DotEnvFile is the file read by LoadDotEnv when no path is given.
const DotEnvFile = ".env"

// SanitizeKey trims whitespace, a leading "Key " prefix in any case and one
// pair of matching surrounding quotes.
func SanitizeKey(raw string) string {
	k := strings.TrimSpace(raw)
	if len(k) >= 4 && strings.EqualFold(k[:4], "key ") {
		k = strings.TrimSpace(k[4:])
	}
	if k != "" && (k[0] == '"' || k[0] == '\'') && k[len(k)-1] == k[0] {
		if len(k) < 2 {
			return ""
		}
		k = strings.TrimSpace(k[1 : len(k)-1])
	}
	return k
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ResolveAPIKey returns the first non-empty sanitized key among flagValue and
// the environment variables.
func ResolveAPIKey(flagValue string) string {
	candidates := []string{flagValue, os.Getenv(EnvAPIKey), os.Getenv(EnvAPIKeyFallback)}
	for _, c := range candidates {
		if k := SanitizeKey(c); k != "" {
			return k
		}
	}
	return ""
}
