// Package testutil provides shared environment helpers for integration
// tests that run against a live gateway. It depends only on stdlib.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables holding live gateway credentials.
const (
	EnvUser     = "HTTPFS_USER"
	EnvPassword = "HTTPFS_PASSWORD"
	EnvURL      = "HTTPFS_URL"
)

// Credentials are the live gateway settings read from the environment.
type Credentials struct {
	User     string
	Password string
	URL      string
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// GatewayCredentials loads <module root>/.env and returns the gateway
// credentials. It returns the names of any variables that are unset.
func GatewayCredentials(moduleRoot string) (Credentials, []string) {
	LoadDotEnv(filepath.Join(moduleRoot, ".env"))

	creds := Credentials{
		User:     os.Getenv(EnvUser),
		Password: os.Getenv(EnvPassword),
		URL:      os.Getenv(EnvURL),
	}

	var missing []string

	for name, v := range map[string]string{EnvUser: creds.User, EnvPassword: creds.Password, EnvURL: creds.URL} {
		if v == "" {
			missing = append(missing, name)
		}
	}

	return creds, missing
}
