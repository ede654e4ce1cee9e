package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret returns the credential named by envName (MQTT_PASSWORD,
// PGPASSWORD). A path in envName+"_FILE" takes precedence; its content is
// trimmed and must not be empty. An unset variable yields "".
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	path := os.Getenv(fileEnv)
	if path == "" {
		return os.Getenv(envName), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, path, err)
	}
	secret := strings.TrimSpace(string(content))
	if secret == "" {
		return "", fmt.Errorf("secret file %s=%s is empty", fileEnv, path)
	}
	return secret, nil
}

// EnvOr returns the environment variable name, or def when it is unset or empty.
func EnvOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
