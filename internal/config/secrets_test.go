package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write secret: %v", err)
	}
	return path
}

func TestResolveSecret(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		file    string // content; "" means no _FILE variable
		want    string
		wantErr string
	}{
		{name: "env only", env: "broker-pass", want: "broker-pass"},
		{name: "neither set", want: ""},
		{name: "file only", file: "db-pass\n", want: "db-pass"},
		{name: "file wins over env", env: "stale", file: "rotated", want: "rotated"},
		{name: "file is trimmed", file: "  db-pass  \n\n", want: "db-pass"},
		{name: "empty file", file: " \n", wantErr: "is empty"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PGPASSWORD", tc.env)
			t.Setenv("PGPASSWORD_FILE", "")
			if tc.file != "" {
				t.Setenv("PGPASSWORD_FILE", writeSecret(t, tc.file))
			}

			got, err := ResolveSecret("PGPASSWORD")
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveSecret_FileNotFound(t *testing.T) {
	t.Setenv("MQTT_PASSWORD_FILE", "/nonexistent/path/to/secret")

	_, err := ResolveSecret("MQTT_PASSWORD")
	if err == nil || !strings.Contains(err.Error(), "MQTT_PASSWORD_FILE") {
		t.Errorf("expected error naming MQTT_PASSWORD_FILE, got %v", err)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_ENV_OR_SET", "db.internal")
	t.Setenv("TEST_ENV_OR_EMPTY", "")

	if got := EnvOr("TEST_ENV_OR_SET", "localhost"); got != "db.internal" {
		t.Errorf("got %q, want db.internal", got)
	}
	if got := EnvOr("TEST_ENV_OR_EMPTY", "localhost"); got != "localhost" {
		t.Errorf("got %q, want localhost", got)
	}
}
