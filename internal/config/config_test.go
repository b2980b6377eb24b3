package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
// t.Setenv first so the original values are restored after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STUDIO_ENV", "STUDIO_ADDR", "STUDIO_DB_PATH", "STUDIO_NAME", "STUDIO_ADMIN_USERNAME",
		"STUDIO_ADMIN_PASSWORD", "STUDIO_CSRF_KEY", "STUDIO_RESEND_KEY", "STUDIO_RESEND_FROM",
		"STUDIO_REPLY_TO", "STUDIO_GEMINI_API_KEY", "STUDIO_GEMINI_MODEL", "STUDIO_REDIS_ADDR",
		"STUDIO_TIMEZONE", "STUDIO_SLOW_REQUEST_MS", "STUDIO_SLOW_QUERY_MS", "STUDIO_DRAFT_TIMEOUT_MS", "STUDIO_OUTBOX_INTERVAL_MS",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Env != EnvDevelopment || c.Addr != ":8080" || c.DBPath != "studio.db" || c.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("config = %+v", c)
	}
	if c.SlowRequest != 500*time.Millisecond || c.DraftTimeout != 20*time.Second || c.OutboxInterval != time.Minute || c.SlowQuery != 50*time.Millisecond {
		t.Errorf("durations = %v %v %v %v", c.SlowRequest, c.SlowQuery, c.DraftTimeout, c.OutboxInterval)
	}
}

func TestLoad_EnvFileDoesNotOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "STUDIO_ADDR=:9090\nSTUDIO_NAME=ZenFlow Yoga\nSTUDIO_TIMEZONE=Pacific/Auckland\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDIO_NAME", "Set By Shell")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":9090" {
		t.Errorf("Addr = %q", c.Addr)
	}
	if c.StudioName != "Set By Shell" {
		t.Errorf("StudioName = %q, shell value should win", c.StudioName)
	}
	if c.Location.String() != "Pacific/Auckland" {
		t.Errorf("Location = %v", c.Location)
	}
	if c.Now().Location().String() != "Pacific/Auckland" {
		t.Error("Now not in studio location")
	}
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad env", "STUDIO_ENV", "staging", "STUDIO_ENV"},
		{"bad timezone", "STUDIO_TIMEZONE", "Mars/Olympus", "STUDIO_TIMEZONE"},
		{"bad millis", "STUDIO_SLOW_REQUEST_MS", "fast", "STUDIO_SLOW_REQUEST_MS"},
		{"prod without csrf", "STUDIO_ENV", "production", "STUDIO_CSRF_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error naming %s, got %v", tt.want, err)
			}
		})
	}
}
