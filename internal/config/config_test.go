package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pivotlink.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
platform_url: https://vectra.local/
platform_kind: appliance
viewer_url: https://endace.example.com
interval: 10m
listen_addr: localhost:9000
insecure_skip_verify: true
`)

	cfg, err := Loader{ConfigPath: path}.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PlatformURL != "https://vectra.local" {
		t.Errorf("PlatformURL = %q, want trailing slash trimmed", cfg.PlatformURL)
	}
	if cfg.PlatformKind != KindAppliance {
		t.Errorf("PlatformKind = %q", cfg.PlatformKind)
	}
	if cfg.Interval != 10*time.Minute {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if cfg.ListenAddr != "localhost:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be set")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
platform_url: https://vectra.local
platform_kind: appliance
viewer_url: https://endace.example.com
`)

	t.Setenv("PIVOTLINK_PLATFORM_URL", "https://portal.vectra.ai")
	t.Setenv("PIVOTLINK_PLATFORM_KIND", "portal")
	t.Setenv("PIVOTLINK_CLIENT_ID", "client-1")
	t.Setenv("PIVOTLINK_INTERVAL", "30s")
	t.Setenv("PIVOTLINK_RESET_CREDENTIALS", "true")

	cfg, err := Loader{ConfigPath: path}.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PlatformURL != "https://portal.vectra.ai" {
		t.Errorf("PlatformURL = %q, env must win", cfg.PlatformURL)
	}
	if cfg.PlatformKind != KindPortal || cfg.ClientID != "client-1" {
		t.Errorf("portal settings not applied: %+v", cfg)
	}
	if cfg.Interval != 30*time.Second {
		t.Errorf("Interval = %v", cfg.Interval)
	}
	if !cfg.ResetCredentials {
		t.Error("ResetCredentials should be set from env")
	}
}

func TestDefaults(t *testing.T) {
	path := writeConfig(t, `
platform_url: https://vectra.local
platform_kind: appliance
viewer_url: https://endace.example.com
`)

	cfg, err := Loader{ConfigPath: path}.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interval != 5*time.Minute {
		t.Errorf("default Interval = %v, want 5m", cfg.Interval)
	}
	if cfg.ListenAddr != "localhost:9464" {
		t.Errorf("default ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing platform url",
			content: "platform_kind: appliance\nviewer_url: https://e\n",
			wantErr: "platform_url",
		},
		{
			name:    "missing platform kind",
			content: "platform_url: https://v\nviewer_url: https://e\n",
			wantErr: "platform_kind",
		},
		{
			name:    "unknown platform kind",
			content: "platform_url: https://v\nplatform_kind: saas\nviewer_url: https://e\n",
			wantErr: "platform_kind",
		},
		{
			name:    "portal requires client id",
			content: "platform_url: https://v\nplatform_kind: portal\nviewer_url: https://e\n",
			wantErr: "client_id",
		},
		{
			name:    "missing viewer url",
			content: "platform_url: https://v\nplatform_kind: appliance\n",
			wantErr: "viewer_url",
		},
		{
			name:    "bad interval",
			content: "platform_url: https://v\nplatform_kind: appliance\nviewer_url: https://e\ninterval: soon\n",
			wantErr: "interval",
		},
		{
			name:    "slack token without channel",
			content: "platform_url: https://v\nplatform_kind: appliance\nviewer_url: https://e\n",
			wantErr: "slack_channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "slack token without channel" {
				t.Setenv("PIVOTLINK_SLACK_BOT_TOKEN", "xoxb-123")
			}
			path := writeConfig(t, tt.content)
			_, err := Loader{ConfigPath: path}.Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExplicitMissingFileFails(t *testing.T) {
	_, err := Loader{ConfigPath: filepath.Join(t.TempDir(), "nope.yml")}.Load()
	if err == nil {
		t.Fatal("expected error for explicitly named missing config file")
	}
}
