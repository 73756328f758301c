package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("WOUNDTRACK_DATA_DIR", dataDir)
	configPath := writeConfig(t, "port: 9090\n")

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Platform != "web" {
		t.Errorf("Expected platform web, got %q", config.Platform)
	}
	if config.DataDir != dataDir {
		t.Errorf("Expected dataDir %q, got %q", dataDir, config.DataDir)
	}
	if config.Database.Type != "sqlite" || config.Database.ConnectionString != filepath.Join(dataDir, "woundtrack.db") {
		t.Errorf("Unexpected database defaults %+v", config.Database)
	}
	if config.Capture.Device != CaptureDeviceVirtual || config.Capture.PreviewElement != "previewBox" || config.Capture.Quality != 95 {
		t.Errorf("Unexpected capture defaults %+v", config.Capture)
	}
	if config.RemoteStorage.Driver != RemoteDriverNone || config.RemoteStorage.MaxUploadBytes != 10<<20 {
		t.Errorf("Unexpected remote storage defaults %+v", config.RemoteStorage)
	}
	if config.Metadata.CascadeDelete {
		t.Error("Expected cascadeDelete to default to false")
	}
	loc, err := config.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Expected local timezone, got %v (%v)", loc, err)
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	configPath := writeConfig(t, `port: 8081
platform: android
timezone: Europe/Berlin
dataDir: /tmp/woundtrack-test
database:
  type: redis
  connectionString: redis://localhost:6379/0
capture:
  device: none
metadata:
  cascadeDelete: true
remoteStorage:
  driver: minio
  bucket: wounds
  endpoint: localhost:9000
  keyPrefix: uploads/
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Platform != "android" || config.Capture.Device != CaptureDeviceNone {
		t.Errorf("Unexpected platform/device %q/%q", config.Platform, config.Capture.Device)
	}
	if config.Database.ConnectionString != "redis://localhost:6379/0" {
		t.Errorf("Unexpected connection string %q", config.Database.ConnectionString)
	}
	if !config.Metadata.CascadeDelete {
		t.Error("Expected cascadeDelete true")
	}
	if config.RemoteStorage.Bucket != "wounds" || config.RemoteStorage.KeyPrefix != "uploads/" {
		t.Errorf("Unexpected remote storage %+v", config.RemoteStorage)
	}
	loc, err := config.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Unexpected location %v (%v)", loc, err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("WOUNDTRACK_DATA_DIR", t.TempDir())
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown platform", "platform: symbian\n", "unsupported platform"},
		{"unknown timezone", "timezone: Mars/Olympus\n", "invalid timezone"},
		{"unknown device", "capture:\n  device: webcam\n", "unsupported capture device"},
		{"quality out of range", "capture:\n  quality: 120\n", "quality"},
		{"bucket missing", "remoteStorage:\n  driver: s3\n", "requires a bucket"},
		{"unknown driver", "remoteStorage:\n  driver: ftp\n", "unsupported remote storage driver"},
		{"malformed yaml", "port: [1,2\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
			if config != nil {
				t.Error("Expected config to be nil on error")
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	if path, explicit := ConfigPath(); path != "config.yaml" || explicit {
		t.Fatalf("expected default path, got %q (explicit=%v)", path, explicit)
	}

	t.Setenv("CONFIG_PATH", "/etc/woundtrack/config.yaml")
	if path, explicit := ConfigPath(); path != "/etc/woundtrack/config.yaml" || !explicit {
		t.Fatalf("expected env path, got %q (explicit=%v)", path, explicit)
	}
}
