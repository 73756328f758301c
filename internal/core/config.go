package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/woundtrack/internal/backend/objectstore"
	"github.com/jo-hoe/woundtrack/internal/capture"
)

const (
	CaptureDeviceVirtual = "virtual"
	CaptureDeviceNone    = "none"

	RemoteDriverNone  = objectstore.DriverNone
	RemoteDriverS3    = objectstore.DriverS3
	RemoteDriverMinio = objectstore.DriverMinio

	defaultPort           = 8080
	defaultMaxUploadBytes = 10 << 20
	defaultPreviewElement = "previewBox"
	defaultCaptureQuality = 95
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type CaptureConfig struct {
	Device         string `yaml:"device"`
	PreviewElement string `yaml:"previewElement"`
	Quality        int    `yaml:"quality"`
	DenyPermission bool   `yaml:"denyPermission"`
}

type MetadataConfig struct {
	CascadeDelete bool `yaml:"cascadeDelete"`
}

type RemoteStorage struct {
	Driver          string `yaml:"driver"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	KeyPrefix       string `yaml:"keyPrefix"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	PathStyle       bool   `yaml:"pathStyle"`
	MaxUploadBytes  int64  `yaml:"maxUploadBytes"`
}

type ServiceConfig struct {
	Port          int            `yaml:"port"`
	Platform      string         `yaml:"platform"`
	Timezone      string         `yaml:"timezone"`
	DataDir       string         `yaml:"dataDir"`
	Database      Database       `yaml:"database"`
	Capture       CaptureConfig  `yaml:"capture"`
	Metadata      MetadataConfig `yaml:"metadata"`
	RemoteStorage RemoteStorage  `yaml:"remoteStorage"`
}

// ConfigPath resolves the config file: $CONFIG_PATH when set, otherwise
// config.yaml in the working directory. explicit reports the former.
func ConfigPath() (path string, explicit bool) {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, true
	}
	return "config.yaml", false
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return &config, nil
}

// DefaultDataDir is the app-private storage root: WOUNDTRACK_DATA_DIR when set,
// otherwise $XDG_DATA_HOME/woundtrack.
func DefaultDataDir() string {
	if explicit := os.Getenv("WOUNDTRACK_DATA_DIR"); explicit != "" {
		return explicit
	}
	xdg.Reload()
	if xdg.DataHome != "" {
		return filepath.Join(xdg.DataHome, "woundtrack")
	}
	return filepath.Join(os.TempDir(), "woundtrack")
}

// ApplyDefaults fills unset fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Platform == "" {
		c.Platform = string(capture.PlatformWeb)
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.ConnectionString == "" {
		c.Database.ConnectionString = filepath.Join(c.DataDir, "woundtrack.db")
	}
	if c.Capture.Device == "" {
		c.Capture.Device = CaptureDeviceVirtual
	}
	if c.Capture.PreviewElement == "" {
		c.Capture.PreviewElement = defaultPreviewElement
	}
	if c.Capture.Quality == 0 {
		c.Capture.Quality = defaultCaptureQuality
	}
	if c.RemoteStorage.Driver == "" {
		c.RemoteStorage.Driver = RemoteDriverNone
	}
	if c.RemoteStorage.MaxUploadBytes == 0 {
		c.RemoteStorage.MaxUploadBytes = defaultMaxUploadBytes
	}
}

// Validate checks field combinations after defaults were applied.
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if _, err := capture.DetectPlatform(c.Platform); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Capture.Device {
	case CaptureDeviceVirtual, CaptureDeviceNone:
	default:
		return fmt.Errorf("unsupported capture device: %s", c.Capture.Device)
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return fmt.Errorf("capture quality must be within 1..100, got %d", c.Capture.Quality)
	}
	switch c.RemoteStorage.Driver {
	case RemoteDriverNone:
	case RemoteDriverS3, RemoteDriverMinio:
		if c.RemoteStorage.Bucket == "" {
			return fmt.Errorf("remote storage driver %s requires a bucket", c.RemoteStorage.Driver)
		}
	default:
		return fmt.Errorf("unsupported remote storage driver: %s", c.RemoteStorage.Driver)
	}
	if c.RemoteStorage.MaxUploadBytes < 0 {
		return fmt.Errorf("maxUploadBytes must not be negative")
	}
	return nil
}

// Location returns the timezone used for day bucketing.
func (c *ServiceConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ObjectStoreConfig maps the remote storage section onto the store settings.
func (r RemoteStorage) ObjectStoreConfig() objectstore.Config {
	return objectstore.Config{
		Driver:          r.Driver,
		Bucket:          r.Bucket,
		Region:          r.Region,
		Endpoint:        r.Endpoint,
		KeyPrefix:       r.KeyPrefix,
		AccessKeyID:     r.AccessKeyID,
		SecretAccessKey: r.SecretAccessKey,
		UseSSL:          r.UseSSL,
		PathStyle:       r.PathStyle,
		MaxUploadBytes:  r.MaxUploadBytes,
	}
}
