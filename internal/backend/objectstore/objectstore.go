// Package objectstore forwards uploaded images to S3-compatible remote storage.
package objectstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	DriverNone  = "none"
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// ErrDisabled is returned when no remote driver is configured.
var ErrDisabled = errors.New("remote storage is not configured")

// ObjectStore writes objects into a single bucket.
type ObjectStore interface {
	// Put stores data under key and returns a locator for the object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Driver() string
}

type Config struct {
	Driver          string
	Bucket          string
	Region          string
	Endpoint        string
	KeyPrefix       string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	PathStyle       bool
	MaxUploadBytes  int64
}

// New selects the store for cfg.Driver. The none driver yields ErrDisabled.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, ErrDisabled
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverMinio:
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown remote storage driver %s", cfg.Driver)
	}
}

func locator(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}
