// Package storage stores uploaded entry images on the local disk or in an
// S3 compatible bucket.
package storage

import (
	"errors"
	"time"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// Config selects and configures the image storage driver.
type Config struct {
	Driver    string `env:"STORAGE_DRIVER,default=local"`
	MediaRoot string `env:"MEDIA_ROOT,default=media"`
	MediaURL  string `env:"MEDIA_URL,default=/media"`
	S3        S3Config
}

// S3Config configures S3Store. Endpoint is optional and enables path-style
// addressing for MinIO and other S3 compatible services.
type S3Config struct {
	Bucket          string        `env:"S3_BUCKET"`
	Region          string        `env:"S3_REGION,default=us-east-1"`
	Endpoint        string        `env:"S3_ENDPOINT"`
	AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
	PublicURL       string        `env:"S3_PUBLIC_URL"`
	Timeout         time.Duration `env:"S3_TIMEOUT,default=30s"`
}
