// Package config loads fitcore settings from FITCORE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"fitcore/internal/blob"
)

// Prefix is prepended to every variable name.
const Prefix = "FITCORE_"

// CatalogDriver selects where the item catalog is read from.
type CatalogDriver string

const (
	CatalogFile     CatalogDriver = "file"
	CatalogBlob     CatalogDriver = "blob"
	CatalogSQLite   CatalogDriver = "sqlite"
	CatalogPostgres CatalogDriver = "postgres"
)

// Config is the process configuration. CatalogPath is read by the file
// driver; CatalogKey names the catalog inside blob and SQL stores.
type Config struct {
	CatalogDriver CatalogDriver `env:"CATALOG_DRIVER" envDefault:"file"`
	CatalogPath   string        `env:"CATALOG_PATH" envDefault:"catalog.yaml"`
	CatalogKey    string        `env:"CATALOG_KEY" envDefault:"default"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"fitcore.db"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`

	BlobDriver      string `env:"BLOB_DRIVER" envDefault:"fs"`
	BlobFSRoot      string `env:"BLOB_FS_ROOT" envDefault:"./catalogs"`
	BlobS3Bucket    string `env:"BLOB_S3_BUCKET"`
	BlobS3Region    string `env:"BLOB_S3_REGION" envDefault:"us-east-1"`
	BlobS3Endpoint  string `env:"BLOB_S3_ENDPOINT"`
	BlobS3PathStyle bool   `env:"BLOB_S3_PATH_STYLE"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr  string `env:"METRICS_ADDR"`
	MaxCalcDepth int    `env:"MAX_CALC_DEPTH" envDefault:"64"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names and limits.
func (c Config) Validate() error {
	switch c.CatalogDriver {
	case CatalogFile, CatalogBlob, CatalogSQLite, CatalogPostgres:
	default:
		return fmt.Errorf("unknown catalog driver %q", c.CatalogDriver)
	}
	switch blob.Driver(c.BlobDriver) {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
	if c.CatalogDriver == CatalogBlob && blob.Driver(c.BlobDriver) == blob.DriverS3 && c.BlobS3Bucket == "" {
		return fmt.Errorf("%sBLOB_S3_BUCKET required for s3 driver", Prefix)
	}
	if c.MaxCalcDepth <= 0 {
		return fmt.Errorf("max calc depth must be positive, got %d", c.MaxCalcDepth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level converts LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// Blob returns the blob store settings.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.BlobDriver),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Bucket:    c.BlobS3Bucket,
			Region:    c.BlobS3Region,
			Endpoint:  c.BlobS3Endpoint,
			PathStyle: c.BlobS3PathStyle,
		},
	}
}
