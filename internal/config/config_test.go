package config

import (
	"log/slog"
	"testing"

	"fitcore/internal/blob"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CatalogDriver != CatalogFile || cfg.CatalogPath != "catalog.yaml" || cfg.CatalogKey != "default" {
		t.Fatalf("unexpected catalog defaults %+v", cfg)
	}
	if cfg.MaxCalcDepth != 64 || cfg.BlobDriver != "fs" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	lvl, err := cfg.Level()
	if err != nil || lvl != slog.LevelInfo {
		t.Fatalf("expected info level, got %v %v", lvl, err)
	}
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"FITCORE_CATALOG_DRIVER":     "blob",
		"FITCORE_CATALOG_KEY":        "tq/base.yaml",
		"FITCORE_BLOB_DRIVER":        "s3",
		"FITCORE_BLOB_S3_BUCKET":     "catalogs",
		"FITCORE_BLOB_S3_ENDPOINT":   "http://minio:9000",
		"FITCORE_BLOB_S3_PATH_STYLE": "true",
		"FITCORE_LOG_LEVEL":          "debug",
		"FITCORE_MAX_CALC_DEPTH":     "16",
		"FITCORE_METRICS_ADDR":       ":9100",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CatalogDriver != CatalogBlob || cfg.MaxCalcDepth != 16 || cfg.MetricsAddr != ":9100" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	bc := cfg.Blob()
	if bc.Driver != blob.DriverS3 || bc.S3.Bucket != "catalogs" || !bc.S3.PathStyle || bc.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob config %+v", bc)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", lvl)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"catalog driver": {"FITCORE_CATALOG_DRIVER": "mongo"},
		"blob driver":    {"FITCORE_BLOB_DRIVER": "ftp"},
		"s3 bucket":      {"FITCORE_CATALOG_DRIVER": "blob", "FITCORE_BLOB_DRIVER": "s3"},
		"depth":          {"FITCORE_MAX_CALC_DEPTH": "0"},
		"depth syntax":   {"FITCORE_MAX_CALC_DEPTH": "deep"},
		"log level":      {"FITCORE_LOG_LEVEL": "verbose"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(vars); err == nil {
				t.Fatalf("expected error for %v", vars)
			}
		})
	}
}
