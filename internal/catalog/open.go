package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"fitcore/internal/blob"
	"fitcore/internal/config"
	"fitcore/internal/infra/catalog/postgres"
	"fitcore/internal/infra/catalog/sqlite"
)

// BucketStore persists documents as named JSON buckets.
type BucketStore interface {
	SaveBuckets(ctx context.Context, name string, buckets map[string][]byte) error
	LoadBuckets(ctx context.Context, name string) (map[string][]byte, error)
	Names(ctx context.Context) ([]string, error)
}

// Open loads and builds the catalog selected by cfg.CatalogDriver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := loadDocument(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := Build(doc)
	if err != nil {
		return nil, fmt.Errorf("build catalog %s: %w", doc.Name, err)
	}
	logger.Info("catalog loaded",
		"driver", string(cfg.CatalogDriver),
		"name", c.Name(),
		"types", len(c.types),
		"attributes", len(c.attrs),
		"effects", len(c.effects))
	return c, nil
}

func loadDocument(ctx context.Context, cfg config.Config) (*Document, error) {
	switch cfg.CatalogDriver {
	case config.CatalogFile, "":
		return LoadFile(cfg.CatalogPath)
	case config.CatalogBlob:
		store, err := blob.Open(ctx, cfg.Blob())
		if err != nil {
			return nil, err
		}
		return LoadBlob(ctx, store, cfg.CatalogKey)
	case config.CatalogSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return Load(ctx, store, cfg.CatalogKey)
	case config.CatalogPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return Load(ctx, store, cfg.CatalogKey)
	default:
		return nil, fmt.Errorf("unknown catalog driver %s", cfg.CatalogDriver)
	}
}

// Save writes doc to store under doc.Name.
func Save(ctx context.Context, store BucketStore, doc *Document) error {
	if doc.Name == "" {
		return fmt.Errorf("catalog document has no name")
	}
	buckets, err := doc.Buckets()
	if err != nil {
		return err
	}
	if err := store.SaveBuckets(ctx, doc.Name, buckets); err != nil {
		return fmt.Errorf("save catalog %s: %w", doc.Name, err)
	}
	return nil
}

// Load reads the document stored under name.
func Load(ctx context.Context, store BucketStore, name string) (*Document, error) {
	buckets, err := store.LoadBuckets(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", name, err)
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("catalog %q not found", name)
	}
	return DocumentFromBuckets(name, buckets)
}

// LoadBlob reads a document from key; the format follows the key extension.
func LoadBlob(ctx context.Context, store blob.Store, key string) (*Document, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load catalog blob: %w", err)
	}
	defer func() { _ = rc.Close() }()
	doc, err := Parse(rc, formatOf(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if doc.Name == "" {
		base := path.Base(key)
		doc.Name = base[:len(base)-len(path.Ext(base))]
	}
	return doc, nil
}

// SaveBlob writes doc to key as JSON or YAML depending on the key extension.
func SaveBlob(ctx context.Context, store blob.Store, key string, doc *Document) (blob.Info, error) {
	var buf bytes.Buffer
	contentType := "application/yaml"
	encode := doc.EncodeYAML
	if formatOf(key) == "json" {
		contentType = "application/json"
		encode = doc.EncodeJSON
	}
	if err := encode(&buf); err != nil {
		return blob.Info{}, err
	}
	info, err := store.Put(ctx, key, &buf, contentType)
	if err != nil {
		return blob.Info{}, fmt.Errorf("save catalog blob: %w", err)
	}
	return info, nil
}
