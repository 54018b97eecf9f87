package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"fitcore/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "catalogs/base.yaml", bytes.NewReader([]byte("types: []")), "application/yaml")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 9 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	got, rc, err := s.Get(ctx, "catalogs/base.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "types: []" || got.ContentType != "application/yaml" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}

	replaced, err := s.Put(ctx, "catalogs/base.yaml", bytes.NewReader([]byte("types: [1]")), "application/yaml")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced.ETag == info.ETag {
		t.Fatalf("expected new etag after replace")
	}
	if _, err := s.Put(ctx, "catalogs/other.json", bytes.NewReader(nil), ""); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := s.List(ctx, "catalogs/")
	if err != nil || len(list) != 2 || list[0].Key != "catalogs/base.yaml" {
		t.Fatalf("unexpected list %+v err %v", list, err)
	}

	ok, err := s.Delete(ctx, "catalogs/base.yaml")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "catalogs/base.yaml"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, err := s.Head(ctx, "catalogs/base.yaml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	if _, err := New().Put(context.Background(), " ", bytes.NewReader(nil), ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
