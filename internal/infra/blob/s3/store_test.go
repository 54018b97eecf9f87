package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"fitcore/internal/blob/core"
)

// fakeS3 serves the subset of the S3 REST API the store uses.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
}

type fakeObject struct {
	body        []byte
	contentType string
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string]fakeObject)} }

func (f *fakeS3) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunked(body)
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"` + etagOf(body) + `"`}}), nil
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, http.Header{}), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"ETag":           {`"` + etagOf(obj.body) + `"`},
			"Last-Modified":  {"Mon, 01 Jan 2024 00:00:00 GMT"},
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil, h), nil
		}
		return respond(http.StatusOK, obj.body, h), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func (f *fakeS3) list(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	start, _ := strconv.Atoi(req.URL.Query().Get("continuation-token"))
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	end := len(keys)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	if end < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func respond(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(bytes.NewReader(body)), ContentLength: int64(len(body))}
}

func etagOf(b []byte) string { return fmt.Sprintf("%x", len(b)) }

// decodeChunked strips aws-chunked framing: "<hex>\r\n<data>\r\n...0\r\n<trailers>".
func decodeChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size == 0 {
			return out
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newTestStore(t *testing.T, fake *fakeS3) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Bucket:          "catalogs",
		Endpoint:        "https://s3.test.local",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		PathStyle:       true,
		HTTPClient:      fake,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestS3StoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newTestStore(t, fake)
	if s.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "tq/base.yaml", strings.NewReader("types: []"), "application/yaml")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "tq/base.yaml" || info.Size != 9 || info.ContentType != "application/yaml" {
		t.Fatalf("unexpected info %+v", info)
	}
	_, rc, err := s.Get(ctx, "tq/base.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "types: []" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, _, err := s.Get(ctx, "tq/missing.yaml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := s.Delete(ctx, "tq/base.yaml")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "tq/base.yaml")
	if err != nil || ok {
		t.Fatalf("expected missing delete, got %v %v", ok, err)
	}
}

func TestS3StoreListPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.pageSize = 1
	s := newTestStore(t, fake)
	for _, key := range []string{"tq/b.yaml", "tq/a.yaml", "other/c.yaml"} {
		if _, err := s.Put(ctx, key, strings.NewReader(key), ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := s.List(ctx, "tq/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "tq/a.yaml" || list[1].Key != "tq/b.yaml" {
		t.Fatalf("unexpected list %+v", list)
	}
}
