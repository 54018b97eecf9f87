package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

type captureFatal struct{ msg string }

func (c *captureFatal) Fatalf(format string, args ...any) { c.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestInternalImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"fitcore/internal/core", true},
		{"fitcore/pkg/domain", false},
		{"internal/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestStorageImportForbidden(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"database/sql", true},
		{"fitcore/internal/infra/blob/s3", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"modernc.org/sqlite", true},
		{"database/sql/driver", false},
		{"fitcore/internal/core", false},
		{"github.com/prometheus/client_golang/prometheus", false},
	}
	for _, c := range cases {
		if got := StorageImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"fitcore/internal/core\"\n)\nvar _ = fmt.Sprint\nvar _ core.Option\n")
	writeGo(t, dir, "a_test.go", "package tmp\nimport \"fitcore/internal/config\"\n")
	writeGo(t, dir, "notes.txt", "import \"fitcore/internal/x\"")

	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "fitcore/internal/core (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatal("expected error for missing directory")
	}
	dir := t.TempDir()
	writeGo(t, dir, "bad.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	AssertNoDirectImports(t, dir, InternalImportForbidden, "none")
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := loadPackages
	t.Cleanup(func() { loadPackages = orig })

	sql := &packages.Package{PkgPath: "database/sql", Imports: map[string]*packages.Package{}}
	infra := &packages.Package{PkgPath: "fitcore/internal/infra/catalog/sqlite", Imports: map[string]*packages.Package{"database/sql": sql}}
	root := &packages.Package{PkgPath: "fitcore/internal/catalog", Imports: map[string]*packages.Package{
		"database/sql": sql,
		"fitcore/internal/infra/catalog/sqlite": infra,
	}}
	loadPackages = func(string) ([]*packages.Package, error) { return []*packages.Package{root}, nil }

	viols, err := transitiveDependencyViolations("fitcore/internal/catalog", StorageImportForbidden)
	if err != nil {
		t.Fatalf("violations: %v", err)
	}
	if strings.Join(viols, ",") != "database/sql,fitcore/internal/infra/catalog/sqlite" {
		t.Fatalf("unexpected violations %v", viols)
	}

	loadPackages = func(string) ([]*packages.Package, error) { return nil, errors.New("boom") }
	if _, err := transitiveDependencyViolations("./...", StorageImportForbidden); err == nil {
		t.Fatal("expected load error")
	}
}

func TestFailIfViolations(t *testing.T) {
	var c captureFatal
	failIfViolations(&c, "forbidden direct imports", "reason", nil)
	if c.msg != "" {
		t.Fatalf("unexpected failure %q", c.msg)
	}
	failIfViolations(&c, "forbidden direct imports", "reason", []string{"a", "b"})
	if !strings.Contains(c.msg, "(reason)") || !strings.Contains(c.msg, "a\nb") {
		t.Fatalf("unexpected message %q", c.msg)
	}
}
