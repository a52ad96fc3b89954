package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorageDriverImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"database/sql", true},
		{"database/sql/driver", true},
		{"modernc.org/sqlite", true},
		{"modernc.org/sqlite/lib", true},
		{"github.com/jackc/pgx", true},
		{"github.com/jackc/pgx/v5/stdlib", true},
		{"github.com/aws/aws-sdk-go-v2/service/s3", true},
		{"database/sqlish", false},
		{"modernc.org/sqlite3x", false},
		{"encoding/json", false},
		{"", false},
	}
	for _, c := range cases {
		if got := StorageDriverImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageDriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"traitcore/internal/archive", true},
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
		{"internal", false},
		{"notinternal", false},
		{"", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path with a tiny temp package.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

// TestAssertNoDirectImportsIgnoresTestFiles pins that _test.go files are skipped.
func TestAssertNoDirectImportsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	testSrc := []byte("package tmp\nimport \"some/forbidden/package\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), testSrc, 0o600); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	AssertNoDirectImports(t, dir, func(path string) bool {
		return path == "some/forbidden/package"
	}, "test files are out of scope")
}

// TestAssertNoDirectImportsIgnoresSubdirectories pins the single-directory scope.
func TestAssertNoDirectImportsIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := []byte("package sub\nimport \"some/forbidden/package\"\n")
	if err := os.WriteFile(filepath.Join(sub, "sub.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(path string) bool {
		return path == "some/forbidden/package"
	}, "subdirectories are out of scope")
}

// TestAssertNoTransitiveDependency runs against the current package with a
// predicate that always returns false to exercise the success path.
func TestAssertNoTransitiveDependency(t *testing.T) {
	AssertNoTransitiveDependency(t, ".", func(string) bool { return false }, "none")
}

type recordingLogger struct {
	message string
}

func (r *recordingLogger) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
}

func TestFailIfTransitiveViolationsFormats(t *testing.T) {
	rec := &recordingLogger{}
	failIfTransitiveViolations(rec, "engine purity", []string{"modernc.org/sqlite"})
	if !strings.Contains(rec.message, "engine purity") || !strings.Contains(rec.message, "modernc.org/sqlite") {
		t.Fatalf("expected reason and violation in failure, got %q", rec.message)
	}
	rec.message = ""
	failIfTransitiveViolations(rec, "engine purity", nil)
	if rec.message != "" {
		t.Fatalf("expected no failure for empty violations, got %q", rec.message)
	}
}

func TestFailIfDirectViolationsFormats(t *testing.T) {
	rec := &recordingLogger{}
	failIfDirectViolations(rec, "codec isolation", []string{"database/sql (in x.go)"})
	if !strings.Contains(rec.message, "codec isolation") || !strings.Contains(rec.message, "x.go") {
		t.Fatalf("expected reason and violation in failure, got %q", rec.message)
	}
}

func TestTransitiveDependencyViolationsParsesOutput(t *testing.T) {
	original := goListDeps
	goListDeps = func(string) ([]byte, error) {
		return []byte("encoding/json\nmodernc.org/sqlite\n\n  github.com/jackc/pgx/v5  \n"), nil
	}
	t.Cleanup(func() { goListDeps = original })

	viols, _, err := transitiveDependencyViolations("./...", StorageDriverImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 2 {
		t.Fatalf("expected 2 violations, got %v", viols)
	}
	if viols[0] != "modernc.org/sqlite" || viols[1] != "github.com/jackc/pgx/v5" {
		t.Fatalf("unexpected violations: %v", viols)
	}
}

func TestTransitiveDependencyViolationsPropagatesError(t *testing.T) {
	original := goListDeps
	goListDeps = func(string) ([]byte, error) {
		return []byte("go: error"), errors.New("exit status 1")
	}
	t.Cleanup(func() { goListDeps = original })

	_, out, err := transitiveDependencyViolations("./...", StorageDriverImportForbidden)
	if err == nil {
		t.Fatalf("expected error from go list")
	}
	if string(out) != "go: error" {
		t.Fatalf("expected command output to surface, got %q", out)
	}
}

func TestDirectImportViolationsReportsFileName(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"database/sql\"\n")
	if err := os.WriteFile(filepath.Join(dir, "store.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, StorageDriverImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 || viols[0] != "database/sql (in store.go)" {
		t.Fatalf("unexpected violations: %v", viols)
	}
}
