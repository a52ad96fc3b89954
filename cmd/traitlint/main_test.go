package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"traitcore/internal/lint"
)

func TestRunUsesDefaults(t *testing.T) {
	var gotRoots []string
	var gotBase string
	exit := run([]string{"cmd"}, &bytes.Buffer{}, func(baseDir string, roots []string) ([]lint.Error, error) {
		gotBase = baseDir
		gotRoots = roots
		return nil, nil
	})
	if exit != 0 {
		t.Fatalf("expected exit 0, got %d", exit)
	}
	if strings.Join(gotRoots, ",") != defaultRoots {
		t.Fatalf("expected roots %q, got %q", defaultRoots, strings.Join(gotRoots, ","))
	}
	if gotBase == "" {
		t.Fatalf("expected base dir to be set")
	}
}

func TestMainUsesExitCode(t *testing.T) {
	originalExit := exitFunc
	originalScan := scanFunc
	originalGetwd := getwd
	originalArgs := os.Args
	t.Cleanup(func() {
		exitFunc = originalExit
		scanFunc = originalScan
		getwd = originalGetwd
		os.Args = originalArgs
	})
	var got int
	exitFunc = func(code int) { got = code }
	scanFunc = func(string, []string) ([]lint.Error, error) {
		return nil, nil
	}
	getwd = func() (string, error) { return t.TempDir(), nil }
	os.Args = []string{"cmd"}
	main()
	if got != 0 {
		t.Fatalf("expected exit code 0, got %d", got)
	}
}

func TestRunWithNoArgs(t *testing.T) {
	exit := run([]string{}, &bytes.Buffer{}, func(string, []string) ([]lint.Error, error) {
		return nil, nil
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
}

func TestRunFlagParseError(t *testing.T) {
	var stderr bytes.Buffer
	exit := run([]string{"cmd", "-unknown"}, &stderr, func(string, []string) ([]lint.Error, error) {
		return nil, nil
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if stderr.Len() == 0 {
		t.Fatalf("expected flag parse output")
	}
}

func TestRunGetwdFailure(t *testing.T) {
	originalGetwd := getwd
	getwd = func() (string, error) { return "", errors.New("nope") }
	t.Cleanup(func() { getwd = originalGetwd })
	var stderr bytes.Buffer
	exit := run([]string{"cmd"}, &stderr, func(string, []string) ([]lint.Error, error) {
		return nil, nil
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "resolve working directory") {
		t.Fatalf("expected getwd error, got %q", stderr.String())
	}
}

func TestRunReportsScanError(t *testing.T) {
	var stderr bytes.Buffer
	exit := run([]string{"cmd"}, &stderr, func(string, []string) ([]lint.Error, error) {
		return nil, errors.New("boom")
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "declaration lint failed") {
		t.Fatalf("expected error message, got %q", stderr.String())
	}
}

func TestRunReportsFindings(t *testing.T) {
	var stderr bytes.Buffer
	exit := run([]string{"cmd"}, &stderr, func(string, []string) ([]lint.Error, error) {
		return []lint.Error{
			{File: "app/wire.go", Line: 12, Message: "unknown trait identifier trait.Bogus", Code: "trait.MustDeclare(w, trait.Bogus)"},
		}, nil
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "Found 1 trait declaration problems") {
		t.Fatalf("expected findings header, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "app/wire.go:12") {
		t.Fatalf("expected finding location, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "Code: trait.MustDeclare(w, trait.Bogus)") {
		t.Fatalf("expected offending line, got %q", stderr.String())
	}
}

func TestRunRequiresRoots(t *testing.T) {
	var stderr bytes.Buffer
	exit := run([]string{"cmd", "-roots="}, &stderr, func(string, []string) ([]lint.Error, error) {
		return nil, nil
	})
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr.String(), "no roots provided") {
		t.Fatalf("expected roots error, got %q", stderr.String())
	}
}

func TestRunScansFixtureTree(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "app"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := `package app

import "traitcore/pkg/trait"

func register(w any) {
	trait.MustDeclare(w, trait.Auditable)
}
`
	if err := os.WriteFile(filepath.Join(base, "app", "wire.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	originalGetwd := getwd
	getwd = func() (string, error) { return base, nil }
	t.Cleanup(func() { getwd = originalGetwd })

	var stderr bytes.Buffer
	exit := run([]string{"cmd", "-roots=app"}, &stderr, lint.Scan)
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d (stderr: %s)", exit, stderr.String())
	}
	if !strings.Contains(stderr.String(), "app/wire.go:6") {
		t.Fatalf("expected fixture finding, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "dependency-incomplete declaration") {
		t.Fatalf("expected dependency message, got %q", stderr.String())
	}
}

func TestSplitRoots(t *testing.T) {
	roots := splitRoots(" pkg/trait , internal/modelgen ,,")
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0] != "pkg/trait" || roots[1] != "internal/modelgen" {
		t.Fatalf("unexpected roots: %v", roots)
	}
}

func TestSplitRootsEmpty(t *testing.T) {
	if roots := splitRoots("   "); roots != nil {
		t.Fatalf("expected nil roots, got %v", roots)
	}
}
