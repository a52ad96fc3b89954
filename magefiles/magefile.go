//go:build mage

// Package main provides build targets for the traitcore project using Mage.
//
// Usage:
//
//	mage build     Compile the traitctl and traitlint binaries to bin/
//	mage test      Run all tests
//	mage lint      Run golangci-lint, then the trait declaration lint
//	mage clean     Remove build artifacts
//	mage install   Install the binaries to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = []struct {
	name string
	dir  string
}{
	{"traitctl", "./cmd/traitctl"},
	{"traitlint", "./cmd/traitlint"},
}

// Build compiles the traitctl and traitlint binaries to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for _, bin := range binaries {
		if err := sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, bin.name), bin.dir); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs golangci-lint, then the trait declaration lint over the tree.
func Lint() error {
	if err := sh.RunV("golangci-lint", "run", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "run", "./cmd/traitlint", "-roots=pkg,internal,cmd")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binaries to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	for _, bin := range binaries {
		src := filepath.Join(binaryDir, bin.name)
		dst := filepath.Join(gopath, "bin", bin.name)
		if err := sh.Copy(dst, src); err != nil {
			return err
		}
	}
	return nil
}
