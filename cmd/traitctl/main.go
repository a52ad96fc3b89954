// Command traitctl inspects the compiled trait catalog: listing and showing
// contracts, rendering the dependency graph, evaluating compositions, and
// exporting the canonical catalog document to stdout or the archive store.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI against the given argument vector and streams, and
// returns the process exit code. Invocation mistakes (unknown traits, bad
// flags, format typos) map to exitUserError; environment failures (archive
// access, embedded document corruption) map to exitSysError.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "traitctl: %v\n", err)
		var sys *systemError
		if errors.As(err, &sys) {
			return exitSysError
		}
		return exitUserError
	}
	return exitSuccess
}

// systemError marks failures of the surrounding environment rather than of
// the invocation itself.
type systemError struct {
	err error
}

func (e *systemError) Error() string { return e.err.Error() }

func (e *systemError) Unwrap() error { return e.err }
