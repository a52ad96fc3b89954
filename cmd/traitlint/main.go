// Command traitlint reports trait declaration call sites that reference
// unknown trait identifiers or declare dependency-incomplete trait sets.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"traitcore/internal/lint"
)

const defaultRoots = "."

var (
	exitFunc = os.Exit
	getwd    = os.Getwd
	scanFunc = lint.Scan
)

func main() {
	exitFunc(run(os.Args, os.Stderr, scanFunc))
}

func run(args []string, stderr io.Writer, scan func(string, []string) ([]lint.Error, error)) int {
	if len(args) == 0 {
		return 1
	}
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.SetOutput(stderr)
	rootsFlag := flags.String("roots", defaultRoots, "comma-separated roots to scan")
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	roots := splitRoots(*rootsFlag)
	if len(roots) == 0 {
		_, _ = fmt.Fprintln(stderr, "no roots provided for declaration lint")
		return 1
	}
	baseDir, err := getwd()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "resolve working directory: %v\n", err)
		return 1
	}

	findings, err := scan(baseDir, roots)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "declaration lint failed: %v\n", err)
		return 1
	}
	if len(findings) > 0 {
		_, _ = fmt.Fprintf(stderr, "Found %d trait declaration problems:\n\n", len(findings))
		for _, finding := range findings {
			if _, writeErr := fmt.Fprintf(stderr, "%s:%d\n", finding.File, finding.Line); writeErr != nil {
				return 1
			}
			if finding.Message != "" {
				if _, writeErr := fmt.Fprintf(stderr, "  %s\n", finding.Message); writeErr != nil {
					return 1
				}
			}
			if finding.Code != "" {
				if _, writeErr := fmt.Fprintf(stderr, "  Code: %s\n", finding.Code); writeErr != nil {
					return 1
				}
			}
			if _, writeErr := fmt.Fprintln(stderr); writeErr != nil {
				return 1
			}
		}
		return 1
	}
	return 0
}

func splitRoots(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}
