// Package lint statically checks trait declaration call sites. Every trait
// identifier referenced in a Declare, DeclareOn or MustDeclare call must name
// a catalog trait, and each declared trait set must carry its dependency
// closure either in the same call or in a sibling declaration in the file.
package lint

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"traitcore/pkg/trait"
)

// Error represents one declaration problem found in scanned source.
type Error struct {
	File    string
	Line    int
	Message string
	Code    string
}

// traitPackagePath is the import path whose declaration calls are scanned.
const traitPackagePath = "traitcore/pkg/trait"

// declareFuncs maps scanned call names to the argument index where the trait
// list starts. DeclareOn takes the registry before the implementation.
var declareFuncs = map[string]int{
	"Declare":     1,
	"MustDeclare": 1,
	"DeclareOn":   2,
}

var identifiers = buildIdentifiers()

func buildIdentifiers() map[string]trait.Trait {
	out := make(map[string]trait.Trait, len(trait.Traits()))
	for _, t := range trait.Traits() {
		out[identifierFor(t)] = t
	}
	return out
}

// identifierFor renders the exported Go constant name of t, so
// CAPABILITY_AWARE becomes CapabilityAware.
func identifierFor(t trait.Trait) string {
	parts := strings.Split(t.String(), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = part[:1] + strings.ToLower(part[1:])
	}
	return strings.Join(parts, "")
}

// Scan checks every Go file under the roots. Relative roots resolve against
// baseDir and reported file paths are relative to baseDir. Findings are
// sorted by file then line.
func Scan(baseDir string, roots []string) ([]Error, error) {
	if len(roots) == 0 {
		return nil, errors.New("no roots provided for declaration lint")
	}
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	var findings []Error

	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		rootPath := root
		if !filepath.IsAbs(rootPath) {
			rootPath = filepath.Join(baseAbs, rootPath)
		}
		info, err := os.Stat(rootPath)
		if err != nil {
			return nil, fmt.Errorf("stat root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %s is not a directory", root)
		}
		if err := filepath.WalkDir(rootPath, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}
			rel, err := filepath.Rel(baseAbs, path)
			if err != nil {
				return err
			}
			fileFindings, err := scanFile(path, filepath.ToSlash(rel))
			if err != nil {
				return err
			}
			findings = append(findings, fileFindings...)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Line < findings[j].Line
	})
	return findings, nil
}

// declaration is one scanned call site. traits holds the statically resolved
// trait arguments; open marks calls whose full trait set cannot be known
// statically (variadic spread or non-constant arguments).
type declaration struct {
	pos     token.Pos
	traits  trait.Composition
	unknown []string
	open    bool
}

func scanFile(path, relPath string) ([]Error, error) {
	// #nosec G304 -- path is derived from the validated scan roots
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	alias, ok := traitImportAlias(file)
	if !ok {
		return nil, nil
	}
	calls := collectDeclarations(file, alias)
	if len(calls) == 0 {
		return nil, nil
	}

	var siblings trait.Composition
	for _, call := range calls {
		siblings = siblings.Union(call.traits)
	}

	lines := strings.Split(string(content), "\n")
	var findings []Error
	for _, call := range calls {
		pos := fset.Position(call.pos)
		code := ""
		if pos.Line > 0 && pos.Line <= len(lines) {
			code = strings.TrimSpace(lines[pos.Line-1])
		}
		for _, name := range call.unknown {
			findings = append(findings, Error{
				File:    relPath,
				Line:    pos.Line,
				Message: fmt.Sprintf("unknown trait identifier %s.%s", alias, name),
				Code:    code,
			})
		}
		if call.open {
			continue
		}
		var unsatisfied []string
		for _, dep := range call.traits.MissingDependencies().Traits() {
			if !siblings.Has(dep) {
				unsatisfied = append(unsatisfied, dep.String())
			}
		}
		if len(unsatisfied) > 0 {
			findings = append(findings, Error{
				File:    relPath,
				Line:    pos.Line,
				Message: fmt.Sprintf("dependency-incomplete declaration: missing %s", strings.Join(unsatisfied, ", ")),
				Code:    code,
			})
		}
	}
	return findings, nil
}

// traitImportAlias resolves the local package name the file uses for the
// trait package. Dot and blank imports make call sites unresolvable, so
// files using them are skipped.
func traitImportAlias(file *ast.File) (string, bool) {
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if path != traitPackagePath {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				return "", false
			}
			return imp.Name.Name, true
		}
		return "trait", true
	}
	return "", false
}

func collectDeclarations(file *ast.File, alias string) []declaration {
	var calls []declaration
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok || ident.Name != alias {
			return true
		}
		start, ok := declareFuncs[sel.Sel.Name]
		if !ok {
			return true
		}
		decl := declaration{pos: call.Pos()}
		if call.Ellipsis.IsValid() {
			decl.open = true
		}
		if start < len(call.Args) {
			for _, arg := range call.Args[start:] {
				argSel, ok := arg.(*ast.SelectorExpr)
				if !ok {
					decl.open = true
					continue
				}
				argIdent, ok := argSel.X.(*ast.Ident)
				if !ok || argIdent.Name != alias {
					decl.open = true
					continue
				}
				t, ok := identifiers[argSel.Sel.Name]
				if !ok {
					decl.unknown = append(decl.unknown, argSel.Sel.Name)
					continue
				}
				decl.traits = decl.traits.UnionTrait(t)
			}
		}
		calls = append(calls, decl)
		return true
	})
	return calls
}
