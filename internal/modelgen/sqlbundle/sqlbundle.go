// Package sqlbundle renders executable DDL for generated model descriptors
// so record adapters can create their tables without hand-written schemas.
package sqlbundle

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"

	"traitcore/pkg/modelapi"
)

// Dialect selects the SQL flavor a bundle renders for.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Bundle holds the rendered DDL of one descriptor for both dialects.
type Bundle struct {
	Table    string
	SQLite   string
	Postgres string
}

// ForDialect returns the script matching the dialect.
func (b Bundle) ForDialect(d Dialect) (string, error) {
	switch d {
	case DialectSQLite:
		return b.SQLite, nil
	case DialectPostgres:
		return b.Postgres, nil
	default:
		return "", fmt.Errorf("sqlbundle: unknown dialect %q", d)
	}
}

// TableName derives the storage table name from the descriptor name:
// IdentifiableTemporalModel -> identifiable_temporal_model.
func TableName(t *modelapi.Type) string {
	var b strings.Builder
	for i, r := range t.Name() {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForModel renders CREATE TABLE scripts for the descriptor's attribute set.
// Descriptors without fields get a single synthetic row-key column so the
// table is still creatable.
func ForModel(t *modelapi.Type) (Bundle, error) {
	if t == nil {
		return Bundle{}, fmt.Errorf("sqlbundle: nil descriptor")
	}
	bundle := Bundle{Table: TableName(t)}
	var err error
	if bundle.SQLite, err = render(t, bundle.Table, DialectSQLite); err != nil {
		return Bundle{}, err
	}
	if bundle.Postgres, err = render(t, bundle.Table, DialectPostgres); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

func render(t *modelapi.Type, table string, dialect Dialect) (string, error) {
	var cols []string
	for _, f := range t.Fields() {
		colType, err := columnType(f.Kind, dialect)
		if err != nil {
			return "", fmt.Errorf("sqlbundle: %s: field %s: %w", t.Name(), f.Name, err)
		}
		col := fmt.Sprintf("  %s %s", f.Name, colType)
		if f.Name == "id" {
			col += " PRIMARY KEY"
		} else if f.Required {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		cols = append(cols, "  row_key TEXT PRIMARY KEY")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);\n", table, strings.Join(cols, ",\n")), nil
}

func columnType(kind modelapi.FieldKind, dialect Dialect) (string, error) {
	switch dialect {
	case DialectSQLite:
		switch kind {
		case modelapi.KindString:
			return "TEXT", nil
		case modelapi.KindInt:
			return "INTEGER", nil
		case modelapi.KindFloat:
			return "REAL", nil
		case modelapi.KindBool:
			return "INTEGER", nil
		case modelapi.KindTime:
			return "TEXT", nil
		case modelapi.KindStringList, modelapi.KindMap, modelapi.KindAny:
			return "TEXT", nil
		}
	case DialectPostgres:
		switch kind {
		case modelapi.KindString:
			return "TEXT", nil
		case modelapi.KindInt:
			return "BIGINT", nil
		case modelapi.KindFloat:
			return "DOUBLE PRECISION", nil
		case modelapi.KindBool:
			return "BOOLEAN", nil
		case modelapi.KindTime:
			return "TIMESTAMPTZ", nil
		case modelapi.KindStringList, modelapi.KindMap, modelapi.KindAny:
			return "JSONB", nil
		}
	default:
		return "", fmt.Errorf("unknown dialect %q", dialect)
	}
	return "", fmt.Errorf("unknown kind %q", kind)
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}

	return stmts
}
