// Package sqliterec persists adapter record sets in SQLite tables created
// from generated model DDL bundles. One table per descriptor; records are
// keyed on their id attribute.
package sqliterec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"traitcore/internal/modelgen/sqlbundle"
	"traitcore/pkg/adapt"
	"traitcore/pkg/modelapi"
)

// Store is a SQLite-backed record store. Safe for concurrent use.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	ready map[string]struct{}
}

// Open opens the SQLite database at path, creating parent directories as
// needed. An empty path defaults to traitcore.db in the working directory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "traitcore.db"
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, &adapt.ResourceError{Resource: dir, Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &adapt.ConnectionError{Adapter: "sqlite", URL: path, Err: err}
	}
	return &Store{db: db, ready: make(map[string]struct{})}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// EnsureModel creates the descriptor's table when it does not exist yet.
func (s *Store) EnsureModel(ctx context.Context, model *modelapi.Type) error {
	bundle, err := bundleFor(model)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx, bundle)
}

func bundleFor(model *modelapi.Type) (sqlbundle.Bundle, error) {
	if model == nil {
		return sqlbundle.Bundle{}, &adapt.ConfigError{Adapter: "sqlite", Reason: "nil model descriptor"}
	}
	bundle, err := sqlbundle.ForModel(model)
	if err != nil {
		return sqlbundle.Bundle{}, &adapt.ConfigError{Adapter: "sqlite", Reason: err.Error()}
	}
	return bundle, nil
}

func (s *Store) ensureLocked(ctx context.Context, bundle sqlbundle.Bundle) error {
	if _, ok := s.ready[bundle.Table]; ok {
		return nil
	}
	for _, stmt := range sqlbundle.SplitStatements(bundle.SQLite) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &adapt.QueryError{Adapter: "sqlite", Query: stmt, Err: err}
		}
	}
	s.ready[bundle.Table] = struct{}{}
	return nil
}

// Upsert inserts the records, replacing the attributes of existing rows with
// the same id. The descriptor must carry an id attribute.
func (s *Store) Upsert(ctx context.Context, model *modelapi.Type, records []adapt.Record) error {
	bundle, err := bundleFor(model)
	if err != nil {
		return err
	}
	if !model.HasField("id") {
		return &adapt.ConfigError{Adapter: "sqlite", Reason: fmt.Sprintf("%s has no id attribute to upsert on", model.Name())}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLocked(ctx, bundle); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	fields := model.Fields()
	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	var updates []string
	for i, f := range fields {
		columns[i] = f.Name
		placeholders[i] = "?"
		if f.Name != "id" {
			updates = append(updates, fmt.Sprintf("%s=excluded.%s", f.Name, f.Name))
		}
	}
	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ",")
	}
	stmt := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s) ON CONFLICT(id) %s",
		bundle.Table, strings.Join(columns, ","), strings.Join(placeholders, ","), conflict)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &adapt.ConnectionError{Adapter: "sqlite", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, rec := range records {
		args := make([]any, len(fields))
		for i, f := range fields {
			v, err := bindValue(rec[f.Name], f.Kind)
			if err != nil {
				return &adapt.TypeConversionError{Model: model.Name(), Field: f.Name, Value: rec[f.Name], Want: f.Kind}
			}
			args[i] = v
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return &adapt.QueryError{Adapter: "sqlite", Query: stmt, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &adapt.QueryError{Adapter: "sqlite", Query: "commit", Err: err}
	}
	committed = true
	return nil
}

// Select returns every stored record of the descriptor's table, ordered by
// id when the descriptor has one. NULL columns read as absent attributes.
func (s *Store) Select(ctx context.Context, model *modelapi.Type) ([]adapt.Record, error) {
	bundle, err := bundleFor(model)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if err := s.ensureLocked(ctx, bundle); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	fields := model.Fields()
	if len(fields) == 0 {
		return nil, &adapt.ConfigError{Adapter: "sqlite", Reason: fmt.Sprintf("%s has no attributes to select", model.Name())}
	}
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ","), bundle.Table)
	if model.HasField("id") {
		query += " ORDER BY id"
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &adapt.QueryError{Adapter: "sqlite", Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var records []adapt.Record
	for rows.Next() {
		dest := make([]any, len(fields))
		for i, f := range fields {
			dest[i] = scanTarget(f.Kind)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &adapt.QueryError{Adapter: "sqlite", Query: query, Err: err}
		}
		rec := make(adapt.Record, len(fields))
		for i, f := range fields {
			v, err := decodeValue(dest[i], f.Kind)
			if err != nil {
				return nil, &adapt.TypeConversionError{Model: model.Name(), Field: f.Name, Value: dest[i], Want: f.Kind}
			}
			if v != nil {
				rec[f.Name] = v
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &adapt.QueryError{Adapter: "sqlite", Query: query, Err: err}
	}
	return records, nil
}

// bindValue converts a record attribute to its SQLite column representation:
// times as RFC 3339 text, bools as 0/1, lists and maps as JSON text.
func bindValue(v any, kind modelapi.FieldKind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case modelapi.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, have %T", v)
		}
		return s, nil
	case modelapi.KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
			return nil, fmt.Errorf("fractional value %v for integer column", n)
		default:
			return nil, fmt.Errorf("want integer, have %T", v)
		}
	case modelapi.KindFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("want float, have %T", v)
		}
	case modelapi.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, have %T", v)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case modelapi.KindTime:
		switch ts := v.(type) {
		case time.Time:
			return ts.UTC().Format(time.RFC3339), nil
		case string:
			if _, err := time.Parse(time.RFC3339, ts); err != nil {
				return nil, err
			}
			return ts, nil
		default:
			return nil, fmt.Errorf("want timestamp, have %T", v)
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func scanTarget(kind modelapi.FieldKind) any {
	switch kind {
	case modelapi.KindInt, modelapi.KindBool:
		return &sql.NullInt64{}
	case modelapi.KindFloat:
		return &sql.NullFloat64{}
	default:
		return &sql.NullString{}
	}
}

func decodeValue(target any, kind modelapi.FieldKind) (any, error) {
	switch kind {
	case modelapi.KindInt:
		ni := target.(*sql.NullInt64)
		if !ni.Valid {
			return nil, nil
		}
		return ni.Int64, nil
	case modelapi.KindBool:
		ni := target.(*sql.NullInt64)
		if !ni.Valid {
			return nil, nil
		}
		return ni.Int64 != 0, nil
	case modelapi.KindFloat:
		nf := target.(*sql.NullFloat64)
		if !nf.Valid {
			return nil, nil
		}
		return nf.Float64, nil
	}
	ns := target.(*sql.NullString)
	if !ns.Valid {
		return nil, nil
	}
	switch kind {
	case modelapi.KindString:
		return ns.String, nil
	case modelapi.KindTime:
		ts, err := time.Parse(time.RFC3339, ns.String)
		if err != nil {
			return nil, err
		}
		return ts, nil
	case modelapi.KindStringList:
		var list []string
		if err := json.Unmarshal([]byte(ns.String), &list); err != nil {
			return nil, err
		}
		return list, nil
	case modelapi.KindMap:
		var m map[string]any
		if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		var v any
		if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
