// Package postgresrec persists adapter record sets in Postgres tables
// created from generated model DDL bundles. It mirrors the SQLite record
// store's semantics on a shared server.
package postgresrec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"traitcore/internal/modelgen/sqlbundle"
	"traitcore/pkg/adapt"
	"traitcore/pkg/modelapi"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/traitcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a Postgres-backed record store. Safe for concurrent use.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	ready map[string]struct{}
}

// Open connects to the Postgres server at dsn (falling back to a local
// default) and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, &adapt.ConnectionError{Adapter: "postgres", URL: dsn, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &adapt.ConnectionError{Adapter: "postgres", URL: dsn, Err: err}
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
		return sqlbundle.Bundle{}, &adapt.ConfigError{Adapter: "postgres", Reason: "nil model descriptor"}
	}
	bundle, err := sqlbundle.ForModel(model)
	if err != nil {
		return sqlbundle.Bundle{}, &adapt.ConfigError{Adapter: "postgres", Reason: err.Error()}
	}
	return bundle, nil
}

func (s *Store) ensureLocked(ctx context.Context, bundle sqlbundle.Bundle) error {
	if _, ok := s.ready[bundle.Table]; ok {
		return nil
	}
	for _, stmt := range sqlbundle.SplitStatements(bundle.Postgres) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &adapt.QueryError{Adapter: "postgres", Query: stmt, Err: err}
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
		return &adapt.ConfigError{Adapter: "postgres", Reason: fmt.Sprintf("%s has no id attribute to upsert on", model.Name())}
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
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if f.Name != "id" {
			updates = append(updates, fmt.Sprintf("%s=EXCLUDED.%s", f.Name, f.Name))
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
		return &adapt.ConnectionError{Adapter: "postgres", Err: err}
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
			return &adapt.QueryError{Adapter: "postgres", Query: stmt, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &adapt.QueryError{Adapter: "postgres", Query: "commit", Err: err}
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
		return nil, &adapt.ConfigError{Adapter: "postgres", Reason: fmt.Sprintf("%s has no attributes to select", model.Name())}
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
		return nil, &adapt.QueryError{Adapter: "postgres", Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var records []adapt.Record
	for rows.Next() {
		dest := make([]any, len(fields))
		for i, f := range fields {
			dest[i] = scanTarget(f.Kind)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &adapt.QueryError{Adapter: "postgres", Query: query, Err: err}
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
		return nil, &adapt.QueryError{Adapter: "postgres", Query: query, Err: err}
	}
	return records, nil
}

// bindValue converts a record attribute to its Postgres column
// representation: times as time.Time, lists and maps as JSONB payloads.
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
		return b, nil
	case modelapi.KindTime:
		switch ts := v.(type) {
		case time.Time:
			return ts.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, err
			}
			return parsed.UTC(), nil
		default:
			return nil, fmt.Errorf("want timestamp, have %T", v)
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func scanTarget(kind modelapi.FieldKind) any {
	switch kind {
	case modelapi.KindInt:
		return &sql.NullInt64{}
	case modelapi.KindFloat:
		return &sql.NullFloat64{}
	case modelapi.KindBool:
		return &sql.NullBool{}
	case modelapi.KindTime:
		return &sql.NullTime{}
	case modelapi.KindString:
		return &sql.NullString{}
	default:
		return &[]byte{}
	}
}

func decodeValue(target any, kind modelapi.FieldKind) (any, error) {
	switch kind {
	case modelapi.KindString:
		ns := target.(*sql.NullString)
		if !ns.Valid {
			return nil, nil
		}
		return ns.String, nil
	case modelapi.KindInt:
		ni := target.(*sql.NullInt64)
		if !ni.Valid {
			return nil, nil
		}
		return ni.Int64, nil
	case modelapi.KindFloat:
		nf := target.(*sql.NullFloat64)
		if !nf.Valid {
			return nil, nil
		}
		return nf.Float64, nil
	case modelapi.KindBool:
		nb := target.(*sql.NullBool)
		if !nb.Valid {
			return nil, nil
		}
		return nb.Bool, nil
	case modelapi.KindTime:
		nt := target.(*sql.NullTime)
		if !nt.Valid {
			return nil, nil
		}
		return nt.Time.UTC(), nil
	}
	raw := target.(*[]byte)
	if len(*raw) == 0 {
		return nil, nil
	}
	switch kind {
	case modelapi.KindStringList:
		var list []string
		if err := json.Unmarshal(*raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	case modelapi.KindMap:
		var m map[string]any
		if err := json.Unmarshal(*raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		var v any
		if err := json.Unmarshal(*raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
