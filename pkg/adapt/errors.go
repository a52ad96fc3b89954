package adapt

import (
	"errors"
	"fmt"

	"traitcore/pkg/modelapi"
)

// ErrAdapterNotFound reports a key with no registered adapter. Matched with
// errors.Is.
var ErrAdapterNotFound = errors.New("adapter not found")

// ParseError reports a payload the adapter could not parse.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// QueryError reports a statement a record store could not execute.
type QueryError struct {
	Adapter string
	Query   string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query %q: %v", e.Adapter, e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ConnectionError reports a data source that could not be reached.
type ConnectionError struct {
	Adapter string
	URL     string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s connection: %v", e.Adapter, e.Err)
	}
	return fmt.Sprintf("%s connection to %s: %v", e.Adapter, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResourceError reports a file, table or bucket that could not be accessed.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ConfigError reports invalid adapter configuration.
type ConfigError struct {
	Adapter string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Adapter == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Adapter, e.Reason)
}

// TypeConversionError reports a record value that does not fit the kind the
// model descriptor declares for its attribute.
type TypeConversionError struct {
	Model string
	Field string
	Value any
	Want  modelapi.FieldKind
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("%s.%s: cannot convert %T to %s", e.Model, e.Field, e.Value, e.Want)
}
