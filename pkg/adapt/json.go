package adapt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"traitcore/pkg/modelapi"
)

// JSONAdapter moves records as JSON documents. Decode accepts either a
// single object or an array of objects; Encode always renders an array with
// sorted keys and two-space indentation.
type JSONAdapter struct{}

// Key implements Adapter.
func (JSONAdapter) Key() string { return "json" }

// Decode implements Adapter.
func (JSONAdapter) Decode(_ context.Context, src []byte, _ *modelapi.Type) ([]Record, error) {
	trimmed := bytes.TrimSpace(src)
	if len(trimmed) == 0 {
		return nil, &ParseError{Source: "json", Err: errors.New("empty payload")}
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &ParseError{Source: "json", Err: err}
		}
		return records, nil
	}
	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, &ParseError{Source: "json", Err: err}
	}
	return []Record{rec}, nil
}

// Encode implements Adapter.
func (JSONAdapter) Encode(_ context.Context, records []Record, _ *modelapi.Type) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return data, nil
}
