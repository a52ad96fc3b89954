package adapt

import (
	"context"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"traitcore/pkg/modelapi"
)

// tomlRecordsKey names the array-of-tables a multi-record document encodes
// under.
const tomlRecordsKey = "records"

// TOMLAdapter moves records as TOML documents. A document holding a single
// array of tables decodes to one record per table; any other document
// decodes to a single record. Encode always renders the array-of-tables
// form. TOML has no null, so nil attribute values are omitted on encode.
type TOMLAdapter struct{}

// Key implements Adapter.
func (TOMLAdapter) Key() string { return "toml" }

// Decode implements Adapter.
func (TOMLAdapter) Decode(_ context.Context, src []byte, _ *modelapi.Type) ([]Record, error) {
	var doc map[string]any
	if err := toml.Unmarshal(src, &doc); err != nil {
		return nil, &ParseError{Source: "toml", Err: err}
	}
	if len(doc) == 1 {
		for _, v := range doc {
			if list, ok := tableList(v); ok {
				return list, nil
			}
		}
	}
	return []Record{Record(doc)}, nil
}

// Encode implements Adapter.
func (TOMLAdapter) Encode(_ context.Context, records []Record, _ *modelapi.Type) ([]byte, error) {
	tables := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		table := make(map[string]any, len(rec))
		for k, v := range rec {
			if v == nil {
				continue
			}
			table[k] = v
		}
		tables = append(tables, table)
	}
	data, err := toml.Marshal(map[string]any{tomlRecordsKey: tables})
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return data, nil
}

func tableList(v any) ([]Record, bool) {
	switch list := v.(type) {
	case []map[string]any:
		records := make([]Record, len(list))
		for i, table := range list {
			records[i] = Record(table)
		}
		return records, true
	case []any:
		records := make([]Record, 0, len(list))
		for _, item := range list {
			table, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			records = append(records, Record(table))
		}
		return records, true
	default:
		return nil, false
	}
}
