package adapt

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"traitcore/pkg/modelapi"
)

// CSVAdapter moves records as comma-separated text with a header row. Cell
// values are coerced to the kinds the model descriptor declares; NULL bytes
// are stripped from payloads in both directions.
type CSVAdapter struct{}

// Key implements Adapter.
func (CSVAdapter) Key() string { return "csv" }

// Decode implements Adapter.
func (CSVAdapter) Decode(_ context.Context, src []byte, model *modelapi.Type) ([]Record, error) {
	text := strings.ReplaceAll(string(src), "\x00", "")
	rows, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, &ParseError{Source: "csv", Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Source: "csv", Err: errors.New("missing header row")}
	}
	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			value, err := coerceCell(row[i], fieldKind(model, col))
			if err != nil {
				return nil, &TypeConversionError{Model: modelName(model), Field: col, Value: row[i], Want: fieldKind(model, col)}
			}
			if value != nil {
				rec[col] = value
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Encode implements Adapter.
func (CSVAdapter) Encode(_ context.Context, records []Record, model *modelapi.Type) ([]byte, error) {
	columns, err := csvColumns(records, model)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("encode csv header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatCell(rec[col])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("encode csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvColumns(records []Record, model *modelapi.Type) ([]string, error) {
	if model != nil {
		fields := model.Fields()
		columns := make([]string, len(fields))
		for i, f := range fields {
			columns[i] = f.Name
		}
		return columns, nil
	}
	if len(records) == 0 {
		return nil, &ConfigError{Adapter: "csv", Reason: "no records and no model to derive columns from"}
	}
	columns := make([]string, 0, len(records[0]))
	for k := range records[0] {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns, nil
}

func fieldKind(model *modelapi.Type, name string) modelapi.FieldKind {
	if model == nil {
		return modelapi.KindString
	}
	if f, ok := model.Field(name); ok {
		return f.Kind
	}
	return modelapi.KindString
}

func modelName(model *modelapi.Type) string {
	if model == nil {
		return "Record"
	}
	return model.Name()
}

// coerceCell converts one CSV cell to the declared kind. Empty cells for
// non-string kinds read as absent since CSV has no null.
func coerceCell(cell string, kind modelapi.FieldKind) (any, error) {
	switch kind {
	case modelapi.KindString, modelapi.KindAny, modelapi.FieldKind(""):
		return cell, nil
	}
	if cell == "" {
		return nil, nil
	}
	switch kind {
	case modelapi.KindInt:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case modelapi.KindFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case modelapi.KindBool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return nil, err
		}
		return b, nil
	case modelapi.KindTime:
		ts, err := time.Parse(time.RFC3339, cell)
		if err != nil {
			return nil, err
		}
		return ts, nil
	case modelapi.KindStringList:
		var list []string
		if err := json.Unmarshal([]byte(cell), &list); err != nil {
			return nil, err
		}
		return list, nil
	case modelapi.KindMap:
		var m map[string]any
		if err := json.Unmarshal([]byte(cell), &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return cell, nil
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ReplaceAll(v, "\x00", "")
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case float32:
		return fmt.Sprintf("%g", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case []string, []any, map[string]any, Record:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
