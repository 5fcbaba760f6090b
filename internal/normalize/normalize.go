// Package normalize flattens Ramp API records into rows that match a resource's
// column schema.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ramp/ramp-mcp-server/internal/resource"
)

// Row holds one value per schema column, in schema order. Absent values are nil.
type Row []any

// Normalize converts one raw record. Every column of the descriptor is present in
// the result; fields missing from the record, or null, become nil.
func Normalize(desc resource.Descriptor, raw json.RawMessage) (Row, error) {
	rec, err := decode(raw)
	if err != nil {
		return nil, err
	}
	row := make(Row, len(desc.Columns))
	for i, c := range desc.Columns {
		v, err := value(rec, c)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// Page normalizes a page of records, stopping at the first malformed one.
func Page(desc resource.Descriptor, records []json.RawMessage) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, r := range records {
		row, err := Normalize(desc, r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decode(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode record: not an object")
	}
	return rec, nil
}

// lookup walks path through nested objects. A non-object in the middle of the
// path counts as absent.
func lookup(rec map[string]any, path []string) any {
	var cur any = rec
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
		if cur == nil {
			return nil
		}
	}
	return cur
}

func value(rec map[string]any, c resource.Column) (any, error) {
	v := lookup(rec, c.Path)
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case resource.Text:
		return text(v)
	case resource.Integer:
		return integer(v)
	case resource.Real:
		return float(v)
	case resource.Bool:
		return boolean(v)
	case resource.Time:
		return timestamp(v)
	case resource.Amount:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		scale := int32(resource.Scale(currencyOf(rec, c)))
		f, _ := d.Round(scale).Float64()
		return f, nil
	case resource.MinorAmount:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		scale := int32(resource.Scale(currencyOf(rec, c)))
		f, _ := d.Shift(-scale).Float64()
		return f, nil
	case resource.JSON:
		return compact(v)
	case resource.List:
		return list(v)
	}
	return nil, fmt.Errorf("unsupported kind %s", c.Kind)
}

func currencyOf(rec map[string]any, c resource.Column) string {
	if len(c.CurrencyPath) == 0 {
		return ""
	}
	s, _ := lookup(rec, c.CurrencyPath).(string)
	return s
}

func text(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	// objects and arrays where a scalar was expected are kept as JSON text
	return compact(v)
}

func integer(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil, err
		}
		return d.IntPart(), nil
	case string:
		if t == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", t)
		}
		return i, nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("not an integer: %T", v)
}

func float(v any) (any, error) {
	d, err := toDecimal(v)
	if err != nil {
		return nil, err
	}
	f, _ := d.Float64()
	return f, nil
}

func boolean(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", t)
		}
		return boolean(b)
	}
	return nil, fmt.Errorf("not a boolean: %T", v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// timestamp normalizes API timestamps to RFC 3339 in UTC. Dates without a time
// stay as dates, and unparseable strings are kept as they are.
func timestamp(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return text(v)
	}
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == time.DateOnly {
			return t.Format(time.DateOnly), nil
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	return s, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	}
	return decimal.Zero, fmt.Errorf("not a number: %T", v)
}

func compact(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// list joins arrays of scalars with commas. Arrays holding objects fall back to
// JSON text so nothing is lost.
func list(v any) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return text(v)
	}
	parts := make([]string, 0, len(arr))
	for _, e := range arr {
		switch t := e.(type) {
		case string:
			parts = append(parts, t)
		case json.Number:
			parts = append(parts, t.String())
		case bool:
			parts = append(parts, strconv.FormatBool(t))
		case nil:
		default:
			return compact(v)
		}
	}
	return strings.Join(parts, ","), nil
}
