package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/lhiwi/acis-insurance-project/internal/table"
)

// loadJSON accepts a records array ([{col: v}, ...]) or a columns object
// ({col: {index: v}} or {col: [v, ...]}). Column order follows first
// appearance in the document.
func loadJSON(data []byte) (*table.Table, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, errors.New("empty JSON document")
	}

	switch data[0] {
	case '[':
		return decodeRecords(data)
	case '{':
		return decodeColumns(data)
	}
	return nil, fmt.Errorf("expected a JSON array or object, got %q", data[0])
}

func decodeRecords(data []byte) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var (
		columns []string
		index   = map[string]int{}
		records []map[string]string
	)

	for dec.More() {
		obj, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		rec := make(map[string]string, len(obj))
		for _, kv := range obj {
			if _, ok := index[kv.key]; !ok {
				index[kv.key] = len(columns)
				columns = append(columns, kv.key)
			}
			cell, err := cellString(kv.value)
			if err != nil {
				return nil, fmt.Errorf("record %d field %s: %w", len(records), kv.key, err)
			}
			rec[kv.key] = cell
		}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		rows[i] = row
	}
	return table.New(columns, rows)
}

func decodeColumns(data []byte) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	type column struct {
		name   string
		values map[string]string
	}

	var (
		cols     []column
		rowKeys  []string
		seenKeys = map[string]bool{}
	)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}

		values, keys, err := decodeColumnValues(raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		for _, k := range keys {
			if !seenKeys[k] {
				seenKeys[k] = true
				rowKeys = append(rowKeys, k)
			}
		}
		cols = append(cols, column{name: name, values: values})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	sortIndexKeys(rowKeys)

	columns := make([]string, len(cols))
	for j, c := range cols {
		columns[j] = c.name
	}
	rows := make([][]string, len(rowKeys))
	for i, k := range rowKeys {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.values[k]
		}
		rows[i] = row
	}
	return table.New(columns, rows)
}

// decodeColumnValues reads either {index: value} or [value, ...].
func decodeColumnValues(raw json.RawMessage) (map[string]string, []string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil, errors.New("empty column")
	}

	values := map[string]string{}
	var keys []string

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, err
		}
		for i, item := range items {
			cell, err := cellString(item)
			if err != nil {
				return nil, nil, err
			}
			k := strconv.Itoa(i)
			values[k] = cell
			keys = append(keys, k)
		}
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		obj, err := decodeObjectBody(dec)
		if err != nil {
			return nil, nil, err
		}
		for _, kv := range obj {
			cell, err := cellString(kv.value)
			if err != nil {
				return nil, nil, err
			}
			values[kv.key] = cell
			keys = append(keys, kv.key)
		}
	default:
		return nil, nil, fmt.Errorf("expected object or array, got %s", string(trimmed))
	}
	return values, keys, nil
}

type keyValue struct {
	key   string
	value json.RawMessage
}

func decodeObject(dec *json.Decoder) ([]keyValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	return decodeObjectBody(dec)
}

// decodeObjectBody reads key/value pairs after the opening brace, in order.
func decodeObjectBody(dec *json.Decoder) ([]keyValue, error) {
	var out []keyValue
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, keyValue{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func cellString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return string(trimmed), nil
	}
	return string(trimmed), nil
}

// sortIndexKeys orders integer-like index keys numerically and leaves
// others in document order.
func sortIndexKeys(keys []string) {
	for _, k := range keys {
		if _, err := strconv.Atoi(k); err != nil {
			return
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
}
