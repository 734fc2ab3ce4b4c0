package iolist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RowData is an ordered column-name to string-value mapping. It carries
// every column of the source row verbatim, including columns the entity
// model does not otherwise know about, and is the single source of truth
// for an item's cached scalar fields.
type RowData struct {
	keys   []string
	values map[string]string
}

// NewRowData returns an empty RowData.
func NewRowData() RowData {
	return RowData{values: make(map[string]string)}
}

// Set assigns a column value, appending the column to the order on first use.
func (d *RowData) Set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for a column, or "" when the column is absent.
func (d RowData) Get(key string) string {
	return d.values[key]
}

// Has reports whether the column is present, even with an empty value.
func (d RowData) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Keys returns the column names in insertion order.
func (d RowData) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of columns.
func (d RowData) Len() int { return len(d.keys) }

// Clone returns an independent copy.
func (d RowData) Clone() RowData {
	out := RowData{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]string, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the mapping as a JSON object in column order.
func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(d.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving its key order.
func (d *RowData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("iolist: raw data must be a JSON object")
	}

	out := NewRowData()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("iolist: raw data key is not a string")
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("iolist: raw data value for %q is not a string: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// ParseRowData decodes a serialized raw-data mapping.
func ParseRowData(data []byte) (RowData, error) {
	var out RowData
	if len(data) == 0 {
		return NewRowData(), nil
	}
	if err := out.UnmarshalJSON(data); err != nil {
		return RowData{}, err
	}
	return out, nil
}
