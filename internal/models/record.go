// Package models holds the data shapes exchanged between the RapidPro
// client, the synchronizers and the store.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one schema-free resource document as received from RapidPro.
// Numbers are kept as json.Number so that ids survive re-encoding exactly.
type Record map[string]any

// Key returns the value of field rendered as text, for use as a primary
// key. Strings are returned as-is and numbers in their literal form.
func (r Record) Key(field string) (string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", fmt.Errorf("record has no %q field", field)
	}
	switch k := v.(type) {
	case string:
		if k == "" {
			return "", fmt.Errorf("record has empty %q field", field)
		}
		return k, nil
	case json.Number:
		return k.String(), nil
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	default:
		return "", fmt.Errorf("record field %q has unsupported key type %T", field, v)
	}
}

// String returns field when it holds a non-empty string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok && s != ""
}

// Marshal serializes the record without HTML escaping.
func (r Record) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeJSON decodes data into v keeping numbers as json.Number.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
