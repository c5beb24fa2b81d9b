package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// encodeRecord converts a record to compact JSON object text.
// json.RawMessage and []byte are taken as already-encoded documents.
func encodeRecord(record any) ([]byte, error) {
	var data []byte
	switch r := record.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		data = r
	default:
		b, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal record: %w", err)
		}
		data = b
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("record is not valid JSON: %w", err)
	}
	if buf.Len() == 0 || buf.Bytes()[0] != '{' {
		return nil, fmt.Errorf("record is not a JSON object")
	}
	return buf.Bytes(), nil
}

// docFields splits a document into its top-level fields.
func docFields(doc []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

// decodeValue decodes a raw JSON value keeping numbers as json.Number.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// extractKey reads the primary key of doc. ok is false when the key field is
// absent, null, or (for AutoIncrement collections) zero.
func extractKey(c Collection, doc []byte) (key Key, ok bool, err error) {
	fields, err := docFields(doc)
	if err != nil {
		return nil, false, err
	}
	raw, present := fields[c.KeyPath]
	if !present || string(raw) == "null" {
		return nil, false, nil
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode key %s: %w", c.KeyPath, err)
	}
	key, err = normalizeKey(c, v)
	if err != nil {
		return nil, false, err
	}
	if c.AutoIncrement && key == int64(0) {
		return nil, false, nil
	}
	return key, true, nil
}

// normalizeKey converts a caller- or document-supplied key to the collection's
// key type: int64 for AutoIncrement collections, string otherwise.
func normalizeKey(c Collection, v any) (Key, error) {
	if c.AutoIncrement {
		switch k := v.(type) {
		case int:
			return int64(k), nil
		case int32:
			return int64(k), nil
		case int64:
			return k, nil
		case float64:
			if k != math.Trunc(k) {
				return nil, fmt.Errorf("key %v is not an integer", k)
			}
			return int64(k), nil
		case json.Number:
			n, err := k.Int64()
			if err != nil {
				return nil, fmt.Errorf("key %s is not an integer", k)
			}
			return n, nil
		case string:
			n, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key %q is not an integer", k)
			}
			return n, nil
		}
		return nil, fmt.Errorf("unsupported key type %T", v)
	}

	switch k := v.(type) {
	case string:
		if k == "" {
			return nil, fmt.Errorf("key is empty")
		}
		return k, nil
	case int:
		return strconv.Itoa(k), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), nil
	case json.Number:
		return k.String(), nil
	}
	return nil, fmt.Errorf("unsupported key type %T", v)
}

// setKey returns doc with its key field set to key.
func setKey(c Collection, doc []byte, key Key) ([]byte, error) {
	fields, err := docFields(doc)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	fields[c.KeyPath] = raw
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// fieldValue returns the comparable value of a top-level field: a string,
// float64 or bool. ok is false for absent, null, or composite values.
func fieldValue(doc []byte, field string) (v any, ok bool) {
	fields, err := docFields(doc)
	if err != nil {
		return nil, false
	}
	raw, present := fields[field]
	if !present {
		return nil, false
	}
	decoded, err := decodeValue(raw)
	if err != nil {
		return nil, false
	}
	return scalarValue(decoded)
}

// scalarValue normalizes a scalar for index equality.
func scalarValue(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool:
		return x, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return nil, false
}

// compareKeys orders normalized keys: integers numerically, strings bytewise.
func compareKeys(a, b Key) int {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// decodeInto unmarshals a stored document into dst.
func decodeInto(doc []byte, dst any) error {
	if dst == nil {
		return nil
	}
	if raw, ok := dst.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], doc...)
		return nil
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
