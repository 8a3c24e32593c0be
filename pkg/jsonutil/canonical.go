// Package jsonutil provides deterministic JSON encoding. Journal
// record hashes are computed over canonical bytes, so two encodings of
// the same record must be byte-identical.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalMarshal encodes v as JSON with object keys in
// lexicographic order and no insignificant whitespace. The value is
// round-tripped through encoding/json first so struct tags, omitempty,
// and numeric normalization behave exactly as a plain Marshal.
func CanonicalMarshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonical unmarshal: %w", err)
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(name)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	default:
		// string, float64, bool, or nil after the round trip.
		raw, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(raw)
		return nil
	}
}
