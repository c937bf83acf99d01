package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/esm/internal/trace"
)

// marshalConfig encodes a session config as canonical JSON so that equal
// configs are stored byte-identically.
func marshalConfig(cfg map[string]any) (string, error) {
	if len(cfg) == 0 {
		return "{}", nil
	}
	data, err := trace.MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// unmarshalConfig decodes a stored config. Numbers come back as int64;
// canonical JSON never contains floats.
func unmarshalConfig(data string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for k, v := range raw {
		n, err := convertNumbers(v)
		if err != nil {
			return nil, fmt.Errorf("unmarshal config %q: %w", k, err)
		}
		raw[k] = n
	}
	return raw, nil
}

func convertNumbers(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		return val.Int64()
	case []any:
		for i, elem := range val {
			n, err := convertNumbers(elem)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	case map[string]any:
		for k, elem := range val {
			n, err := convertNumbers(elem)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	default:
		return v, nil
	}
}
