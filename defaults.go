package prefkit

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DefaultsFromYAML reads a flat mapping of key names to scalar defaults:
//
//	theme: light
//	volume: 5
//	autosave: true
//
// Scalars are rendered into the same wire form the default codec produces,
// so a YAML default round-trips through typed Get exactly like a written
// value. Nested mappings or sequences are rejected with [ErrInvalidDefault].
// Pass the result to Container.RegisterDefaults.
func DefaultsFromYAML(r io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case bool, int, int64, uint64, float64:
			out[k] = fmt.Sprint(t)
		case nil:
			out[k] = ""
		default:
			return nil, fmt.Errorf("%w: key %q has %T value", ErrInvalidDefault, k, v)
		}
	}
	return out, nil
}
