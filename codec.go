package prefkit

import (
	"encoding/json"
	"strconv"
	"time"
)

// Codec converts between a typed value and the store's string wire form.
// Leave it zero on a [Key] to get the default codec: plain strings for
// string-ish types, strconv forms for bools and numbers, time.Duration
// strings, and JSON for everything else.
type Codec[T any] struct {
	Encode func(T) (string, error)
	Decode func(string) (T, error)
}

func defaultCodec[T any]() Codec[T] {
	return Codec[T]{Encode: encodeValue[T], Decode: decodeValue[T]}
}

func encodeValue[T any](v T) (string, error) {
	switch t := any(v).(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case time.Duration:
		return t.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func decodeValue[T any](raw string) (T, error) {
	var v T
	switch p := any(&v).(type) {
	case *string:
		*p = raw
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, err
		}
		*p = b
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return v, err
		}
		*p = n
	case *int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return v, err
		}
		*p = n
	case *float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return v, err
		}
		*p = f
	case *time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return v, err
		}
		*p = d
	default:
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return v, err
		}
	}
	return v, nil
}
