package data

import (
	"encoding/base64"
	"fmt"
	"reflect"
)

// From converts Go values into a Value. Numbers of any width become numbers,
// []byte becomes binary, slices and arrays become arrays, and strings are
// decoded as base64 binary (the form used by YAML/JSON scenario files).
func From(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case float64:
		return Num(x), nil
	case float32:
		return Num(float64(x)), nil
	case int:
		return Num(float64(x)), nil
	case int8:
		return Num(float64(x)), nil
	case int16:
		return Num(float64(x)), nil
	case int32:
		return Num(float64(x)), nil
	case int64:
		return Num(float64(x)), nil
	case uint:
		return Num(float64(x)), nil
	case uint8:
		return Num(float64(x)), nil
	case uint16:
		return Num(float64(x)), nil
	case uint32:
		return Num(float64(x)), nil
	case uint64:
		return Num(float64(x)), nil
	case bool:
		if x {
			return Num(1), nil
		}
		return Num(0), nil
	case []byte:
		return Binary(x), nil
	case string:
		b, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			return Null, fmt.Errorf("decode binary string: %w", err)
		}
		return Binary(b), nil
	case []float64:
		return Floats(x...), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			ev, err := From(e)
			if err != nil {
				return Null, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			ev, err := From(rv.Index(i).Interface())
			if err != nil {
				return Null, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null, nil
		}
		return From(rv.Elem().Interface())
	}
	return Null, fmt.Errorf("unsupported data type %T", v)
}

// MustFrom is From for literals in tests and examples.
func MustFrom(v any) Value {
	out, err := From(v)
	if err != nil {
		panic(err)
	}
	return out
}
