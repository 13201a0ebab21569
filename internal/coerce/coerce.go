// Package coerce implements the conversions the blackboard permits when a
// stored value is read back as a different type: lossless numeric widening,
// the string escape hatch used by text-driven configuration, and decoding of
// generic maps into struct values.
package coerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Convert attempts to deliver value as an instance of want. It returns an
// error when no permitted conversion applies; callers decide how to surface
// that. Convert never panics on well-formed input.
func Convert(value any, want reflect.Type) (any, error) {
	if want == nil {
		return nil, fmt.Errorf("coerce: target type is nil")
	}
	have := reflect.TypeOf(value)
	if have == nil {
		return nil, fmt.Errorf("coerce: value is nil")
	}
	if have == want {
		return value, nil
	}

	rv := reflect.ValueOf(value)

	// Identical underlying kinds with different names (type aliases over
	// the same kind) convert directly.
	if rv.CanConvert(want) && have.Kind() == want.Kind() {
		return rv.Convert(want).Interface(), nil
	}

	if want.Kind() == reflect.String {
		return render(rv, want)
	}
	if have.Kind() == reflect.String {
		return parse(rv.String(), want)
	}
	if isNumeric(have.Kind()) && isNumeric(want.Kind()) {
		return convertNumeric(rv, want)
	}
	if m, ok := value.(map[string]any); ok {
		return decodeMap(m, want)
	}
	return nil, fmt.Errorf("coerce: no conversion from %s to %s", have, want)
}

// render produces the string representation of any stored value.
func render(rv reflect.Value, want reflect.Type) (any, error) {
	text := fmt.Sprint(rv.Interface())
	out := reflect.New(want).Elem()
	out.SetString(text)
	return out.Interface(), nil
}

// parse reads a stored string into the scalar type the caller requested.
func parse(text string, want reflect.Type) (any, error) {
	out := reflect.New(want).Elem()
	switch want.Kind() {
	case reflect.Bool:
		parsed, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("coerce: parse %q as %s: %w", text, want, err)
		}
		out.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(text, 10, want.Bits())
		if err != nil {
			return nil, fmt.Errorf("coerce: parse %q as %s: %w", text, want, err)
		}
		out.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(text, 10, want.Bits())
		if err != nil {
			return nil, fmt.Errorf("coerce: parse %q as %s: %w", text, want, err)
		}
		out.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(text, want.Bits())
		if err != nil {
			return nil, fmt.Errorf("coerce: parse %q as %s: %w", text, want, err)
		}
		out.SetFloat(parsed)
	default:
		return nil, fmt.Errorf("coerce: cannot parse string into %s", want)
	}
	return out.Interface(), nil
}

// convertNumeric converts between numeric kinds, rejecting anything lossy:
// out-of-range integers, negative values into unsigned targets, and floats
// with a fractional part into integer targets.
func convertNumeric(rv reflect.Value, want reflect.Type) (any, error) {
	out := reflect.New(want).Elem()
	switch {
	case isInt(rv.Kind()):
		v := rv.Int()
		switch {
		case isInt(want.Kind()):
			if out.OverflowInt(v) {
				return nil, overflowErr(rv, want)
			}
			out.SetInt(v)
		case isUint(want.Kind()):
			if v < 0 || out.OverflowUint(uint64(v)) {
				return nil, overflowErr(rv, want)
			}
			out.SetUint(uint64(v))
		default:
			out.SetFloat(float64(v))
		}
	case isUint(rv.Kind()):
		v := rv.Uint()
		switch {
		case isInt(want.Kind()):
			if v > math.MaxInt64 || out.OverflowInt(int64(v)) {
				return nil, overflowErr(rv, want)
			}
			out.SetInt(int64(v))
		case isUint(want.Kind()):
			if out.OverflowUint(v) {
				return nil, overflowErr(rv, want)
			}
			out.SetUint(v)
		default:
			out.SetFloat(float64(v))
		}
	default:
		v := rv.Float()
		switch {
		case isInt(want.Kind()):
			if v != math.Trunc(v) || out.OverflowInt(int64(v)) {
				return nil, overflowErr(rv, want)
			}
			out.SetInt(int64(v))
		case isUint(want.Kind()):
			if v < 0 || v != math.Trunc(v) || out.OverflowUint(uint64(v)) {
				return nil, overflowErr(rv, want)
			}
			out.SetUint(uint64(v))
		default:
			if out.OverflowFloat(v) {
				return nil, overflowErr(rv, want)
			}
			out.SetFloat(v)
		}
	}
	return out.Interface(), nil
}

// decodeMap hydrates a generic map into a struct (or pointer to struct)
// through a JSON round trip, so values written by scripts or loaded from
// declarative sources can be read back strongly typed.
func decodeMap(payload map[string]any, want reflect.Type) (any, error) {
	target := want
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if target.Kind() != reflect.Struct && target.Kind() != reflect.Map {
		return nil, fmt.Errorf("coerce: cannot decode map into %s", want)
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("coerce: marshal payload: %w", err)
	}
	out := reflect.New(target)
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if err := decoder.Decode(out.Interface()); err != nil {
		return nil, fmt.Errorf("coerce: decode into %s: %w", want, err)
	}
	if want.Kind() == reflect.Pointer {
		return out.Interface(), nil
	}
	return out.Elem().Interface(), nil
}

func overflowErr(rv reflect.Value, want reflect.Type) error {
	return fmt.Errorf("coerce: %v does not fit in %s", rv.Interface(), want)
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}
