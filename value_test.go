package blackboard

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type temperature float64

func (t temperature) String() string {
	return fmt.Sprintf("%.1fC", float64(t))
}

func TestValueBasics(t *testing.T) {
	empty := NewValue(nil)
	if !empty.Empty() || empty.Type() != nil || empty.IsString() {
		t.Fatalf("unexpected empty value state: %+v", empty)
	}
	if empty.String() != "<empty>" {
		t.Fatalf("unexpected empty rendering: %q", empty.String())
	}

	v := NewValue(42)
	if v.Empty() || v.Type() != reflect.TypeFor[int]() || v.Interface() != any(42) {
		t.Fatalf("unexpected value state: %+v", v)
	}

	type routeName string
	if !NewValue(routeName("alpha")).IsString() {
		t.Fatalf("named string types must count as strings")
	}
	if NewValue(3.5).IsString() {
		t.Fatalf("non-string values must not count as strings")
	}
}

func TestCastExact(t *testing.T) {
	got, err := Cast[int](NewValue(42))
	if err != nil || got != 42 {
		t.Fatalf("exact cast failed: %d, %v", got, err)
	}
}

func TestCastInterface(t *testing.T) {
	got, err := Cast[fmt.Stringer](NewValue(temperature(21.5)))
	if err != nil {
		t.Fatalf("interface cast failed: %v", err)
	}
	if got.String() != "21.5C" {
		t.Fatalf("unexpected interface value: %q", got.String())
	}
}

func TestCastNumeric(t *testing.T) {
	if got, err := Cast[float64](NewValue(5)); err != nil || got != 5.0 {
		t.Fatalf("int to float64 failed: %v, %v", got, err)
	}
	if got, err := Cast[int](NewValue(3.0)); err != nil || got != 3 {
		t.Fatalf("integral float to int failed: %v, %v", got, err)
	}
	if _, err := Cast[int](NewValue(2.5)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("fractional float to int must fail, got %v", err)
	}
	if _, err := Cast[uint8](NewValue(300)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("overflowing conversion must fail, got %v", err)
	}
	if _, err := Cast[uint](NewValue(-1)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("negative to unsigned must fail, got %v", err)
	}
}

func TestCastStringEscapeHatch(t *testing.T) {
	if got, err := Cast[int](NewValue("42")); err != nil || got != 42 {
		t.Fatalf("string to int failed: %v, %v", got, err)
	}
	if got, err := Cast[bool](NewValue("true")); err != nil || !got {
		t.Fatalf("string to bool failed: %v, %v", got, err)
	}
	if got, err := Cast[float64](NewValue("2.5")); err != nil || got != 2.5 {
		t.Fatalf("string to float failed: %v, %v", got, err)
	}
	if got, err := Cast[string](NewValue(42)); err != nil || got != "42" {
		t.Fatalf("int to string failed: %q, %v", got, err)
	}
	if _, err := Cast[int](NewValue("not a number")); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("unparseable string must fail, got %v", err)
	}
}

func TestCastMapIntoStruct(t *testing.T) {
	payload := map[string]any{"x": 1.5, "y": 2.5}
	got, err := Cast[waypoint](NewValue(payload))
	if err != nil {
		t.Fatalf("map to struct failed: %v", err)
	}
	if got.X != 1.5 || got.Y != 2.5 {
		t.Fatalf("unexpected decoded struct: %+v", got)
	}
}

func TestCastEmptyValue(t *testing.T) {
	if _, err := Cast[int](NewValue(nil)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("casting an empty value must fail, got %v", err)
	}
}
