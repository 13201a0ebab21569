package blackboard

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-blackboard/internal/coerce"
)

// Value is a type-erased container: one stored value of any type alongside
// the runtime type information needed to validate later extraction.
type Value struct {
	data  any
	rtype reflect.Type
}

// NewValue wraps value. A nil value produces an empty Value, the state an
// entry holds between port-type declaration and first write.
func NewValue(value any) Value {
	if value == nil {
		return Value{}
	}
	return Value{data: value, rtype: reflect.TypeOf(value)}
}

// Interface returns the stored value, nil when empty.
func (v Value) Interface() any {
	return v.data
}

// Type returns the runtime type of the stored value, nil when empty.
func (v Value) Type() reflect.Type {
	return v.rtype
}

// Empty reports whether no value has been stored yet.
func (v Value) Empty() bool {
	return v.rtype == nil
}

// IsString reports whether the stored value has string kind. String-kinded
// values are the escape hatch that may satisfy any locked port type.
func (v Value) IsString() bool {
	return v.rtype != nil && v.rtype.Kind() == reflect.String
}

// String renders the stored value for diagnostics.
func (v Value) String() string {
	if v.Empty() {
		return "<empty>"
	}
	return fmt.Sprint(v.data)
}

// Cast extracts the stored value as T. Extraction succeeds on an exact type
// match, when T is an interface the value implements, through lossless
// numeric conversion, or through the string escape hatch (a stored string
// parses into a scalar T; any stored value renders when T is a string kind).
// Generic maps additionally decode into struct types. Anything else fails
// with a TypeMismatchError.
func Cast[T any](v Value) (T, error) {
	var zero T
	want := reflect.TypeFor[T]()
	if v.Empty() {
		return zero, &TypeMismatchError{Requested: want}
	}
	if out, ok := v.data.(T); ok {
		return out, nil
	}
	converted, err := coerce.Convert(v.data, want)
	if err != nil {
		return zero, &TypeMismatchError{Requested: want, Stored: v.rtype, Err: err}
	}
	out, ok := converted.(T)
	if !ok {
		return zero, &TypeMismatchError{Requested: want, Stored: v.rtype}
	}
	return out, nil
}
