package blackboard

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrMissingKey indicates a value-returning read found no entry anywhere
	// along the remap chain.
	ErrMissingKey = errors.New("blackboard: missing key")
	// ErrTypeMismatch indicates a stored value could not be delivered as the
	// requested type and no string coercion applied.
	ErrTypeMismatch = errors.New("blackboard: type mismatch")
	// ErrTypeLocked indicates a write attempted to change the type of a key
	// whose port type has already been declared.
	ErrTypeLocked = errors.New("blackboard: port type locked")
)

// MissingKeyError reports the key a typed read failed to find.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("blackboard: missing key %q", e.Key)
}

func (e *MissingKeyError) Unwrap() error {
	return ErrMissingKey
}

// TypeMismatchError reports a failed extraction from a type-erased value.
type TypeMismatchError struct {
	Key       string
	Requested reflect.Type
	Stored    reflect.Type
	Err       error
}

func (e *TypeMismatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	stored := "<empty>"
	if e.Stored != nil {
		stored = e.Stored.String()
	}
	msg := fmt.Sprintf("blackboard: cannot cast %s to %s", stored, typeLabel(e.Requested))
	if e.Key != "" {
		msg = fmt.Sprintf("blackboard: key %q: cannot cast %s to %s", e.Key, stored, typeLabel(e.Requested))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// TypeLockError reports a write rejected by a declared port type.
type TypeLockError struct {
	Key       string
	Locked    reflect.Type
	Requested reflect.Type
}

func (e *TypeLockError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"blackboard: key %q: once declared, the type of a port shall not change. Declared type [%s] != current type [%s]",
		e.Key, typeLabel(e.Locked), typeLabel(e.Requested))
}

func (e *TypeLockError) Unwrap() error {
	return ErrTypeLocked
}

func typeLabel(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
