// Package clone deep-copies arbitrary values so snapshots handed to script
// environments and diagnostics stay detached from the live blackboard.
package clone

import "reflect"

// Any returns a deep copy of value. Maps, slices, pointers, structs and
// arrays are copied recursively; channels, functions and other reference
// kinds are returned as-is since copying them has no useful meaning.
func Any(value any) any {
	if value == nil {
		return nil
	}
	out := walk(reflect.ValueOf(value))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

func walk(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(walk(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		elem := walk(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), walk(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(walk(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(walk(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if field.CanSet() {
				field.Set(walk(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}
