package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

type undefined struct{}

func (undefined) String() string { return "undefined" }

// MarshalJSON fails so an Undefined that pruning cannot reach, such as a
// struct field, is rejected instead of being written as {}.
func (undefined) MarshalJSON() ([]byte, error) {
	return nil, errors.New("undefined cannot be stored")
}

// Undefined marks a value as explicitly unset. Set and SetMany remove keys
// whose value is Undefined, and a Patch property set to Undefined is
// deleted from the target object. Nested in maps it is dropped, nested in
// slices it is written as null. Anywhere else the write is rejected with
// ErrInvalidArgument.
var Undefined any = undefined{}

func isUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Patch is shallow-merged into the object found at a key path.
type Patch map[string]any

// prune returns v with every Undefined removed from maps with string keys
// and from slices and arrays, whatever their element types.
func prune(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e := iter.Value().Interface()
			if !isUndefined(e) {
				out[iter.Key().String()] = prune(e)
			}
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			e := rv.Index(i).Interface()
			if !isUndefined(e) {
				out[i] = prune(e)
			}
		}
		return out
	default:
		return v
	}
}

// normalize converts v into the plain JSON form the backends hold, so
// numbers become float64 and structs become objects.
func normalize(v any) (any, error) {
	b, err := json.Marshal(prune(v))
	if err != nil {
		return nil, fmt.Errorf("%w: value is not JSON-serializable: %v", ErrInvalidArgument, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
