// Package artifact builds the primitive-only report document persisted by the sinks.
package artifact

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"dbhealth/internal/model"
)

// maxDepth bounds recursion so cyclic pointer graphs surface as errors.
const maxDepth = 64

var (
	timeType     = reflect.TypeOf(time.Time{})
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// ToPrimitive reduces v to a structure made only of map[string]any, []any,
// string, float64, bool and nil. Structs become maps keyed by their json tag
// names, times become RFC 3339 strings, byte slices become strings, errors and
// Stringers use their text, and any other opaque value falls back to fmt.Sprint.
// Non-finite floats become nil.
func ToPrimitive(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return toPrimitive(reflect.ValueOf(v), 0)
}

func toPrimitive(v reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d levels (cyclic value?)", model.ErrSerialization, maxDepth)
	}
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
	}

	t := v.Type()
	switch {
	case t == timeType:
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return string(v.Bytes()), nil
	case t.Kind() != reflect.Interface && t.Implements(errorType) && v.CanInterface():
		return v.Interface().(error).Error(), nil
	}

	switch v.Kind() {
	case reflect.Interface:
		return toPrimitive(v.Elem(), depth+1)
	case reflect.Pointer:
		return toPrimitive(v.Elem(), depth+1)
	case reflect.Struct:
		return structToMap(v, depth)
	case reflect.Map:
		return mapToMap(v, depth)
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := toPrimitive(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t.Implements(stringerType) && v.CanInterface() {
			return v.Interface().(fmt.Stringer).String(), nil
		}
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return f, nil
	}

	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String(), nil
		}
		return fmt.Sprint(v.Interface()), nil
	}
	return fmt.Sprintf("<%s>", t), nil
}

func structToMap(v reflect.Value, depth int) (map[string]any, error) {
	out := make(map[string]any)
	if err := addFields(out, v, depth); err != nil {
		return nil, err
	}
	return out, nil
}

// addFields copies exported fields using encoding/json naming rules.
// Untagged embedded structs are flattened into the parent.
func addFields(out map[string]any, v reflect.Value, depth int) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				if value.IsNil() {
					continue
				}
				value = value.Elem()
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := addFields(out, value, depth+1); err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(value) {
			continue
		}

		item, err := toPrimitive(value, depth+1)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		out[name] = item
	}
	return nil
}

func mapToMap(v reflect.Value, depth int) (map[string]any, error) {
	out := make(map[string]any, v.Len())
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keyString(keys[i]) < keyString(keys[j]) })
	for _, k := range keys {
		item, err := toPrimitive(v.MapIndex(k), depth+1)
		if err != nil {
			return nil, err
		}
		out[keyString(k)] = item
	}
	return out, nil
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.String()
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == name {
			return true
		}
	}
	return false
}

// isEmptyValue mirrors the omitempty rules of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
