// Package value holds helpers for the JSON-like values that flow through
// workflows: normalisation of decoded Go values, deep equality, kind
// inspection and JSON pointer lookup.
//
// A normalised value is one of nil, bool, float64, string, []any or
// map[string]any.
package value

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cast"
)

// Kind classifies a normalised value.
type Kind string

const (
	KindNull   Kind = "null"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindString Kind = "string"
	KindArray  Kind = "array"
	KindObject Kind = "object"
)

// KindOf reports the kind of a normalised value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	}
	return Kind(fmt.Sprintf("%T", v))
}

// Normalize converts decoded Go values into the canonical JSON-like form.
// Every integer, unsigned and float type becomes float64, json.Number is
// parsed, map[any]any (as produced by YAML decoders) becomes map[string]any,
// and typed slices and maps are rewritten element by element.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return t
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return cast.ToFloat64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	return v
}

// Equal reports whether two values are deeply equal after normalisation.
// Numbers compare by value regardless of their Go type.
func Equal(a, b any) bool {
	return cmp.Equal(Normalize(a), Normalize(b))
}

// Contains reports whether any element of list equals v.
func Contains(list []any, v any) bool {
	for _, e := range list {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Lookup resolves a JSON pointer (RFC 6901) against doc. The empty pointer
// returns doc itself. The boolean is false when any token along the path
// does not exist.
func Lookup(doc any, pointer string) (any, bool, error) {
	p, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, false, fmt.Errorf("invalid path %q: %w", pointer, err)
	}
	v, _, err := p.Get(doc)
	if err != nil {
		return nil, false, nil
	}
	return v, true, nil
}

// ValidPointer reports whether pointer is a syntactically valid JSON pointer.
func ValidPointer(pointer string) error {
	if _, err := jsonpointer.New(pointer); err != nil {
		return fmt.Errorf("invalid path %q: %w", pointer, err)
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompareIDs orders component ids. Two integer ids compare numerically,
// anything else compares lexicographically, and integers sort first.
func CompareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// SortIDs sorts component ids in place using CompareIDs.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
}

// SortedUnique returns ids sorted with CompareIDs and duplicates removed.
func SortedUnique(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	out := append([]string(nil), ids...)
	SortIDs(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
