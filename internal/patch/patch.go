// Package patch implements shallow merges keyed by the fields present in a
// partial update. A field is present when it is a non-nil pointer; its key is
// the field's JSON name.
package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Fields returns the present fields of p, which must be a struct or a pointer
// to one. Values are dereferenced.
func Fields(p any) map[string]any {
	set := make(map[string]any)

	v := reflect.ValueOf(p)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return set
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return set
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() != reflect.Pointer || fv.IsNil() {
			continue
		}
		name := fieldName(sf)
		if name == "" {
			continue
		}
		set[name] = fv.Elem().Interface()
	}
	return set
}

// Merge overlays set onto dst, a pointer to a struct, replacing each named
// top-level field wholesale. Keys missing from dst's JSON form are added and
// then dropped by decoding, so unknown keys are a no-op.
func Merge(dst any, set map[string]any) error {
	if len(set) == 0 {
		return nil
	}

	raw, err := json.Marshal(dst)
	if err != nil {
		return fmt.Errorf("patch: encode target: %w", err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("patch: target is not an object: %w", err)
	}

	for key, value := range set {
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("patch: encode %q: %w", key, err)
		}
		doc[key] = b
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("patch: encode merged: %w", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		return fmt.Errorf("patch: decode merged: %w", err)
	}
	return nil
}

// Keys returns the sorted names in set, for logging.
func Keys(set map[string]any) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}
