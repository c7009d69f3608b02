// Package sanitize HTML-escapes user-supplied text before it is persisted or
// rendered into documents and emails.
package sanitize

import (
	"reflect"
	"strings"
	"time"
)

var replacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

var timeType = reflect.TypeOf(time.Time{})

// String escapes a single value.
func String(s string) string {
	return replacer.Replace(s)
}

// Value escapes every string reachable from v in place. v must be a non-nil
// pointer; anything else is left untouched. time.Time values are skipped.
func Value(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	walk(rv.Elem())
}

func walk(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(String(v.String()))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			walk(v.Elem())
		}
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		inner := v.Elem()
		if inner.Kind() == reflect.String && v.CanSet() {
			v.Set(reflect.ValueOf(String(inner.String())).Convert(inner.Type()))
			return
		}
		walk(inner)
	case reflect.Struct:
		if v.Type() == timeType {
			return
		}
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).IsExported() {
				walk(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i))
		}
	case reflect.Map:
		walkMap(v)
	}
}

func walkMap(m reflect.Value) {
	if m.IsNil() {
		return
	}
	elemType := m.Type().Elem()
	iter := m.MapRange()
	for iter.Next() {
		k, val := iter.Key(), iter.Value()
		inner := val
		if inner.Kind() == reflect.Interface && !inner.IsNil() {
			inner = inner.Elem()
		}
		switch inner.Kind() {
		case reflect.String:
			escaped := reflect.ValueOf(String(inner.String())).Convert(inner.Type())
			m.SetMapIndex(k, escaped.Convert(elemType))
		case reflect.Map, reflect.Slice, reflect.Pointer:
			walk(inner)
		}
	}
}
