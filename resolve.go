package fragcache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// Resolver looks up a template variable expression such as "obj.pk" in the
// render context of the host engine.
type Resolver interface {
	Resolve(expr string) (any, error)
}

type ResolverFunc func(expr string) (any, error)

func (f ResolverFunc) Resolve(expr string) (any, error) { return f(expr) }

// resolveArg evaluates a tag argument: quoted strings, integers and None are
// literals, anything else is handed to r.
func resolveArg(expr string, r Resolver) (any, error) {
	if s, ok := unquote(expr); ok {
		return s, nil
	}
	switch expr {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	if n, err := strconv.Atoi(expr); err == nil {
		return n, nil
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrVariableDoesNotExist, expr)
	}
	return r.Resolve(expr)
}

// unquote strips matching single or double quotes.
func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// ContextResolver resolves dotted paths against a map of context values.
// Each path segment is looked up as a map key, a struct field, a method
// without arguments or a slice index; functions found along the way are
// called. Snake-case segments match exported Go names ("get_name" finds
// GetName).
type ContextResolver map[string]any

func (c ContextResolver) Resolve(expr string) (any, error) {
	parts := strings.Split(expr, ".")
	cur, ok := c[parts[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariableDoesNotExist, expr)
	}
	cur = call(reflect.ValueOf(cur))
	for _, p := range parts[1:] {
		next, ok := lookup(reflect.ValueOf(cur), p)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVariableDoesNotExist, expr)
		}
		cur = call(next)
	}
	return cur, nil
}

// call invokes v when it is a function without arguments.
func call(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Func && v.Type().NumIn() == 0 && v.Type().NumOut() > 0 && !v.IsNil() {
		v = v.Call(nil)[0]
	}
	return v.Interface()
}

func lookup(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	if m, ok := method(v, name); ok {
		return m, true
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !e.IsValid() {
			return reflect.Value{}, false
		}
		return e, true
	case reflect.Struct:
		want := strings.ReplaceAll(name, "_", "")
		f := v.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, want) })
		if f.IsValid() && f.CanInterface() {
			return f, true
		}
		if v.CanAddr() {
			return method(v.Addr(), name)
		}
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(i), true
	}
	return reflect.Value{}, false
}

func method(v reflect.Value, name string) (reflect.Value, bool) {
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return reflect.Value{}, false
	}
	m := v.MethodByName(goName(name))
	if !m.IsValid() {
		m = v.MethodByName(name)
	}
	if !m.IsValid() || m.Type().NumIn() != 0 || m.Type().NumOut() == 0 {
		return reflect.Value{}, false
	}
	return m, true
}

// goName maps "get_name" to "GetName".
func goName(s string) string {
	var b strings.Builder
	up := true
	for _, r := range s {
		if r == '_' {
			up = true
			continue
		}
		if up {
			b.WriteRune(unicode.ToUpper(r))
			up = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
