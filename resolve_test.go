package fragcache

import (
	"errors"
	"testing"
)

type resolveItem struct {
	Title string
}

func (i *resolveItem) Upper() string { return "UP:" + i.Title }

func TestContextResolver(t *testing.T) {
	r := ContextResolver{
		"m":     map[string]any{"a": map[string]int{"b": 2}},
		"items": []resolveItem{{Title: "first"}, {Title: "second"}},
		"ptr":   &resolveItem{Title: "p"},
		"fn":    func() string { return "called" },
		"nilp":  (*resolveItem)(nil),
	}
	cases := map[string]any{
		"m.a.b":         2,
		"items.1.title": "second",
		"items.0.Title": "first",
		"ptr.upper":     "UP:p",
		"fn":            "called",
	}
	for expr, want := range cases {
		got, err := r.Resolve(expr)
		if err != nil || got != want {
			t.Fatalf("%s: got %v (%T), %v", expr, got, got, err)
		}
	}
	for _, expr := range []string{"missing", "m.x", "items.5", "items.x", "nilp.title", "ptr.title.more"} {
		if _, err := r.Resolve(expr); !errors.Is(err, ErrVariableDoesNotExist) {
			t.Fatalf("%s: got %v", expr, err)
		}
	}
}

func TestResolverFunc(t *testing.T) {
	r := ResolverFunc(func(expr string) (any, error) { return expr + "!", nil })
	v, err := resolveArg("x", r)
	if err != nil || v != "x!" {
		t.Fatalf("got %v, %v", v, err)
	}
	if v, _ := resolveArg(`'lit'`, r); v != "lit" {
		t.Fatalf("got %v", v)
	}
}
