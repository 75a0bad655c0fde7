package fragcache

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMarkersFromSecret(t *testing.T) {
	m := NewMarkers(testSecret, Syntax{})
	if m.Token != "RAW_38a11088962625eb8c913e791931e2bc2e3c7228" {
		t.Fatalf("token=%s", m.Token)
	}
	if m.Start != "{%"+m.Token+"%}" || m.End != "{%end"+m.Token+"%}" {
		t.Fatalf("start=%s end=%s", m.Start, m.End)
	}
	if other := NewMarkers("another secret", Syntax{}); other.Token == m.Token {
		t.Fatal("token must depend on the secret")
	}
}

func testLibraries() *LibraryRegistry {
	return NewLibraryRegistry(
		Library{Name: "builtins", Tags: []string{"if", "for"}, Filters: []string{"upper", "length"}, Builtin: true},
		Library{Name: "adv_cache", Tags: []string{"cache", "nocache"}},
		Library{Name: "other_tags", Tags: []string{"insert_foo"}},
		Library{Name: "other_filters", Filters: []string{"double_upper"}},
		Library{Name: "more_filters", Filters: []string{"double_upper", "shout"}},
	)
}

func TestCaptureSource(t *testing.T) {
	r := NewReconciler(NewMarkers(testSecret, Syntax{}), Syntax{}, nil)
	tokens := []Token{
		{Type: TokenText, Contents: "a "},
		{Type: TokenVar, Contents: " x|upper "},
		{Type: TokenBlock, Contents: " if y "},
		{Type: TokenText, Contents: "b"},
		{Type: TokenBlock, Contents: " endif "},
		{Type: TokenComment, Contents: " note "},
	}
	got := r.Capture(tokens, []string{"adv_cache"})
	want := r.Markers().End + "a {{ x|upper }}{% if y %}b{% endif %}{# note #}" + r.Markers().Start
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestCaptureLoadsNeededLibraries(t *testing.T) {
	r := NewReconciler(NewMarkers(testSecret, Syntax{}), Syntax{}, testLibraries())
	tokens := []Token{
		{Type: TokenText, Contents: "\n"},
		{Type: TokenBlock, Contents: " load other_filters "},
		{Type: TokenVar, Contents: " obj.get_foo|double_upper "},
		{Type: TokenText, Contents: " "},
		{Type: TokenBlock, Contents: " insert_foo "},
		{Type: TokenVar, Contents: " name|upper "},
	}
	got := r.Capture(tokens, []string{"adv_cache", "other_tags", "other_filters"})
	want := r.Markers().End + "{%load other_tags%}" +
		"\n{% load other_filters %}{{ obj.get_foo|double_upper }} {% insert_foo %}{{ name|upper }}" +
		r.Markers().Start
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestLibrariesLastLoadedWins(t *testing.T) {
	r := NewReconciler(NewMarkers(testSecret, Syntax{}), Syntax{}, testLibraries())
	tokens := []Token{{Type: TokenVar, Contents: "x|double_upper"}, {Type: TokenBlock, Contents: "insert_foo"}}

	got := r.Libraries(tokens, []string{"other_filters", "other_tags", "more_filters"})
	if !reflect.DeepEqual(got, []string{"more_filters", "other_tags"}) {
		t.Fatalf("got %v", got)
	}
	got = r.Libraries(tokens, []string{"more_filters", "other_filters"})
	if !reflect.DeepEqual(got, []string{"other_filters"}) {
		t.Fatalf("got %v", got)
	}
	if got := r.Libraries(tokens, nil); got != nil {
		t.Fatalf("nothing loaded: got %v", got)
	}
}

func TestLibraryRegistryRebuild(t *testing.T) {
	libs := testLibraries()
	if got := libs.Defining("shout", true); !reflect.DeepEqual(got, []string{"more_filters"}) {
		t.Fatalf("got %v", got)
	}
	libs.Unregister("more_filters")
	if got := libs.Defining("shout", true); len(got) != 0 {
		t.Fatalf("after unregister: %v", got)
	}
	libs.Register(Library{Name: "loud", Filters: []string{"shout"}})
	if got := libs.Defining("shout", true); !reflect.DeepEqual(got, []string{"loud"}) {
		t.Fatalf("after register: %v", got)
	}

	var nilRegistry *LibraryRegistry
	if got := nilRegistry.Defining("shout", true); got != nil {
		t.Fatalf("nil registry: %v", got)
	}
}

func TestSplit(t *testing.T) {
	r := NewReconciler(NewMarkers(testSecret, Syntax{}), Syntax{}, nil)
	m := r.Markers()

	segs, err := r.Split("a" + m.End + "live1" + m.Start + "b" + m.End + "live2" + m.Start)
	if err != nil {
		t.Fatal(err)
	}
	want := []Segment{{Text: "a"}, {Live: true, Text: "live1"}, {Text: "b"}, {Live: true, Text: "live2"}}
	if !reflect.DeepEqual(segs, want) {
		t.Fatalf("got %+v", segs)
	}

	bad := []string{
		"a" + m.Start + "b",
		"a" + m.End + "b",
		"a" + m.Start + m.End,
		m.End + "x" + m.End + "y" + m.Start,
	}
	for _, s := range bad {
		if _, err := r.Split(s); !errors.Is(err, ErrUnbalancedMarkers) {
			t.Fatalf("%q: got %v", s, err)
		}
	}
}

func TestReconcile(t *testing.T) {
	r := NewReconciler(NewMarkers(testSecret, Syntax{}), Syntax{}, nil)
	m := r.Markers()
	fr := &fakeRenderer{}
	content := "x" + m.End + "[{{obj.get_foo}}]" + m.Start + "y" + m.End + "{{obj.get_foo}}" + m.Start

	out, n, err := r.Reconcile(context.Background(), content, fr)
	if err != nil || out != "x[FOO1]yFOO2" || n != 2 {
		t.Fatalf("out=%q n=%d err=%v", out, n, err)
	}
	if r.HasLive("plain") || !r.HasLive(content) {
		t.Fatal("HasLive")
	}
}

func TestCustomSyntax(t *testing.T) {
	s := Syntax{BlockStart: "<%", BlockEnd: "%>", VarStart: "<%=", VarEnd: "%>"}
	m := NewMarkers(testSecret, s)
	if m.Start != "<%"+m.Token+"%>" {
		t.Fatalf("start=%s", m.Start)
	}
	src := s.withDefaults().Source([]Token{{Type: TokenVar, Contents: "x"}, {Type: TokenComment, Contents: "c"}})
	if src != "<%=x%>{#c#}" {
		t.Fatalf("src=%s", src)
	}
}
