package fragcache

import (
	"errors"
	"strings"
	"testing"
)

type testObj struct {
	PK        int
	UpdatedAt string
	calls     *int
}

func (o testObj) GetName() string {
	*o.calls++
	return "foobar"
}

func testResolver() ContextResolver {
	n := 0
	return ContextResolver{
		"obj":           testObj{PK: 42, UpdatedAt: "2015-10-27 00:00:00", calls: &n},
		"fragment_name": "test_cached_template",
		"ttl":           "60",
		"version":       3,
	}
}

func TestParseTagBasic(t *testing.T) {
	tag, err := ParseTag("cache", strings.Fields("1 test_cached_template obj.pk obj.updated_at"), TagOptions{})
	if err != nil {
		t.Fatal(err)
	}
	req, err := tag.Request(testResolver())
	if err != nil {
		t.Fatal(err)
	}
	if req.Nodename != "cache" || req.FragmentName != "test_cached_template" || *req.ExpireSeconds != 1 {
		t.Fatalf("req=%+v", req)
	}
	key, _ := BuildKey(req.Nodename, req.FragmentName, req.VaryOn, false)
	if key != testKey {
		t.Fatalf("key=%q", key)
	}
}

func TestParseTagTooFewArguments(t *testing.T) {
	for _, bits := range [][]string{nil, {"1"}, {"1", "using=foo"}} {
		_, err := ParseTag("cache", bits, TagOptions{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%v: want SyntaxError, got %v", bits, err)
		}
	}
}

func TestTimeoutValues(t *testing.T) {
	ok := map[string]*int{"0": intp(0), "1": intp(1), "9999": intp(9999), `"0"`: intp(0), `"1"`: intp(1), `"9999"`: intp(9999), "None": nil, "ttl": intp(60)}
	for expr, want := range ok {
		tag, err := ParseTag("cache", []string{expr, "frag"}, TagOptions{})
		if err != nil {
			t.Fatal(err)
		}
		req, err := tag.Request(testResolver())
		if err != nil {
			t.Fatalf("%s: %v", expr, err)
		}
		if (want == nil) != (req.ExpireSeconds == nil) || (want != nil && *want != *req.ExpireSeconds) {
			t.Fatalf("%s: got %v", expr, req.ExpireSeconds)
		}
	}

	ko := []string{"-1", "-9999", `"-1"`, `"-9999"`, `"foo"`, `""`, "12.3", `"12.3"`}
	for _, expr := range ko {
		tag, err := ParseTag("cache", []string{expr, "frag"}, TagOptions{})
		if err != nil {
			t.Fatal(err)
		}
		_, err = tag.Request(testResolver())
		var se *SyntaxError
		if !errors.As(err, &se) || !strings.Contains(err.Error(), "tag got a non-integer (or None) timeout value") {
			t.Fatalf("%s: got %v", expr, err)
		}
	}
}

func TestIncoherentFragmentQuotes(t *testing.T) {
	for _, name := range []string{`"test_cached_template`, `test_cached_template"`, `'test_cached_template`, `test_cached_template'`, `"test_cached_template'`} {
		_, err := ParseTag("cache", []string{"1", name, "obj.pk"}, TagOptions{})
		if err == nil || !strings.Contains(err.Error(), "incoherent") {
			t.Fatalf("%s: got %v", name, err)
		}
	}
	tag, err := ParseTag("cache", []string{"1", `"test_cached_template"`, "obj.pk", `"foo"`}, TagOptions{})
	if err != nil || tag.Fragment != "test_cached_template" || tag.FragmentVar {
		t.Fatalf("tag=%+v err=%v", tag, err)
	}
}

func TestResolveFragmentName(t *testing.T) {
	opts := TagOptions{ResolveFragmentName: true}
	tag, _ := ParseTag("cache", strings.Fields("1 fragment_name obj.pk obj.updated_at"), opts)
	req, err := tag.Request(testResolver())
	if err != nil || req.FragmentName != "test_cached_template" {
		t.Fatalf("req=%+v err=%v", req, err)
	}

	tag, _ = ParseTag("cache", strings.Fields(`1 "test_cached_template" obj.pk`), opts)
	if tag.FragmentVar {
		t.Fatal("quoted name must stay literal")
	}

	tag, _ = ParseTag("cache", strings.Fields("1 undefined_fragment_name obj.pk"), opts)
	_, err = tag.Request(testResolver())
	if !errors.Is(err, ErrVariableDoesNotExist) || !strings.Contains(err.Error(), "undefined_fragment_name") {
		t.Fatalf("got %v", err)
	}
}

func TestUsingArgument(t *testing.T) {
	for _, bits := range []string{
		"1 test_cached_template obj.pk obj.updated_at using=foo",
		`1 test_cached_template using="foo" obj.pk obj.updated_at`,
	} {
		tag, err := ParseTag("cache", strings.Fields(bits), TagOptions{})
		if err != nil {
			t.Fatal(err)
		}
		req, _ := tag.Request(testResolver())
		if req.Backend != "foo" || len(req.VaryOn) != 2 {
			t.Fatalf("%s: req=%+v", bits, req)
		}
	}
}

func TestVersioningPopsLastArgument(t *testing.T) {
	tag, err := ParseTag("cache", strings.Fields("1 frag obj.pk obj.updated_at version"), TagOptions{Versioning: true})
	if err != nil {
		t.Fatal(err)
	}
	req, err := tag.Request(testResolver())
	if err != nil {
		t.Fatal(err)
	}
	if req.Version == nil || *req.Version != "3" || len(req.VaryOn) != 2 {
		t.Fatalf("req=%+v", req)
	}

	tag, _ = ParseTag("cache", []string{"1", "frag"}, TagOptions{Versioning: true})
	if tag.HasVersion {
		t.Fatal("no vary arguments means no version")
	}
}

func TestUnknownVaryVariable(t *testing.T) {
	tag, _ := ParseTag("cache", strings.Fields("1 frag obj.nope"), TagOptions{})
	_, err := tag.Request(testResolver())
	var se *SyntaxError
	if !errors.As(err, &se) || !errors.Is(err, ErrVariableDoesNotExist) {
		t.Fatalf("got %v", err)
	}
}

func TestExpireFunc(t *testing.T) {
	double := func(n int, _ Resolver) (int, error) { return n * 2, nil }
	tag, _ := ParseTag("cache", []string{"30", "frag"}, TagOptions{ExpireFunc: double})
	req, err := tag.Request(testResolver())
	if err != nil || *req.ExpireSeconds != 60 {
		t.Fatalf("req=%+v err=%v", req, err)
	}
}

func TestLiteralVaryValues(t *testing.T) {
	tag, _ := ParseTag("cache", []string{"1", "frag", `"foo"`, "7", "None"}, TagOptions{})
	req, err := tag.Request(nil)
	if err != nil {
		t.Fatal(err)
	}
	if req.VaryOn[0] != "foo" || req.VaryOn[1] != 7 || req.VaryOn[2] != nil {
		t.Fatalf("vary=%v", req.VaryOn)
	}
}

func TestWholeFloatTimeouts(t *testing.T) {
	r := ContextResolver{"f64": float64(60), "f32": float32(30), "half": 1.5, "neg": -2.0}
	tag, _ := ParseTag("cache", []string{"f64", "frag"}, TagOptions{})
	if req, err := tag.Request(r); err != nil || *req.ExpireSeconds != 60 {
		t.Fatalf("f64: %v %v", req.ExpireSeconds, err)
	}
	tag, _ = ParseTag("cache", []string{"f32", "frag"}, TagOptions{})
	if req, err := tag.Request(r); err != nil || *req.ExpireSeconds != 30 {
		t.Fatalf("f32: %v %v", req.ExpireSeconds, err)
	}
	for _, expr := range []string{"half", "neg"} {
		tag, _ = ParseTag("cache", []string{expr, "frag"}, TagOptions{})
		var se *SyntaxError
		if _, err := tag.Request(r); !errors.As(err, &se) {
			t.Fatalf("%s: got %v", expr, err)
		}
	}
}
