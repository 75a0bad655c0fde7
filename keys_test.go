package fragcache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func TestBuildKeyKnownValues(t *testing.T) {
	got, err := BuildKey("cache", "test_cached_template", []any{42, "2015-10-27 00:00:00"}, false)
	if err != nil || got != testKey {
		t.Fatalf("got %q, %v", got, err)
	}

	got, _ = BuildKey("cache", "test_cached_template", []any{42, "2015-10-27 00:00:00"}, true)
	if got != "template.cache.test_cached_template.42.0cac9a03d5330dd78ddc9a0c16f01403" {
		t.Fatalf("pk key=%q", got)
	}

	sum := md5.Sum([]byte("42:2015-10-27T00%3A00%3A00"))
	want := "template.cache.widget." + hex.EncodeToString(sum[:])
	got, _ = BuildKey("cache", "widget", []any{42, "2015-10-27T00:00:00"}, false)
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildKeyOrderMatters(t *testing.T) {
	a, _ := BuildKey("cache", "f", []any{1, 2}, false)
	b, _ := BuildKey("cache", "f", []any{2, 1}, false)
	c, _ := BuildKey("cache", "f", []any{1, 2}, false)
	if a == b || a != c {
		t.Fatalf("a=%s b=%s c=%s", a, b, c)
	}
}

func TestBuildKeyTime(t *testing.T) {
	ts := time.Date(2015, 10, 27, 0, 0, 0, 0, time.UTC)
	a, _ := BuildKey("cache", "f", []any{ts}, false)
	b, _ := BuildKey("cache", "f", []any{"2015-10-27T00:00:00Z"}, false)
	if a != b {
		t.Fatalf("time.Time should hash as RFC 3339: %s vs %s", a, b)
	}
}

func TestBuildKeyErrors(t *testing.T) {
	_, err := BuildKey("cache", "f", []any{"ok", make(chan int)}, false)
	var ke *KeyError
	if !errors.As(err, &ke) || ke.Index != 1 {
		t.Fatalf("want KeyError at index 1, got %v", err)
	}
	if _, err := BuildKey("cache", "f", nil, true); !errors.As(err, &ke) {
		t.Fatalf("include_pk without vary values: got %v", err)
	}
}

func TestDefaultKeyBuilderPrefix(t *testing.T) {
	got, _ := DefaultKeyBuilder{Prefix: "site1"}.Key("cache", "f", nil, false)
	if got != "site1.cache.f.d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("got %q", got)
	}
}

func TestStringify(t *testing.T) {
	cases := map[string]any{
		"":     nil,
		"42":   42,
		"4.5":  4.5,
		"true": true,
		"abc":  []byte("abc"),
	}
	for want, in := range cases {
		got, err := Stringify(in)
		if err != nil || got != want {
			t.Fatalf("Stringify(%v)=%q,%v want %q", in, got, err, want)
		}
	}
}
