package bigcache

import (
	"context"
	"testing"
	"time"
)

func TestBigcacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LifeWindow: time.Minute, Shards: 16})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("1::hello"), 0, 0); !ok || err != nil {
		t.Fatalf("set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if !ok || err != nil || string(b) != "1::hello" {
		t.Fatalf("get: %q ok=%v err=%v", b, ok, err)
	}
	if p.Len() != 1 {
		t.Fatalf("len=%d", p.Len())
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("second del should be a no-op: %v", err)
	}
}
