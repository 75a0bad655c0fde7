package ristretto

import (
	"context"
	"testing"
)

func TestRistrettoSyncWrites(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64, SyncWrites: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close(ctx)

	if ok, err := p.Set(ctx, "k", []byte("1::hello"), 0, 0); !ok || err != nil {
		t.Fatalf("set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if !ok || err != nil || string(b) != "1::hello" {
		t.Fatalf("get after sync set: %q ok=%v err=%v", b, ok, err)
	}
	_ = p.Del(ctx, "k")
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestRistrettoInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
}
