package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/fragcache"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("cache backend error", fragcache.Fields{"key": "k", "op": "get", "err": errors.New("down")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "fragcache" || e.Level != zapcore.WarnLevel {
		t.Fatalf("entry=%+v", e.Entry)
	}
	m := e.ContextMap()
	if m["key"] != "k" || m["op"] != "get" || m["err"] != "down" {
		t.Fatalf("fields=%v", m)
	}
}
