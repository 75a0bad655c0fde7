package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/fragcache"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("dropped", fragcache.Fields{"key": "k"})
	l.Warn("cache backend error", fragcache.Fields{"op": "set", "key": "k"})

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("debug should be filtered:\n%s", out)
	}
	if !strings.Contains(out, `msg="cache backend error" key=k op=set`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
