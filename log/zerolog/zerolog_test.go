package zerolog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/fragcache"
)

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("filtered", nil)
	l.Error("fragment render failed", fragcache.Fields{"key": "k", "err": errors.New("boom")})

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Fatalf("debug should be filtered: %s", out)
	}
	for _, want := range []string{`"level":"error"`, `"component":"fragcache"`, `"key":"k"`, `"err":"boom"`, `"message":"fragment render failed"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
