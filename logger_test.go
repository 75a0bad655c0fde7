package fragcache

import "testing"

type recLogger struct {
	msgs   []string
	fields []Fields
}

func (r *recLogger) rec(msg string, f Fields) {
	r.msgs = append(r.msgs, msg)
	r.fields = append(r.fields, f)
}

func (r *recLogger) Debug(msg string, f Fields) { r.rec(msg, f) }
func (r *recLogger) Info(msg string, f Fields)  { r.rec(msg, f) }
func (r *recLogger) Warn(msg string, f Fields)  { r.rec(msg, f) }
func (r *recLogger) Error(msg string, f Fields) { r.rec(msg, f) }

func TestWith(t *testing.T) {
	rec := &recLogger{}
	l := With(rec, Fields{"tool": "x", "key": "base"})
	l.Warn("m", Fields{"key": "k"})
	l.Info("n", nil)

	if len(rec.msgs) != 2 {
		t.Fatalf("got %d entries", len(rec.msgs))
	}
	if f := rec.fields[0]; f["tool"] != "x" || f["key"] != "k" {
		t.Fatalf("fields = %v", f)
	}
	if f := rec.fields[1]; f["key"] != "base" {
		t.Fatalf("fields = %v", f)
	}
	if _, ok := With(nil, Fields{"a": 1}).(NopLogger); !ok {
		t.Fatal("nil logger should become NopLogger")
	}
	if With(rec, nil) != Logger(rec) {
		t.Fatal("empty base should return the logger itself")
	}
}
