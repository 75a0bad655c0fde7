// Package sloghooks reports fragment cache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/fragcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ fragcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("fragcache.hit", "key", h.redact(key))
}

func (h *Hooks) Miss(key, reason string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("fragcache.miss",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) StoreError(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("fragcache.store_error",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) ProviderSetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("fragcache.provider_set_rejected", "key", h.redact(key))
}

func (h *Hooks) RenderError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("fragcache.render_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) LiveRendered(key string, n int) {
	if h.l == nil {
		return
	}
	h.l.Debug("fragcache.live_rendered",
		"key", h.redact(key),
		"regions", n)
}

func (h *Hooks) GenError(op, scope string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("fragcache.gen_error",
		"op", op,
		"scope", scope,
		"err", err)
}
