// Package promhooks exports fragment cache events as Prometheus counters.
package promhooks

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/fragcache"
)

type Options struct {
	Namespace string // "fragcache" when empty
	// Fragment maps a cache key to a low-cardinality label. Defaults to
	// "<nodename>.<fragment>" for keys built by fragcache.DefaultKeyBuilder.
	Fragment func(key string) string
}

type Hooks struct {
	fragment func(string) string

	hits         *prometheus.CounterVec
	misses       *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	setRejected  *prometheus.CounterVec
	renderErrors *prometheus.CounterVec
	liveRegions  *prometheus.CounterVec
	genErrors    *prometheus.CounterVec
}

var _ fragcache.Hooks = (*Hooks)(nil)

func New(opts Options) *Hooks {
	return NewWithRegistry(opts, prometheus.DefaultRegisterer)
}

func NewWithRegistry(opts Options, registerer prometheus.Registerer) *Hooks {
	ns := opts.Namespace
	if ns == "" {
		ns = "fragcache"
	}
	h := &Hooks{fragment: opts.Fragment}
	if h.fragment == nil {
		h.fragment = FragmentLabel
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      name,
			Help:      help,
		}, labels)
	}
	h.hits = counter("hits_total", "Fragments served from a cache backend", "fragment")
	h.misses = counter("misses_total", "Fragments rendered fresh, by reason", "fragment", "reason")
	h.storeErrors = counter("store_errors_total", "Cache backend failures", "fragment", "op")
	h.setRejected = counter("set_rejected_total", "Writes rejected by the backend under pressure", "fragment")
	h.renderErrors = counter("render_errors_total", "Fragment body render failures", "fragment")
	h.liveRegions = counter("live_regions_rendered_total", "Live regions rendered on top of cached content", "fragment")
	h.genErrors = counter("generation_errors_total", "Generation store failures", "op")

	registerer.MustRegister(
		h.hits,
		h.misses,
		h.storeErrors,
		h.setRejected,
		h.renderErrors,
		h.liveRegions,
		h.genErrors,
	)
	return h
}

// FragmentLabel returns "<nodename>.<fragment>" from a default cache key,
// or "other".
func FragmentLabel(key string) string {
	parts := strings.Split(key, ".")
	if len(parts) < 4 {
		return "other"
	}
	return parts[1] + "." + parts[2]
}

func (h *Hooks) Hit(key string) { h.hits.WithLabelValues(h.fragment(key)).Inc() }

func (h *Hooks) Miss(key, reason string) {
	h.misses.WithLabelValues(h.fragment(key), reason).Inc()
}

func (h *Hooks) StoreError(key, op string, _ error) {
	h.storeErrors.WithLabelValues(h.fragment(key), op).Inc()
}

func (h *Hooks) ProviderSetRejected(key string) {
	h.setRejected.WithLabelValues(h.fragment(key)).Inc()
}

func (h *Hooks) RenderError(key string, _ error) {
	h.renderErrors.WithLabelValues(h.fragment(key)).Inc()
}

func (h *Hooks) LiveRendered(key string, n int) {
	h.liveRegions.WithLabelValues(h.fragment(key)).Add(float64(n))
}

func (h *Hooks) GenError(op, _ string, _ error) {
	h.genErrors.WithLabelValues(op).Inc()
}
