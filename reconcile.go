package fragcache

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

var filterRe = regexp.MustCompile(`\|\s*(\w+)`)

// Segment is a piece of cached content: static rendered text, or the source
// of a live region.
type Segment struct {
	Live bool
	Text string
}

// Reconciler captures live regions at parse time and re-renders them when a
// fragment is served.
type Reconciler struct {
	markers Markers
	syntax  Syntax
	libs    *LibraryRegistry
}

func NewReconciler(markers Markers, syntax Syntax, libs *LibraryRegistry) *Reconciler {
	return &Reconciler{markers: markers, syntax: syntax.withDefaults(), libs: libs}
}

func (r *Reconciler) Markers() Markers { return r.markers }

// Capture turns the tokens of a live region into the text the host engine
// must output in its place. loaded lists the libraries loaded in the
// enclosing template, in load order.
func (r *Reconciler) Capture(tokens []Token, loaded []string) string {
	var b strings.Builder
	b.WriteString(r.markers.End)
	if libs := r.Libraries(tokens, loaded); len(libs) > 0 {
		b.WriteString(r.syntax.Block(r.syntax.Load + " " + strings.Join(libs, " ")))
	}
	b.WriteString(r.syntax.Source(tokens))
	b.WriteString(r.markers.Start)
	return b.String()
}

// Libraries returns, sorted, the non-builtin libraries a live region needs a
// load directive for: libraries from loaded that define a directive or filter
// used by the region and that the region does not load itself. When several
// loaded libraries define the same name, the one loaded last wins.
func (r *Reconciler) Libraries(tokens []Token, loaded []string) []string {
	if r.libs == nil || len(loaded) == 0 {
		return nil
	}
	own := make(map[string]struct{})
	var tags, filters []string
	for _, t := range tokens {
		switch t.Type {
		case TokenBlock:
			fields := strings.Fields(t.Contents)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == r.syntax.Load {
				for _, name := range fields[1:] {
					own[name] = struct{}{}
				}
				continue
			}
			tags = append(tags, fields[0])
			filters = append(filters, usedFilters(t.Contents)...)
		case TokenVar:
			filters = append(filters, usedFilters(t.Contents)...)
		}
	}

	order := make(map[string]int, len(loaded))
	for i, name := range loaded {
		order[name] = i
	}
	need := make(map[string]struct{})
	pick := func(name string, filter bool) {
		best, bestIdx := "", -1
		for _, lib := range r.libs.Defining(name, filter) {
			if i, ok := order[lib]; ok && i > bestIdx {
				best, bestIdx = lib, i
			}
		}
		if bestIdx < 0 {
			return
		}
		if l, ok := r.libs.Lookup(best); ok && l.Builtin {
			return
		}
		if _, ok := own[best]; ok {
			return
		}
		need[best] = struct{}{}
	}
	for _, t := range tags {
		pick(t, false)
	}
	for _, f := range filters {
		pick(f, true)
	}
	if len(need) == 0 {
		return nil
	}
	out := make([]string, 0, len(need))
	for name := range need {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func usedFilters(s string) []string {
	m := filterRe.FindAllStringSubmatch(s, -1)
	if len(m) == 0 {
		return nil
	}
	out := make([]string, len(m))
	for i, sub := range m {
		out[i] = sub[1]
	}
	return out
}

// HasLive reports whether content carries live-region markers.
func (r *Reconciler) HasLive(content string) bool {
	return strings.Contains(content, r.markers.End) || strings.Contains(content, r.markers.Start)
}

// Split cuts content into static and live segments. The body of a live
// region is returned verbatim and is not scanned for further markers.
func (r *Reconciler) Split(content string) ([]Segment, error) {
	var segs []Segment
	rest := content
	for {
		open := strings.Index(rest, r.markers.End)
		closeAt := strings.Index(rest, r.markers.Start)
		if open < 0 {
			if closeAt >= 0 {
				return nil, ErrUnbalancedMarkers
			}
			if rest != "" {
				segs = append(segs, Segment{Text: rest})
			}
			return segs, nil
		}
		if closeAt >= 0 && closeAt < open {
			return nil, ErrUnbalancedMarkers
		}
		if open > 0 {
			segs = append(segs, Segment{Text: rest[:open]})
		}
		rest = rest[open+len(r.markers.End):]

		closeAt = strings.Index(rest, r.markers.Start)
		if closeAt < 0 || strings.Contains(rest[:closeAt], r.markers.End) {
			return nil, ErrUnbalancedMarkers
		}
		segs = append(segs, Segment{Live: true, Text: rest[:closeAt]})
		rest = rest[closeAt+len(r.markers.Start):]
	}
}

// Reconcile renders every live region of content through rr and returns the
// assembled text with the number of live regions rendered.
func (r *Reconciler) Reconcile(ctx context.Context, content string, rr Renderer) (string, int, error) {
	segs, err := r.Split(content)
	if err != nil {
		return "", 0, err
	}
	var b strings.Builder
	b.Grow(len(content))
	n := 0
	for _, s := range segs {
		if !s.Live {
			b.WriteString(s.Text)
			continue
		}
		out, err := rr.RenderSource(ctx, s.Text)
		if err != nil {
			return "", n, err
		}
		b.WriteString(out)
		n++
	}
	return b.String(), n, nil
}
