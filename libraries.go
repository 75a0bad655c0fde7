package fragcache

import (
	"sort"
	"sync"
)

// Library describes a tag library of the host engine: the directives and
// filters it defines. Builtin libraries are always available and never need
// a load directive.
type Library struct {
	Name    string
	Tags    []string
	Filters []string
	Builtin bool
}

// LibraryRegistry indexes libraries by the directives and filters they
// define. The index is rebuilt lazily after Register or Unregister.
// A nil *LibraryRegistry knows no libraries.
type LibraryRegistry struct {
	mu    sync.RWMutex
	libs  map[string]Library
	tags  map[string][]string
	filts map[string][]string
	dirty bool
}

func NewLibraryRegistry(libs ...Library) *LibraryRegistry {
	r := &LibraryRegistry{libs: make(map[string]Library)}
	for _, l := range libs {
		r.libs[l.Name] = l
	}
	r.dirty = true
	return r
}

func (r *LibraryRegistry) Register(l Library) {
	r.mu.Lock()
	if r.libs == nil {
		r.libs = make(map[string]Library)
	}
	r.libs[l.Name] = l
	r.dirty = true
	r.mu.Unlock()
}

func (r *LibraryRegistry) Unregister(name string) {
	r.mu.Lock()
	delete(r.libs, name)
	r.dirty = true
	r.mu.Unlock()
}

// Invalidate forces the index to be rebuilt on next use.
func (r *LibraryRegistry) Invalidate() {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

func (r *LibraryRegistry) Lookup(name string) (Library, bool) {
	if r == nil {
		return Library{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.libs[name]
	return l, ok
}

// Defining returns the libraries that define the directive (or, with
// filter=true, the filter) name, sorted by library name.
func (r *LibraryRegistry) Defining(name string, filter bool) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	if !r.dirty {
		defer r.mu.RUnlock()
		return r.defining(name, filter)
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dirty {
		r.rebuild()
	}
	return r.defining(name, filter)
}

func (r *LibraryRegistry) defining(name string, filter bool) []string {
	if filter {
		return r.filts[name]
	}
	return r.tags[name]
}

func (r *LibraryRegistry) rebuild() {
	r.tags = make(map[string][]string)
	r.filts = make(map[string][]string)
	for _, l := range r.libs {
		for _, t := range l.Tags {
			r.tags[t] = append(r.tags[t], l.Name)
		}
		for _, f := range l.Filters {
			r.filts[f] = append(r.filts[f], l.Name)
		}
	}
	for _, v := range r.tags {
		sort.Strings(v)
	}
	for _, v := range r.filts {
		sort.Strings(v)
	}
	r.dirty = false
}
