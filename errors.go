package fragcache

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend is returned (in debug mode) when a request names a backend
	// that is not configured.
	ErrNoBackend = errors.New("fragcache: no such cache backend")

	// ErrUnbalancedMarkers reports cached content whose live-region markers
	// do not pair up. The entry is treated as corrupt.
	ErrUnbalancedMarkers = errors.New("fragcache: unbalanced live-region markers")

	// ErrVariableDoesNotExist is returned by a Resolver for an unknown name.
	ErrVariableDoesNotExist = errors.New("fragcache: variable does not exist")
)

// SyntaxError reports a malformed cache tag invocation. It is always returned
// to the caller, whatever the debug setting.
type SyntaxError struct {
	Tag string
	Msg string
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("'%s' %s: %v", e.Tag, e.Msg, e.Err)
	}
	return fmt.Sprintf("'%s' %s", e.Tag, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// KeyError reports vary values that cannot be turned into a cache key.
type KeyError struct {
	Fragment string
	Index    int
	Err      error
}

func (e *KeyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cache key for %q: %v", e.Fragment, e.Err)
	}
	return fmt.Sprintf("cache key for %q: vary value %d: %v", e.Fragment, e.Index, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// StoreError wraps a failure of a cache backend.
type StoreError struct {
	Op      string // "get", "set", "del"
	Key     string
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache backend %q: %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// InvalidateError is returned by InvalidateFragment when the generation bump
// fails. Entries of the fragment stay valid until they expire.
type InvalidateError struct {
	Scope   string
	BumpErr error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Scope, e.BumpErr)
}

func (e *InvalidateError) Unwrap() error { return e.BumpErr }

// IsFatal reports whether err belongs to the class that is surfaced
// regardless of debug mode.
func IsFatal(err error) bool {
	var se *SyntaxError
	var ke *KeyError
	return errors.As(err, &se) || errors.As(err, &ke)
}
