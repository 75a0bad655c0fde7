package fragcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/fragcache/codec"
	gen "github.com/unkn0wn-root/fragcache/genstore"
	pr "github.com/unkn0wn-root/fragcache/provider"
)

type SetCostFunc func(key string, raw []byte) int64

// Renderer is implemented by the host engine for one render of a cache
// directive. RenderBody renders the directive's body against the current
// context; RenderSource compiles and renders a live region's source against
// the same context.
type Renderer interface {
	RenderBody(ctx context.Context) (string, error)
	RenderSource(ctx context.Context, src string) (string, error)
}

// RendererFuncs adapts two functions to Renderer. A nil Source renders the
// source text as is.
type RendererFuncs struct {
	Body   func(ctx context.Context) (string, error)
	Source func(ctx context.Context, src string) (string, error)
}

func (f RendererFuncs) RenderBody(ctx context.Context) (string, error) { return f.Body(ctx) }

func (f RendererFuncs) RenderSource(ctx context.Context, src string) (string, error) {
	if f.Source == nil {
		return src, nil
	}
	return f.Source(ctx, src)
}

// Request is one resolved invocation of the cache directive.
type Request struct {
	Nodename      string
	FragmentName  string
	ExpireSeconds *int    // nil: no expiry; 0: render without persisting
	VaryOn        []any
	Version       *string // content version, used with Settings.Versioning
	Backend       string  // empty: Settings.CacheBackend

	// Regenerate skips the cache read and overwrites the entry.
	Regenerate bool
	// Partial returns the content with live-region markers left in place.
	Partial bool
}

// Settings are the behavior switches shared by every directive of a Cache.
type Settings struct {
	Versioning            bool   `yaml:"versioning" env:"ADV_CACHE_VERSIONING"`
	Compress              bool   `yaml:"compress" env:"ADV_CACHE_COMPRESS"`
	CompressSpaces        bool   `yaml:"compress_spaces" env:"ADV_CACHE_COMPRESS_SPACES"`
	IncludePK             bool   `yaml:"include_pk" env:"ADV_CACHE_INCLUDE_PK"`
	CacheBackend          string `yaml:"cache_backend" env:"ADV_CACHE_BACKEND"`
	InternalVersionSuffix string `yaml:"internal_version" env:"ADV_CACHE_VERSION"`
	ResolveFragmentName   bool   `yaml:"resolve_fragment_name" env:"ADV_CACHE_RESOLVE_NAME"`
}

// TagOptions returns the parser options matching s.
func (s Settings) TagOptions() TagOptions {
	return TagOptions{Versioning: s.Versioning, ResolveFragmentName: s.ResolveFragmentName}
}

// Entry is a stored fragment as returned by Peek.
type Entry struct {
	Key             string
	Backend         string
	InternalVersion string
	ContentVersion  string
	Content         string
	// Current is false when the entry would be treated as a miss because of
	// a version mismatch.
	Current bool
}

// Cache renders fragments through a named store.
type Cache interface {
	Enabled() bool
	Close(context.Context) error

	// Render returns the fragment for req, from the store when a current
	// entry exists, otherwise from r.RenderBody. Live regions are rendered
	// through r.RenderSource unless req.Partial is set.
	Render(ctx context.Context, req Request, r Renderer) (string, error)

	Key(req Request) (string, error)

	// Peek reads and unwraps the stored entry without rendering anything.
	Peek(ctx context.Context, req Request) (Entry, bool, error)

	// Invalidate deletes the entry of req.
	Invalidate(ctx context.Context, req Request) error

	// InvalidateFragment makes every stored variant of a fragment stale.
	InvalidateFragment(ctx context.Context, nodename, fragment string) error

	Reconciler() *Reconciler
	Settings() Settings
}

// Options tune the fragment cache.
// Secret and at least one backend are required; others have sensible defaults.
type Options struct {
	Settings

	// Required
	Backends map[string]pr.Provider // keyed by backend name; Settings.CacheBackend must be present
	Secret   string                 // seeds the live-region marker token

	Codec           c.Codec[string]  // nil => String, or Msgpack+Zlib with Settings.Compress
	KeyBuilder      KeyBuilder       // nil => DefaultKeyBuilder
	Syntax          Syntax           // zero => DefaultSyntax
	Libraries       *LibraryRegistry // tag libraries known to the host engine
	Logger          Logger           // if nil, NopLogger is used
	Hooks           Hooks            // if nil, NopHooks is used
	GenStore        gen.GenStore     // nil => LocalGenStore (in-process)
	CloseGenStore   bool             // close a provided GenStore on Close
	ComputeSetCost  SetCostFunc      // default len(raw)
	CleanupInterval time.Duration    // 0 => 1h when GenRetention is set
	GenRetention    time.Duration    // 0 => generations are never pruned
	Debug           bool             // surface recoverable errors
	Disabled        bool             // render every time, never touch the store
}

func New(opts Options) (Cache, error) {
	return newCache(opts)
}
