package fragcache

// Miss reasons passed to Hooks.Miss.
const (
	MissAbsent         = "absent"
	MissRegenerate     = "regenerate"
	MissCorrupt        = "corrupt"
	MissInternalVer    = "internal_version"
	MissContentVersion = "content_version"
	MissDecode         = "decode"
	MissStoreError     = "store_error"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on the render path.
type Hooks interface {
	// A valid entry was served from the backend.
	Hit(key string)

	// The fragment is rendered fresh. reason is one of the Miss* constants.
	Miss(key, reason string)

	// A backend call failed. op ∈ {"get", "set", "del"}
	StoreError(key, op string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(key string)

	// The fragment body or a live region failed to render.
	RenderError(key string, err error)

	// n live regions were re-rendered on top of cached or fresh content.
	LiveRendered(key string, n int)

	// GenStore errors. op ∈ {"snapshot", "bump"}
	GenError(op, scope string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string)                       {}
func (NopHooks) Miss(string, string)              {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) ProviderSetRejected(string)       {}
func (NopHooks) RenderError(string, error)        {}
func (NopHooks) LiveRendered(string, int)         {}
func (NopHooks) GenError(string, string, error)   {}
