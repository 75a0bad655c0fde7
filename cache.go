package fragcache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	c "github.com/unkn0wn-root/fragcache/codec"
	gen "github.com/unkn0wn-root/fragcache/genstore"
	"github.com/unkn0wn-root/fragcache/internal/wire"
	pr "github.com/unkn0wn-root/fragcache/provider"
)

var spacesRe = regexp.MustCompile(`\s\s+`)

type cache struct {
	settings       Settings
	backends       map[string]pr.Provider
	codec          c.Codec[string]
	keys           KeyBuilder
	reconciler     *Reconciler
	log            Logger
	hooks          Hooks
	gen            gen.GenStore
	ownsGen        bool
	computeSetCost SetCostFunc
	debug          bool
	enabled        bool
}

func newCache(opts Options) (*cache, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("fragcache: secret is required")
	}
	if len(opts.Backends) == 0 {
		return nil, fmt.Errorf("fragcache: at least one backend is required")
	}

	st := opts.Settings
	st.CacheBackend = coalesce(st.CacheBackend, defaultBackend)
	if _, ok := opts.Backends[st.CacheBackend]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoBackend, st.CacheBackend)
	}
	if err := wire.CheckTag(st.InternalVersionSuffix); err != nil {
		return nil, fmt.Errorf("fragcache: internal version: %w", err)
	}

	syntax := opts.Syntax.withDefaults()
	ch := &cache{
		settings:   st,
		backends:   opts.Backends,
		reconciler: NewReconciler(NewMarkers(opts.Secret, syntax), syntax, opts.Libraries),
		debug:      opts.Debug,
		enabled:    !opts.Disabled,
	}

	// defaults
	ch.log = coalesce[Logger](opts.Logger, NopLogger{})
	ch.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	ch.keys = coalesce[KeyBuilder](opts.KeyBuilder, DefaultKeyBuilder{})

	switch {
	case opts.Codec != nil:
		ch.codec = opts.Codec
	case st.Compress:
		ch.codec = c.Compressed[string]{Inner: c.Msgpack[string]{}, Compressor: c.Zlib{}}
	default:
		ch.codec = c.String{}
	}

	if opts.ComputeSetCost != nil {
		ch.computeSetCost = opts.ComputeSetCost
	} else {
		ch.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	if opts.GenStore != nil {
		ch.gen = opts.GenStore
		ch.ownsGen = opts.CloseGenStore
	} else {
		ch.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultCleanupInterval),
			opts.GenRetention,
		)
		ch.ownsGen = true
	}

	return ch, nil
}

func (ch *cache) Enabled() bool            { return ch.enabled }
func (ch *cache) Settings() Settings       { return ch.settings }
func (ch *cache) Reconciler() *Reconciler { return ch.reconciler }

func (ch *cache) Close(ctx context.Context) error {
	var errs []error
	if ch.ownsGen {
		errs = append(errs, ch.gen.Close(ctx))
	}
	for _, p := range ch.backends {
		errs = append(errs, p.Close(ctx))
	}
	return errors.Join(errs...)
}

func (ch *cache) Key(req Request) (string, error) {
	return ch.keys.Key(req.Nodename, req.FragmentName, req.VaryOn, ch.settings.IncludePK)
}

// attempt carries what one render needs to read and write its entry.
type attempt struct {
	key       string
	req       Request
	backend   string
	store     pr.Provider
	storeErr  error
	internal  string
	genErr    error
	noPersist bool
}

func (ch *cache) Render(ctx context.Context, req Request, r Renderer) (string, error) {
	key, err := ch.Key(req)
	if err != nil {
		return "", err
	}

	var content string
	if ch.enabled {
		content, err = ch.load(ctx, key, req, r)
	} else {
		content, err = ch.renderBody(ctx, key, r)
	}
	if err != nil {
		return ch.fail(key, err)
	}
	if req.Partial || !ch.reconciler.HasLive(content) {
		return content, nil
	}

	out, n, err := ch.reconciler.Reconcile(ctx, content, r)
	if err != nil {
		if !errors.Is(err, ErrUnbalancedMarkers) || req.Regenerate || !ch.enabled {
			return ch.fail(key, err)
		}
		ch.log.Warn("cached fragment has unbalanced markers; regenerating", Fields{"key": key})
		ch.hooks.Miss(key, MissCorrupt)
		req.Regenerate = true
		return ch.Render(ctx, req, r)
	}
	ch.hooks.LiveRendered(key, n)
	return out, nil
}

// fail applies the error policy: fatal errors always surface, everything
// else only in debug mode.
func (ch *cache) fail(key string, err error) (string, error) {
	if IsFatal(err) || ch.debug {
		return "", err
	}
	ch.log.Error("fragment render failed", Fields{"key": key, "err": err})
	return "", nil
}

func (ch *cache) load(ctx context.Context, key string, req Request, r Renderer) (string, error) {
	a := ch.newAttempt(ctx, key, req)
	if a.genErr != nil && ch.debug {
		return "", fmt.Errorf("fragcache: generation snapshot for %q: %w", key, a.genErr)
	}

	if req.Regenerate {
		ch.hooks.Miss(key, MissRegenerate)
	} else {
		content, ok, err := ch.fetch(ctx, a)
		if err != nil && ch.debug {
			return "", err
		}
		if ok {
			return content, nil
		}
	}
	return ch.create(ctx, a, r)
}

func (ch *cache) newAttempt(ctx context.Context, key string, req Request) *attempt {
	a := &attempt{key: key, req: req, backend: coalesce(req.Backend, ch.settings.CacheBackend)}
	if p, ok := ch.backends[a.backend]; ok {
		a.store = p
	} else {
		a.storeErr = &StoreError{Op: "get", Key: key, Backend: a.backend, Err: ErrNoBackend}
	}
	internal, err := ch.internalVersion(ctx, req.Nodename, req.FragmentName)
	if err != nil {
		a.genErr = err
		a.noPersist = true
	}
	a.internal = internal
	return a
}

// internalVersion is "1", "|<suffix>" when configured and "|g<n>" once the
// fragment was invalidated n times.
func (ch *cache) internalVersion(ctx context.Context, nodename, fragment string) (string, error) {
	v := internalVersionBase
	if ch.settings.InternalVersionSuffix != "" {
		v += "|" + ch.settings.InternalVersionSuffix
	}
	scope := genScope(nodename, fragment)
	g, err := ch.gen.Snapshot(ctx, scope)
	if err != nil {
		ch.log.Warn("gen snapshot error", Fields{"scope": scope, "err": err})
		ch.hooks.GenError("snapshot", scope, err)
		return v, err
	}
	if g > 0 {
		v += "|g" + strconv.FormatUint(g, 10)
	}
	return v, nil
}

func genScope(nodename, fragment string) string {
	return defaultKeyPrefix + "." + nodename + "." + fragment
}

// fetch returns the decoded content of a current entry. Version mismatches
// are plain misses; store, envelope and codec failures are returned as well
// as reported.
func (ch *cache) fetch(ctx context.Context, a *attempt) (string, bool, error) {
	if a.noPersist {
		ch.hooks.Miss(a.key, MissStoreError)
		return "", false, nil
	}
	if a.store == nil {
		ch.storeFailed(a.key, "get", a.storeErr)
		ch.hooks.Miss(a.key, MissStoreError)
		return "", false, a.storeErr
	}

	raw, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		serr := &StoreError{Op: "get", Key: a.key, Backend: a.backend, Err: err}
		ch.storeFailed(a.key, "get", serr)
		ch.hooks.Miss(a.key, MissStoreError)
		return "", false, serr
	}
	if !ok || len(raw) == 0 {
		ch.log.Debug("fragment miss", Fields{"key": a.key})
		ch.hooks.Miss(a.key, MissAbsent)
		return "", false, nil
	}

	env, err := wire.Unwrap(raw, ch.settings.Versioning)
	if err != nil {
		ch.log.Debug("corrupt fragment entry", Fields{"key": a.key, "err": err})
		ch.hooks.Miss(a.key, MissCorrupt)
		return "", false, err
	}
	if env.Internal != a.internal {
		ch.log.Debug("internal version mismatch", Fields{"key": a.key, "stored": env.Internal, "want": a.internal})
		ch.hooks.Miss(a.key, MissInternalVer)
		return "", false, nil
	}
	if ch.settings.Versioning && env.Version != derefVersion(a.req.Version) {
		ch.log.Debug("content version mismatch", Fields{"key": a.key, "stored": env.Version})
		ch.hooks.Miss(a.key, MissContentVersion)
		return "", false, nil
	}
	if len(env.Payload) == 0 {
		ch.hooks.Miss(a.key, MissAbsent)
		return "", false, nil
	}

	content, err := ch.codec.Decode(env.Payload)
	if err != nil {
		ch.log.Debug("fragment decode failed", Fields{"key": a.key, "err": err})
		ch.hooks.Miss(a.key, MissDecode)
		return "", false, fmt.Errorf("fragcache: decode %q: %w", a.key, err)
	}
	ch.log.Debug("fragment hit", Fields{"key": a.key})
	ch.hooks.Hit(a.key)
	return content, true, nil
}

func (ch *cache) create(ctx context.Context, a *attempt, r Renderer) (string, error) {
	body, err := ch.renderBody(ctx, a.key, r)
	if err != nil {
		return "", err
	}
	if err := ch.persist(ctx, a, body); err != nil && ch.debug {
		return "", err
	}
	return body, nil
}

func (ch *cache) renderBody(ctx context.Context, key string, r Renderer) (string, error) {
	body, err := r.RenderBody(ctx)
	if err != nil {
		ch.hooks.RenderError(key, err)
		return "", err
	}
	if ch.settings.CompressSpaces {
		body = spacesRe.ReplaceAllString(body, " ")
	}
	return body, nil
}

func (ch *cache) persist(ctx context.Context, a *attempt, body string) error {
	exp := a.req.ExpireSeconds
	if exp != nil && *exp == 0 {
		return nil
	}
	if a.noPersist {
		return nil
	}
	if a.store == nil {
		serr := &StoreError{Op: "set", Key: a.key, Backend: a.backend, Err: ErrNoBackend}
		ch.storeFailed(a.key, "set", serr)
		return serr
	}

	payload, err := ch.codec.Encode(body)
	if err != nil {
		ch.log.Error("fragment encode failed", Fields{"key": a.key, "err": err})
		return fmt.Errorf("fragcache: encode %q: %w", a.key, err)
	}
	raw, err := wire.Wrap(payload, a.internal, derefVersion(a.req.Version), ch.settings.Versioning)
	if err != nil {
		ch.log.Warn("fragment not stored", Fields{"key": a.key, "err": err})
		return err
	}

	var ttl time.Duration
	if exp != nil {
		ttl = time.Duration(*exp) * time.Second
	}
	ok, err := a.store.Set(ctx, a.key, raw, ch.computeSetCost(a.key, raw), ttl)
	if err != nil {
		serr := &StoreError{Op: "set", Key: a.key, Backend: a.backend, Err: err}
		ch.storeFailed(a.key, "set", serr)
		return serr
	}
	if !ok {
		ch.log.Debug("fragment set rejected by provider (pressure)", Fields{"key": a.key})
		ch.hooks.ProviderSetRejected(a.key)
	}
	return nil
}

func (ch *cache) storeFailed(key, op string, err error) {
	ch.log.Warn("cache backend error", Fields{"key": key, "op": op, "err": err})
	ch.hooks.StoreError(key, op, err)
}

func (ch *cache) Peek(ctx context.Context, req Request) (Entry, bool, error) {
	key, err := ch.Key(req)
	if err != nil {
		return Entry{}, false, err
	}
	a := ch.newAttempt(ctx, key, req)
	e := Entry{Key: key, Backend: a.backend}
	if a.store == nil {
		return e, false, a.storeErr
	}
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return e, false, &StoreError{Op: "get", Key: key, Backend: a.backend, Err: err}
	}
	if !ok {
		return e, false, nil
	}
	env, err := wire.Unwrap(raw, ch.settings.Versioning)
	if err != nil {
		return e, true, err
	}
	e.InternalVersion = env.Internal
	e.ContentVersion = env.Version
	e.Current = env.Internal == a.internal
	if ch.settings.Versioning && env.Version != derefVersion(req.Version) {
		e.Current = false
	}
	e.Content, err = ch.codec.Decode(env.Payload)
	if err != nil {
		return e, true, fmt.Errorf("fragcache: decode %q: %w", key, err)
	}
	return e, true, nil
}

func (ch *cache) Invalidate(ctx context.Context, req Request) error {
	key, err := ch.Key(req)
	if err != nil {
		return err
	}
	backend := coalesce(req.Backend, ch.settings.CacheBackend)
	p, ok := ch.backends[backend]
	if !ok {
		return &StoreError{Op: "del", Key: key, Backend: backend, Err: ErrNoBackend}
	}
	if err := p.Del(ctx, key); err != nil {
		serr := &StoreError{Op: "del", Key: key, Backend: backend, Err: err}
		ch.storeFailed(key, "del", serr)
		return serr
	}
	ch.log.Debug("invalidated fragment entry", Fields{"key": key})
	return nil
}

func (ch *cache) InvalidateFragment(ctx context.Context, nodename, fragment string) error {
	scope := genScope(nodename, fragment)
	g, err := ch.gen.Bump(ctx, scope)
	if err != nil {
		ch.log.Error("gen bump error", Fields{"scope": scope, "err": err})
		ch.hooks.GenError("bump", scope, err)
		return &InvalidateError{Scope: scope, BumpErr: err}
	}
	ch.log.Debug("invalidated fragment (bumped gen)", Fields{"scope": scope, "gen": g})
	return nil
}

func derefVersion(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
