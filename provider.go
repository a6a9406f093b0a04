package gpuproxy

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuproxy/internal/singleowner"
)

// backing pairs the allocator with its resource cache so Abandon clears
// both as one transition; a half-abandoned provider cannot exist.
type backing struct {
	alloc Allocator
	cache ResourceCache
}

// Provider creates surface proxies and indexes the uniquely keyed ones.
// The index holds proxies non-owningly: a released proxy removes itself,
// so a lookup never returns a dead proxy.
//
// A Provider is single-owner: one goroutine drives it at a time. Building
// with the singleowner tag turns violations into panics. Allocator and
// ResourceCache implementations synchronize internally and may be shared
// across providers.
type Provider struct {
	b         *backing
	caps      *Caps
	keyed     map[UniqueKey]*Proxy
	abandoned bool
	recording bool
	owner     singleowner.Guard
}

// New creates a provider bound to a live allocator and its resource
// cache. caps must describe the device alloc allocates on; nil caps fall
// back to DefaultCaps.
func New(alloc Allocator, cache ResourceCache, caps *Caps) *Provider {
	if caps == nil {
		caps = DefaultCaps()
	}
	return &Provider{
		b:     &backing{alloc: alloc, cache: cache},
		caps:  caps,
		keyed: make(map[UniqueKey]*Proxy),
	}
}

// NewRecording creates a provider with no backing device. Proxies can be
// created and keyed but not instantiated, which lets recording code run
// ahead of (or entirely without) a live context. nil caps fall back to
// DefaultCaps.
func NewRecording(caps *Caps) *Provider {
	if caps == nil {
		caps = DefaultCaps()
	}
	return &Provider{
		caps:      caps,
		keyed:     make(map[UniqueKey]*Proxy),
		recording: true,
	}
}

// Caps returns the device capabilities the provider validates against.
func (pp *Provider) Caps() *Caps { return pp.caps }

// IsAbandoned reports whether Abandon has run.
func (pp *Provider) IsAbandoned() bool { return pp.abandoned }

// IsRecordingOnly reports whether the provider was created without a
// backing device. Unlike IsAbandoned it describes the initial condition;
// it stays false on a provider that lost its device to Abandon later.
func (pp *Provider) IsRecordingOnly() bool { return pp.recording }

// Allocator returns the provider's allocator, or nil once abandoned or
// when recording-only.
func (pp *Provider) Allocator() Allocator {
	if pp.b == nil {
		return nil
	}
	return pp.b.alloc
}

// resourceCache returns the allocator-level cache, or nil once abandoned
// or when recording-only.
func (pp *Provider) resourceCache() ResourceCache {
	if pp.b == nil {
		return nil
	}
	return pp.b.cache
}

// Abandon severs the provider from its allocator and resource cache in a
// single transition and fails all further factory and lookup calls.
// Keyed proxies stay registered so their Release can still unregister
// them. Idempotent.
func (pp *Provider) Abandon() {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return
	}
	pp.abandoned = true
	pp.b = nil
	Logger().Info("gpuproxy: provider abandoned", "keyedProxies", len(pp.keyed))
}

// CreateProxy reserves a blank surface with known dimensions; the backing
// resource is allocated at first instantiation.
func (pp *Provider) CreateProxy(desc SurfaceDesc, fit BackingFit, budgeted bool) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return nil, ErrAbandoned
	}
	if desc.IsFullyLazy() {
		return nil, fmt.Errorf("%w: dimensions must be known (use CreateFullyLazyProxy)", ErrInvalidSize)
	}
	if err := desc.Validate(pp.caps); err != nil {
		return nil, err
	}
	return &Proxy{provider: pp, desc: desc, fit: fit, budgeted: budgeted}, nil
}

// CreateTextureProxy builds a data-bearing proxy. The texel levels ride
// on the proxy until the allocator consumes them at first instantiation;
// exactly one level is expected, or the full chain down to 1x1 when
// desc.MipMapped is set. Data-bearing proxies are always exact-fit.
//
// Identical pixel data never dedups implicitly: two calls with the same
// bytes produce two independent proxies unless the caller keys them.
func (pp *Provider) CreateTextureProxy(desc SurfaceDesc, budgeted bool, levels ...TexelLevel) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return nil, ErrAbandoned
	}
	if desc.IsFullyLazy() {
		return nil, fmt.Errorf("%w: data-bearing proxies need known dimensions", ErrInvalidSize)
	}
	if err := desc.Validate(pp.caps); err != nil {
		return nil, err
	}
	want := 1
	if desc.MipMapped {
		want = MipLevelCount(desc.Width, desc.Height)
	}
	if len(levels) != want {
		return nil, fmt.Errorf("%w: got %d levels, want %d", ErrLevelCount, len(levels), want)
	}
	if levels[0].Width != desc.Width || levels[0].Height != desc.Height {
		return nil, fmt.Errorf("%w: base level is %dx%d, surface is %dx%d",
			ErrLevelCount, levels[0].Width, levels[0].Height, desc.Width, desc.Height)
	}
	return &Proxy{provider: pp, desc: desc, fit: FitExact, budgeted: budgeted, texels: levels}, nil
}

// CreateLazyProxy defers allocation behind cb; the dimensions are known
// up front. mode selects whether a failed callback may be retried.
func (pp *Provider) CreateLazyProxy(cb LazyCallback, desc SurfaceDesc, fit BackingFit, budgeted bool, mode LazyMode) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return nil, ErrAbandoned
	}
	if cb == nil {
		return nil, ErrNilCallback
	}
	if desc.IsFullyLazy() {
		return nil, fmt.Errorf("%w: dimensions must be known (use CreateFullyLazyProxy)", ErrInvalidSize)
	}
	if err := desc.Validate(pp.caps); err != nil {
		return nil, err
	}
	return &Proxy{
		provider:    pp,
		desc:        desc,
		fit:         fit,
		budgeted:    budgeted,
		lazy:        cb,
		lazyMode:    mode,
		lazyCreated: true,
	}, nil
}

// CreateFullyLazyProxy defers both allocation and dimensions: the proxy
// reports LazySize for width and height until cb resolves it. Fully-lazy
// proxies are always approximate-fit, budgeted, and single-use, and they
// cannot be mipmapped because the chain length is unknown.
func (pp *Provider) CreateFullyLazyProxy(cb LazyCallback, format gputypes.TextureFormat, renderable bool, sampleCount int) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return nil, ErrAbandoned
	}
	if cb == nil {
		return nil, ErrNilCallback
	}
	desc := SurfaceDesc{
		Width:       LazySize,
		Height:      LazySize,
		Format:      format,
		Renderable:  renderable,
		SampleCount: sampleCount,
	}
	if err := desc.Validate(pp.caps); err != nil {
		return nil, err
	}
	return &Proxy{
		provider:    pp,
		desc:        desc,
		fit:         FitApprox,
		budgeted:    true,
		lazy:        cb,
		lazyMode:    LazyOnce,
		lazyCreated: true,
		fullyLazy:   true,
	}, nil
}

// CreateInstantiatedProxy creates a blank proxy and resolves it
// immediately through the provider's own allocator.
func (pp *Provider) CreateInstantiatedProxy(desc SurfaceDesc, fit BackingFit, budgeted bool) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	p, err := pp.CreateProxy(desc, fit, budgeted)
	if err != nil {
		return nil, err
	}
	alloc := pp.Allocator()
	if alloc == nil {
		return nil, ErrNoAllocator
	}
	if err := p.Instantiate(alloc); err != nil {
		return nil, err
	}
	return p, nil
}

// WrapBackendTexture wraps an externally created resource in a proxy.
// ownership states who destroys the resource when the proxy is released;
// release, when non-nil, fires exactly once at teardown. A failed wrap
// fires it immediately so external bookkeeping never leaks.
func (pp *Provider) WrapBackendTexture(res Resource, ownership Ownership, release ReleaseFunc) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		if release != nil {
			release()
		}
		return nil, ErrAbandoned
	}
	if res == nil {
		if release != nil {
			release()
		}
		return nil, ErrNilResource
	}
	w := &wrappedResource{Resource: res, ownership: ownership, release: release}
	desc := SurfaceDesc{
		Width:  res.Width(),
		Height: res.Height(),
		Format: res.Format(),
	}
	return &Proxy{provider: pp, desc: desc, fit: FitExact, backing: w}, nil
}

// WrapRenderableBackendTexture is WrapBackendTexture for resources that
// will be drawn into.
func (pp *Provider) WrapRenderableBackendTexture(res Resource, sampleCount int, ownership Ownership, release ReleaseFunc) (*Proxy, error) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		if release != nil {
			release()
		}
		return nil, ErrAbandoned
	}
	if res == nil {
		if release != nil {
			release()
		}
		return nil, ErrNilResource
	}
	if sampleCount < 1 {
		if release != nil {
			release()
		}
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSampleCount, sampleCount)
	}
	w := &wrappedResource{Resource: res, ownership: ownership, release: release}
	desc := SurfaceDesc{
		Width:       res.Width(),
		Height:      res.Height(),
		Format:      res.Format(),
		Renderable:  true,
		SampleCount: sampleCount,
	}
	return &Proxy{provider: pp, desc: desc, fit: FitExact, backing: w}, nil
}

// AssignUniqueKey associates key with p in the provider's index so later
// FindProxyByUniqueKey calls return p. An instantiated backing is stamped
// with the key immediately; a deferred one is stamped at instantiation.
//
// Assigning the same (key, proxy) pair again is a no-op. Assigning a key
// that is mapped to a different live proxy fails with ErrKeyInUse, and
// assigning a second key to an already-keyed proxy fails with
// ErrProxyAlreadyKeyed; neither failure disturbs existing mappings.
func (pp *Provider) AssignUniqueKey(key UniqueKey, p *Proxy) error {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return ErrAbandoned
	}
	if !key.IsValid() {
		return ErrInvalidKey
	}
	if p == nil {
		return ErrNilProxy
	}
	if p.released {
		return ErrProxyReleased
	}
	if p.key.IsValid() {
		if p.key == key {
			return nil
		}
		return ErrProxyAlreadyKeyed
	}
	if cur, ok := pp.keyed[key]; ok && cur != p {
		return ErrKeyInUse
	}
	pp.keyed[key] = p
	p.key = key
	if p.backing != nil {
		p.backing.SetUniqueKey(key)
	}
	Logger().Debug("gpuproxy: unique key assigned", "key", key)
	return nil
}

// AdoptUniqueKeyFromBacking copies the key already stamped on p's backing
// resource onto p and indexes it. The resource is the authority: this is
// how a proxy wrapped around a cached resource rejoins the index.
func (pp *Provider) AdoptUniqueKeyFromBacking(p *Proxy) error {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return ErrAbandoned
	}
	if p == nil {
		return ErrNilProxy
	}
	if p.released {
		return ErrProxyReleased
	}
	if p.backing == nil {
		return ErrNotInstantiated
	}
	key := p.backing.UniqueKey()
	if !key.IsValid() {
		return ErrBackingUnkeyed
	}
	if p.key.IsValid() {
		if p.key == key {
			return nil
		}
		return ErrProxyAlreadyKeyed
	}
	if cur, ok := pp.keyed[key]; ok && cur != p {
		return ErrKeyInUse
	}
	pp.keyed[key] = p
	p.key = key
	Logger().Debug("gpuproxy: unique key adopted from backing", "key", key)
	return nil
}

// FindProxyByUniqueKey returns the live proxy mapped to key, or nil.
// An abandoned provider always misses.
func (pp *Provider) FindProxyByUniqueKey(key UniqueKey) *Proxy {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned || !key.IsValid() {
		return nil
	}
	return pp.keyed[key]
}

// FindOrCreateProxyByUniqueKey returns the live proxy mapped to key. On
// an index miss it consults the allocator-level resource cache: a cached
// resource stamped with key is wrapped in a new already-instantiated
// proxy, registered under key, and returned. Returns nil when neither
// level knows the key.
func (pp *Provider) FindOrCreateProxyByUniqueKey(key UniqueKey) *Proxy {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned || !key.IsValid() {
		return nil
	}
	if p, ok := pp.keyed[key]; ok {
		return p
	}
	cache := pp.resourceCache()
	if cache == nil {
		return nil
	}
	res := cache.FindByUniqueKey(key)
	if res == nil {
		return nil
	}
	p := &Proxy{
		provider: pp,
		desc: SurfaceDesc{
			Width:  res.Width(),
			Height: res.Height(),
			Format: res.Format(),
		},
		fit:      FitExact,
		budgeted: true,
		backing:  res,
		key:      key,
	}
	pp.keyed[key] = p
	Logger().Debug("gpuproxy: proxy recreated from resource cache", "key", key)
	return p
}

// RemoveUniqueKey deletes the index entry for key, so find calls miss
// while the proxy itself lives on. p, when non-nil, must be the proxy
// currently holding key.
//
// invalidateBacking controls the allocator-level key: when false, an
// instantiated backing keeps its key so the resource stays reachable in
// the allocator's cache for recycling; when true the key is stripped
// there too and both levels forget it as a unit.
func (pp *Provider) RemoveUniqueKey(key UniqueKey, p *Proxy, invalidateBacking bool) error {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned {
		return ErrAbandoned
	}
	if !key.IsValid() {
		return ErrInvalidKey
	}
	cur, ok := pp.keyed[key]
	if !ok {
		return nil
	}
	if p != nil && cur != p {
		return ErrKeyMismatch
	}
	pp.processInvalidUniqueKey(key, cur, invalidateBacking)
	return nil
}

// ProcessInvalidUniqueKey handles an eviction notice from the allocator
// level: the index entry for key, if any, is dropped and the proxy's key
// field cleared. Unknown keys are a safe no-op, since the notice may
// arrive after the proxy was released.
func (pp *Provider) ProcessInvalidUniqueKey(key UniqueKey) {
	pp.owner.Acquire()
	defer pp.owner.Release()
	if pp.abandoned || !key.IsValid() {
		return
	}
	p, ok := pp.keyed[key]
	if !ok {
		return
	}
	pp.processInvalidUniqueKey(key, p, false)
}

// processInvalidUniqueKey is the sole removal path: it drops the index
// entry and clears the proxy's key field together. It stays callable on
// an abandoned provider because proxy Release must always unregister.
func (pp *Provider) processInvalidUniqueKey(key UniqueKey, p *Proxy, invalidateBacking bool) {
	delete(pp.keyed, key)
	if p != nil {
		p.key = UniqueKey{}
		if invalidateBacking && p.backing != nil {
			p.backing.RemoveUniqueKey()
		}
	}
	Logger().Debug("gpuproxy: unique key removed",
		"key", key, "invalidateBacking", invalidateBacking)
}

// RemoveAllUniqueKeys strips every proxy's key and empties the index.
// Backing resources keep their keys.
func (pp *Provider) RemoveAllUniqueKeys() {
	pp.owner.Acquire()
	defer pp.owner.Release()
	for _, p := range pp.keyed {
		p.key = UniqueKey{}
	}
	clear(pp.keyed)
	Logger().Debug("gpuproxy: all unique keys removed")
}

// NumUniqueKeyProxies reports how many proxies are currently indexed.
// Intended for tests and diagnostics.
func (pp *Provider) NumUniqueKeyProxies() int {
	pp.owner.Acquire()
	defer pp.owner.Release()
	return len(pp.keyed)
}
