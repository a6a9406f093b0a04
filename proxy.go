package gpuproxy

import (
	"fmt"
	"sync"
)

// Proxy is a placeholder for a GPU texture or render target that may not
// exist yet. Proxies are created by a Provider; the backing Resource is
// resolved by Instantiate, by a lazy callback, or was supplied up front
// for wrapped proxies.
//
// Like its Provider, a Proxy is single-owner: one goroutine drives it at
// a time.
type Proxy struct {
	provider *Provider

	desc     SurfaceDesc
	fit      BackingFit
	budgeted bool

	key UniqueKey

	lazy        LazyCallback
	lazyMode    LazyMode
	lazyCreated bool
	fullyLazy   bool
	texels      []TexelLevel

	backing  Resource
	released bool
}

// Width returns the logical width, or LazySize when it is still deferred.
func (p *Proxy) Width() int { return p.desc.Width }

// Height returns the logical height, or LazySize when it is still
// deferred.
func (p *Proxy) Height() int { return p.desc.Height }

// Desc returns a copy of the surface description. On fully-lazy proxies
// the dimensions read LazySize until instantiation resolves them.
func (p *Proxy) Desc() SurfaceDesc { return p.desc }

// Fit returns the proxy's backing fit.
func (p *Proxy) Fit() BackingFit { return p.fit }

// Budgeted reports whether the backing counts against the allocator's
// cache budget.
func (p *Proxy) Budgeted() bool { return p.budgeted }

// UniqueKey returns the key assigned to the proxy, or the zero key.
func (p *Proxy) UniqueKey() UniqueKey { return p.key }

// IsLazy reports whether an instantiation callback is still pending.
func (p *Proxy) IsLazy() bool { return p.lazy != nil }

// IsFullyLazy reports whether the proxy was created with deferred
// dimensions. It keeps reporting true after instantiation resolves them.
func (p *Proxy) IsFullyLazy() bool { return p.fullyLazy }

// IsInstantiated reports whether the proxy has a backing resource.
func (p *Proxy) IsInstantiated() bool { return p.backing != nil }

// IsReleased reports whether Release has run.
func (p *Proxy) IsReleased() bool { return p.released }

// Backing returns the resolved backing resource, or nil.
func (p *Proxy) Backing() Resource { return p.backing }

// IsFunctionallyExact reports whether the backing dimensions are
// guaranteed to equal the logical dimensions, either because the fit is
// exact or because the approximate grid lands on them anyway.
func (p *Proxy) IsFunctionallyExact() bool {
	return FunctionallyExact(p.fit, p.desc.Width, p.desc.Height)
}

// Instantiate resolves the proxy to a backing resource through alloc.
// It is idempotent: an already-instantiated proxy returns nil without
// touching the allocator.
//
// alloc may be nil (abandoned or recording-only provider). A pending lazy
// callback is still invoked so it can release captured state; the attempt
// then reports ErrNoAllocator.
func (p *Proxy) Instantiate(alloc Allocator) error {
	if p.released {
		return ErrProxyReleased
	}
	if p.backing != nil {
		return nil
	}
	if p.lazy != nil {
		return p.instantiateLazy(alloc)
	}
	if p.lazyCreated {
		// A spent single-use callback cannot be replayed.
		return ErrInstantiationFailed
	}
	if alloc == nil {
		return ErrNoAllocator
	}
	res, err := alloc.CreateResource(p.desc, p.fit, p.budgeted, p.texels)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInstantiationFailed, err)
	}
	if res == nil {
		return ErrInstantiationFailed
	}
	p.texels = nil
	p.attach(res)
	return nil
}

// instantiateLazy runs the pending callback. Under LazyOnce the callback
// is cleared before it runs, so it can never run twice; under LazyMulti
// it survives failures and is cleared on success.
func (p *Proxy) instantiateLazy(alloc Allocator) error {
	cb := p.lazy
	if p.lazyMode == LazyOnce {
		p.lazy = nil
	}
	res, err := cb(alloc)
	if res == nil {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInstantiationFailed, err)
		}
		if alloc == nil {
			return ErrNoAllocator
		}
		return ErrInstantiationFailed
	}
	p.lazy = nil
	if p.fullyLazy {
		p.desc.Width = res.Width()
		p.desc.Height = res.Height()
	}
	p.attach(res)
	return nil
}

// attach wires res as the backing and stamps the proxy's key on it so
// allocator-level lookups find it after the proxy is gone.
func (p *Proxy) attach(res Resource) {
	p.backing = res
	if p.key.IsValid() {
		res.SetUniqueKey(p.key)
	}
	Logger().Debug("gpuproxy: proxy instantiated",
		"width", p.desc.Width, "height", p.desc.Height, "key", p.key)
}

// Release severs the proxy from its provider and backing. A key held by
// the proxy is removed from the provider's index even on an abandoned
// provider, so the index never holds dead proxies; the backing keeps its
// key for allocator-level reuse. A wrapped proxy fires its release
// callback here, and an adopted backing is destroyed. Idempotent.
func (p *Proxy) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.key.IsValid() && p.provider != nil {
		p.provider.processInvalidUniqueKey(p.key, p, false)
	}
	if p.backing != nil {
		p.backing.Release()
		p.backing = nil
	}
	p.lazy = nil
	p.texels = nil
}

// wrappedResource decorates an externally created Resource with the wrap
// contract: the release callback fires exactly once, and only an adopted
// backing forwards Release to the underlying resource.
type wrappedResource struct {
	Resource
	ownership Ownership
	release   ReleaseFunc
	once      sync.Once
}

func (w *wrappedResource) Release() {
	w.once.Do(func() {
		if w.release != nil {
			w.release()
		}
		if w.ownership == Adopted {
			w.Resource.Release()
		}
	})
}
