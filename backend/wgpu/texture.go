package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuproxy"
)

// Texture is a live HAL texture implementing gpuproxy.Resource. Instances
// are created by Allocator.CreateResource and reference counted: the
// creating holder starts with one reference, the cache takes another while
// the texture is keyed, and the last Release destroys the HAL objects.
//
// Texture is safe for concurrent use; key updates and the final destroy
// are synchronized internally.
type Texture struct {
	alloc *Allocator

	tex  hal.Texture
	view hal.TextureView

	width     int
	height    int
	format    gputypes.TextureFormat
	mipLevels int
	sizeBytes uint64
	budgeted  bool
	label     string

	mu  sync.Mutex
	key gpuproxy.UniqueKey

	refs      atomic.Int32
	destroyed atomic.Bool
}

// Width returns the backing width in texels.
func (t *Texture) Width() int { return t.width }

// Height returns the backing height in texels.
func (t *Texture) Height() int { return t.height }

// Format returns the texel format the texture was allocated with.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// MipLevels returns the number of allocated mip levels.
func (t *Texture) MipLevels() int { return t.mipLevels }

// SizeBytes returns the texture's GPU memory footprint.
func (t *Texture) SizeBytes() uint64 { return t.sizeBytes }

// Budgeted reports whether the texture counts against the cache budget.
func (t *Texture) Budgeted() bool { return t.budgeted }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// HalTexture returns the underlying HAL texture for render passes and
// copies built outside this package.
func (t *Texture) HalTexture() hal.Texture { return t.tex }

// HalView returns the texture's default view.
func (t *Texture) HalView() hal.TextureView { return t.view }

// UniqueKey returns the key stamped on the texture, or the zero key.
func (t *Texture) UniqueKey() gpuproxy.UniqueKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.key
}

// SetUniqueKey stamps key on the texture and registers it with the
// allocator's cache, making it visible to FindByUniqueKey. Stamping a new
// key replaces the old cache entry.
func (t *Texture) SetUniqueKey(key gpuproxy.UniqueKey) {
	t.mu.Lock()
	old := t.key
	t.key = key
	t.mu.Unlock()
	if t.alloc == nil || t.alloc.cache == nil {
		return
	}
	if old.IsValid() && old != key {
		t.alloc.cache.drop(old, t)
	}
	if key.IsValid() && key != old {
		t.alloc.cache.insert(key, t)
	}
}

// RemoveUniqueKey clears the stamped key and drops the cache entry, so the
// texture can no longer be found through the allocator level.
func (t *Texture) RemoveUniqueKey() {
	t.mu.Lock()
	old := t.key
	t.key = gpuproxy.UniqueKey{}
	t.mu.Unlock()
	if old.IsValid() && t.alloc != nil && t.alloc.cache != nil {
		t.alloc.cache.drop(old, t)
	}
}

// clearKey resets the key field without touching the cache. The cache
// calls this while evicting, when its own entry is already gone.
func (t *Texture) clearKey() {
	t.mu.Lock()
	t.key = gpuproxy.UniqueKey{}
	t.mu.Unlock()
}

// ref takes an additional reference on behalf of a new holder.
func (t *Texture) ref() { t.refs.Add(1) }

// Release drops the holder's reference. The last reference destroys the
// HAL texture and view and deducts the memory from the allocator's
// accounting. Releasing below zero panics: it means two holders believed
// they owned the same reference.
func (t *Texture) Release() {
	n := t.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("wgpu: texture released more times than referenced")
	}
	t.destroy()
}

func (t *Texture) destroy() {
	if t.destroyed.Swap(true) {
		return
	}
	t.RemoveUniqueKey()
	if t.alloc != nil {
		t.alloc.destroyTexture(t)
	}
}

// String returns a debug description.
func (t *Texture) String() string {
	status := "live"
	if t.destroyed.Load() {
		status = "destroyed"
	}
	return fmt.Sprintf("Texture[%s %dx%d %v mips=%d %d bytes %s]",
		t.label, t.width, t.height, t.format, t.mipLevels, t.sizeBytes, status)
}
