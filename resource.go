package gpuproxy

import "github.com/gogpu/gputypes"

// TexelLevel is one mip level of CPU pixel data attached to a
// data-bearing proxy. Pixels holds RowBytes*Height bytes; a RowBytes of
// zero means tightly packed rows.
type TexelLevel struct {
	// Pixels is the level's raw texel data.
	Pixels []byte

	// RowBytes is the byte stride between rows, or 0 for tight packing.
	RowBytes int

	// Width and Height are the level dimensions in texels.
	Width  int
	Height int
}

// Resource is a live backing texture or render target owned by the
// allocator layer. Proxies resolve to Resources at instantiation time;
// this package never creates Resources itself.
//
// Key methods are metadata updates: a key stamped with SetUniqueKey must
// become visible to ResourceCache.FindByUniqueKey, and RemoveUniqueKey
// must hide the resource from it again.
type Resource interface {
	// Width returns the actual backing width, which may exceed the
	// proxy's logical width under FitApprox.
	Width() int

	// Height returns the actual backing height.
	Height() int

	// Format returns the texel format the resource was allocated with.
	Format() gputypes.TextureFormat

	// UniqueKey returns the key stamped on the resource, or the zero key.
	UniqueKey() UniqueKey

	// SetUniqueKey stamps key on the resource for allocator-level reuse.
	SetUniqueKey(key UniqueKey)

	// RemoveUniqueKey clears any key stamped on the resource.
	RemoveUniqueKey()

	// Release drops the holder's reference. The allocator decides when
	// the underlying memory is actually destroyed.
	Release()
}

// Allocator produces backing resources on demand. It is the creation half
// of the provider's backing pair; implementations live in backend
// packages (see backend/wgpu) and must be safe for concurrent use.
type Allocator interface {
	// CreateResource allocates a backing resource for desc. Under
	// FitApprox the returned resource may be larger than desc's
	// dimensions. data, when non-empty, supplies the base level and any
	// mip levels to upload before the resource is handed out.
	CreateResource(desc SurfaceDesc, fit BackingFit, budgeted bool, data []TexelLevel) (Resource, error)
}

// ResourceCache is the lookup half of the provider's backing pair: an
// allocator-level index of instantiated resources by unique key. A found
// resource is returned already referenced on behalf of the caller.
type ResourceCache interface {
	// FindByUniqueKey returns the cached resource stamped with key, or
	// nil when no such resource exists.
	FindByUniqueKey(key UniqueKey) Resource
}

// Ownership states who destroys a wrapped external resource.
type Ownership uint8

const (
	// Borrowed leaves destruction with the external owner; releasing the
	// wrapping proxy only severs the reference.
	Borrowed Ownership = iota

	// Adopted transfers destruction to the wrapping proxy's release path.
	Adopted
)

// String returns the ownership name for debugging.
func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "Borrowed"
	case Adopted:
		return "Adopted"
	default:
		return "Ownership(unknown)"
	}
}

// ReleaseFunc is invoked exactly once when a wrapped proxy's backing is
// torn down, regardless of ownership mode. Wrap operations that fail
// invoke it immediately so external bookkeeping never leaks.
type ReleaseFunc func()
