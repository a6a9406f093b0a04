// Package gpuproxy provides deferred GPU surface proxies for Go.
//
// # Overview
//
// gpuproxy decouples describing a GPU texture from allocating one. A Proxy
// is a lightweight placeholder carrying a surface description; the backing
// resource is created later, when a Provider walks recorded work and
// instantiates each proxy against an Allocator. This lets recording code
// run ahead of (or entirely without) a live GPU device, and lets the
// allocator batch, reuse, and budget real memory.
//
// # Quick Start
//
//	import "github.com/gogpu/gpuproxy"
//
//	// Create a provider bound to an allocator and its resource cache.
//	pp := gpuproxy.New(alloc, cache, alloc.Caps())
//
//	// Describe a surface; no GPU memory is touched yet.
//	desc := gpuproxy.SurfaceDesc{
//		Width:  256,
//		Height: 256,
//		Format: gputypes.TextureFormatRGBA8Unorm,
//	}
//	proxy, _ := pp.CreateProxy(desc, gpuproxy.FitApprox, true)
//
//	// Later, when the device is ready:
//	if err := proxy.Instantiate(alloc); err != nil {
//		// handle allocation failure
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: Provider, Proxy, SurfaceDesc, UniqueKey, LazyCallback
//   - Backends: backend/wgpu (Allocator over gogpu/wgpu HAL)
//   - Utilities: atlas (rectangle packing on fully-lazy proxies)
//
// # Unique Keys
//
// Proxies can be tagged with a UniqueKey so that widely separated code
// finds the same deferred surface instead of creating duplicates. The
// provider's key index holds proxies non-owningly: releasing a keyed proxy
// removes its entry, and allocator-level eviction notices are forwarded via
// ProcessInvalidUniqueKey. Keys never dedup by content; two proxies built
// from identical pixel data remain distinct unless the caller keys them.
//
// # Instantiation Modes
//
// Four creation modes cover the common deferral patterns: eager
// data-bearing (pixels ride along until first instantiation), eager blank,
// lazy (dimensions known, allocation behind a callback), and fully lazy
// (even dimensions resolve at callback time). Wrapped proxies adopt or
// borrow an already-created backend resource.
//
// # Concurrency
//
// A Provider and its proxies are single-owner: one goroutine drives them
// at a time. Building with the singleowner tag turns ownership violations
// into panics in tests. Allocator implementations, which are shared with
// device-facing code, synchronize internally.
package gpuproxy

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
