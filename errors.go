package gpuproxy

import "errors"

// Validation errors. These are reported synchronously by the proxy
// factories and key-index operations; a failed call never registers a
// partially constructed proxy.
var (
	// ErrInvalidSize is returned when width and height disagree in sign,
	// or when a factory that needs known dimensions receives deferred ones.
	ErrInvalidSize = errors.New("gpuproxy: invalid dimensions")

	// ErrSizeTooLarge is returned when dimensions exceed the device limits
	// in Caps.
	ErrSizeTooLarge = errors.New("gpuproxy: dimensions exceed device limits")

	// ErrInvalidFormat is returned when the surface format is undefined.
	ErrInvalidFormat = errors.New("gpuproxy: undefined texture format")

	// ErrInvalidSampleCount is returned when a renderable surface is
	// described with a sample count below 1.
	ErrInvalidSampleCount = errors.New("gpuproxy: renderable surface needs a sample count of at least 1")

	// ErrMipmappedFullyLazy is returned when a fully-lazy proxy requests
	// mip maps; the chain length cannot be known before the dimensions are.
	ErrMipmappedFullyLazy = errors.New("gpuproxy: fully-lazy proxies cannot be mipmapped")

	// ErrMipmapUnsupported is returned when mip maps are requested on a
	// device without mip map support.
	ErrMipmapUnsupported = errors.New("gpuproxy: device does not support mip maps")

	// ErrLevelCount is returned when the texel levels handed to a
	// data-bearing factory do not match the surface's mip policy.
	ErrLevelCount = errors.New("gpuproxy: texel level count does not match mip policy")

	// ErrNilCallback is returned when a lazy factory receives a nil
	// instantiation callback.
	ErrNilCallback = errors.New("gpuproxy: nil instantiation callback")

	// ErrNilImage is returned when an image factory receives a nil image.
	ErrNilImage = errors.New("gpuproxy: nil image")

	// ErrNilProxy is returned when an operation that needs a proxy
	// receives nil.
	ErrNilProxy = errors.New("gpuproxy: nil proxy")

	// ErrNilResource is returned when a wrap operation receives a nil
	// backend resource.
	ErrNilResource = errors.New("gpuproxy: nil backend resource")
)

// Key index errors.
var (
	// ErrInvalidKey is returned when an operation receives the zero
	// UniqueKey.
	ErrInvalidKey = errors.New("gpuproxy: invalid unique key")

	// ErrKeyInUse is returned when a key is already mapped to a different
	// live proxy.
	ErrKeyInUse = errors.New("gpuproxy: unique key already in use")

	// ErrProxyAlreadyKeyed is returned when a proxy that already carries
	// a key is assigned a different one.
	ErrProxyAlreadyKeyed = errors.New("gpuproxy: proxy already carries a unique key")

	// ErrKeyMismatch is returned when a removal names a proxy that does
	// not hold the given key.
	ErrKeyMismatch = errors.New("gpuproxy: key is mapped to a different proxy")

	// ErrBackingUnkeyed is returned by AdoptUniqueKeyFromBacking when the
	// backing resource carries no key to adopt.
	ErrBackingUnkeyed = errors.New("gpuproxy: backing resource carries no unique key")

	// ErrNotInstantiated is returned when an operation needs a resolved
	// backing resource and the proxy has none.
	ErrNotInstantiated = errors.New("gpuproxy: proxy is not instantiated")
)

// Lifecycle errors.
var (
	// ErrAbandoned is returned by provider operations after Abandon.
	ErrAbandoned = errors.New("gpuproxy: provider is abandoned")

	// ErrNoAllocator is returned when instantiation runs without a live
	// allocator (abandoned or recording-only provider).
	ErrNoAllocator = errors.New("gpuproxy: no allocator available")

	// ErrProxyReleased is returned when a released proxy is used.
	ErrProxyReleased = errors.New("gpuproxy: proxy has been released")

	// ErrInstantiationFailed is returned when instantiation produces no
	// backing resource.
	ErrInstantiationFailed = errors.New("gpuproxy: instantiation failed")
)
