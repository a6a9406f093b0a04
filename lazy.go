package gpuproxy

// LazyCallback produces the backing resource for a lazily instantiated
// proxy. It runs inline on the goroutine driving instantiation.
//
// The allocator is nil when the owning provider was abandoned or is
// recording-only; the callback must tolerate that, release anything it
// captured, and return a nil Resource. Returning nil with a nil error
// reports the failure as ErrNoAllocator or ErrInstantiationFailed.
//
// For fully-lazy proxies the returned resource's dimensions become the
// proxy's logical dimensions.
type LazyCallback func(alloc Allocator) (Resource, error)

// LazyMode controls how many times a proxy may run its callback.
type LazyMode uint8

const (
	// LazyOnce drops the callback after its first invocation. A failed
	// attempt is permanent; later instantiation attempts report
	// ErrInstantiationFailed without running anything.
	LazyOnce LazyMode = iota

	// LazyMulti keeps the callback after a failed invocation so a later
	// instantiation attempt can retry. It is still dropped on success.
	LazyMulti
)

// String returns the mode name for debugging.
func (m LazyMode) String() string {
	switch m {
	case LazyOnce:
		return "Once"
	case LazyMulti:
		return "Multi"
	default:
		return "LazyMode(unknown)"
	}
}
