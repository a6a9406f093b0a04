package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuproxy"
)

// Device bring-up errors.
var (
	// ErrNoBackend is returned when the HAL has no usable backend on this
	// platform.
	ErrNoBackend = errors.New("wgpu: no HAL backend available")

	// ErrNoAdapter is returned when the instance exposes no GPU adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrNotHalProvider is returned when a gpucontext provider does not
	// expose HAL device and queue handles.
	ErrNotHalProvider = errors.New("wgpu: provider does not expose HAL types")
)

// Device bundles a HAL device, its queue, and the capabilities derived
// from the device limits. It is the starting point for building a live
// provider: open (or borrow) a Device, then hand its allocator and cache
// to gpuproxy.New.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	caps     *gpuproxy.Caps
	name     string
	owned    bool
}

// Open brings up a HAL device on the Vulkan backend, preferring discrete
// and integrated GPUs over software adapters. The returned Device owns the
// HAL objects; Close destroys them.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	gpuproxy.Logger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		caps:     CapsFromLimits(limits),
		name:     selected.Info.Name,
		owned:    true,
	}, nil
}

// FromProvider borrows the HAL device and queue from a gpucontext device
// provider, the seam used when an application already owns a GPU context.
// The provider must additionally expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. The returned Device does not own the
// HAL objects; Close leaves them alive.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHalProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHalProvider)
	}
	return &Device{
		device: device,
		queue:  queue,
		caps:   CapsFromLimits(gputypes.DefaultLimits()),
	}, nil
}

// CapsFromLimits converts HAL device limits into the capability snapshot
// the proxy provider validates against.
func CapsFromLimits(limits gputypes.Limits) *gpuproxy.Caps {
	maxDim := int(limits.MaxTextureDimension2D)
	if maxDim <= 0 {
		maxDim = gpuproxy.DefaultMaxTextureSize
	}
	return &gpuproxy.Caps{
		MaxTextureSize:      maxDim,
		MaxRenderTargetSize: maxDim,
		MaxSampleCount:      gpuproxy.DefaultMaxSampleCount,
		MipMapSupport:       true,
	}
}

// Caps returns the device's capability snapshot.
func (d *Device) Caps() *gpuproxy.Caps { return d.caps }

// HalDevice returns the underlying HAL device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// Name returns the adapter name, or "" for borrowed devices.
func (d *Device) Name() string { return d.name }

// NewAllocator builds an allocator (and its cache, budgeted in megabytes)
// on this device.
func (d *Device) NewAllocator(cacheMB int) (*Allocator, *Cache, error) {
	cache := NewCache(cacheMB)
	alloc, err := NewAllocator(d.device, d.queue, d.caps, cache)
	if err != nil {
		return nil, nil, err
	}
	return alloc, cache, nil
}

// Close destroys the HAL device and instance when this Device owns them.
// Borrowed devices are left untouched. Idempotent.
func (d *Device) Close() {
	if !d.owned {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}
