package wgpu

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuproxy"
)

// Allocator errors.
var (
	// ErrNilDevice is returned when an allocator is created without a
	// HAL device or queue.
	ErrNilDevice = errors.New("wgpu: nil HAL device or queue")

	// ErrBadDescriptor is returned when CreateResource receives a surface
	// description it cannot allocate.
	ErrBadDescriptor = errors.New("wgpu: unallocatable surface description")

	// ErrUploadSize is returned when a texel level's data does not cover
	// its declared dimensions.
	ErrUploadSize = errors.New("wgpu: texel data smaller than level dimensions")
)

// fenceTimeout bounds how long WaitIdle blocks on the GPU.
const fenceTimeout = 5 * time.Second

// Allocator creates backing textures on a HAL device. It implements
// gpuproxy.Allocator and is safe for concurrent use; creation calls go
// straight to the HAL, which synchronizes internally.
type Allocator struct {
	device hal.Device
	queue  hal.Queue
	caps   *gpuproxy.Caps
	cache  *Cache

	bytesAllocated atomic.Int64
	textureCount   atomic.Int64
	labelSeq       atomic.Uint64
}

// NewAllocator wires an allocator to a HAL device/queue pair. cache may be
// nil, in which case keyed textures are not indexed at the allocator level
// and FindOrCreateProxyByUniqueKey only ever sees the proxy index. nil
// caps fall back to gpuproxy.DefaultCaps.
func NewAllocator(device hal.Device, queue hal.Queue, caps *gpuproxy.Caps, cache *Cache) (*Allocator, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	if caps == nil {
		caps = gpuproxy.DefaultCaps()
	}
	return &Allocator{device: device, queue: queue, caps: caps, cache: cache}, nil
}

// Caps returns the capabilities of the device the allocator creates on.
func (a *Allocator) Caps() *gpuproxy.Caps { return a.caps }

// Cache returns the allocator-level resource cache, or nil.
func (a *Allocator) Cache() *Cache { return a.cache }

// CreateResource allocates a HAL texture for desc and uploads any supplied
// texel levels. Under gpuproxy.FitApprox the backing dimensions are
// rounded up on the scratch grid; data-bearing surfaces are always
// allocated exactly, since the data covers precisely the logical size.
func (a *Allocator) CreateResource(desc gpuproxy.SurfaceDesc, fit gpuproxy.BackingFit, budgeted bool, data []gpuproxy.TexelLevel) (gpuproxy.Resource, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDescriptor, desc.Width, desc.Height)
	}
	if err := desc.Validate(a.caps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDescriptor, err)
	}

	w, h := desc.Width, desc.Height
	if fit == gpuproxy.FitApprox && len(data) == 0 {
		w, h = gpuproxy.ApproxDims(w, h)
	}
	mipLevels := 1
	if desc.MipMapped {
		mipLevels = gpuproxy.MipLevelCount(w, h)
	}
	sampleCount := 1
	if desc.Renderable && desc.SampleCount > 1 {
		sampleCount = min(desc.SampleCount, a.caps.MaxSampleCount)
	}

	label := fmt.Sprintf("gpuproxy_tex_%d", a.labelSeq.Add(1))
	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(mipLevels),
		SampleCount:   uint32(sampleCount),
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}

	view, err := a.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: uint32(mipLevels),
	})
	if err != nil {
		a.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}

	t := &Texture{
		alloc:     a,
		tex:       tex,
		view:      view,
		width:     w,
		height:    h,
		format:    desc.Format,
		mipLevels: mipLevels,
		sizeBytes: textureSizeBytes(w, h, mipLevels, desc.Format),
		budgeted:  budgeted,
		label:     label,
	}
	t.refs.Store(1)

	for level, texels := range data {
		if err := a.uploadLevel(t, level, texels); err != nil {
			t.Release()
			return nil, err
		}
	}

	a.bytesAllocated.Add(int64(t.sizeBytes))
	a.textureCount.Add(1)
	return t, nil
}

// uploadLevel writes one mip level of CPU texels into tex. Rows with a
// stride wider than the level are repacked tight before the write, since
// WriteTexture expects BytesPerRow to match the copy extent.
func (a *Allocator) uploadLevel(tex *Texture, level int, texels gpuproxy.TexelLevel) error {
	bpp := BytesPerPixel(tex.format)
	tight := texels.Width * bpp
	rowBytes := texels.RowBytes
	if rowBytes == 0 {
		rowBytes = tight
	}
	if len(texels.Pixels) < rowBytes*(texels.Height-1)+tight {
		return fmt.Errorf("%w: level %d has %d bytes for %dx%d",
			ErrUploadSize, level, len(texels.Pixels), texels.Width, texels.Height)
	}
	pixels := texels.Pixels
	if rowBytes != tight {
		packed := make([]byte, tight*texels.Height)
		for y := 0; y < texels.Height; y++ {
			copy(packed[y*tight:(y+1)*tight], pixels[y*rowBytes:y*rowBytes+tight])
		}
		pixels = packed
	} else {
		pixels = pixels[:tight*texels.Height]
	}

	a.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex.tex,
			MipLevel: uint32(level),
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(tight),
			RowsPerImage: uint32(texels.Height),
		},
		&hal.Extent3D{
			Width:              uint32(texels.Width),
			Height:             uint32(texels.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// destroyTexture tears down the HAL objects and deducts the memory.
// Called from the texture's final Release.
func (a *Allocator) destroyTexture(t *Texture) {
	if t.view != nil {
		a.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		a.device.DestroyTexture(t.tex)
		t.tex = nil
	}
	a.bytesAllocated.Add(-int64(t.sizeBytes))
	a.textureCount.Add(-1)
}

// WaitIdle blocks until previously submitted GPU work completes, bounded
// by fenceTimeout. Callers use it before reading back or tearing down.
func (a *Allocator) WaitIdle() error {
	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit fence: %w", err)
	}
	ok, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: wait for GPU timed out after %v", fenceTimeout)
	}
	return nil
}

// BytesAllocated returns the live texture bytes created through this
// allocator.
func (a *Allocator) BytesAllocated() int64 { return a.bytesAllocated.Load() }

// TextureCount returns the number of live textures.
func (a *Allocator) TextureCount() int64 { return a.textureCount.Load() }
