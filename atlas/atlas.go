package atlas

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuproxy"
)

// Default atlas geometry. The initial extent is deliberately small; the
// atlas doubles itself toward MaxSize only under packing pressure.
const (
	// DefaultInitialSize is the starting width and height.
	DefaultInitialSize = 256

	// padding is inserted around every entry so bilinear sampling at an
	// entry's edge cannot bleed neighbors in.
	padding = 1
)

// Config describes an atlas. The zero value picks DefaultInitialSize, the
// provider's maximum texture size, a single sample, and an R8 coverage
// format.
type Config struct {
	// InitialSize is the starting width and height. 0 means
	// DefaultInitialSize.
	InitialSize int

	// MaxSize caps growth in both dimensions. 0 means the provider's
	// MaxTextureSize (or MaxRenderTargetSize when Renderable).
	MaxSize int

	// Format is the texel format of the backing texture. Undefined means
	// R8Unorm, the usual single-channel coverage format.
	Format gputypes.TextureFormat

	// Renderable marks the atlas texture as a render target, for atlases
	// drawn on the GPU rather than uploaded into.
	Renderable bool

	// SampleCount is the MSAA sample count when Renderable. 0 means 1.
	SampleCount int
}

// node is one rectangular sub-region of the atlas with its own packer.
// Growth never repacks: it chains a new node over the added strip, and
// placement walks the chain newest-first.
type node struct {
	prev  *node
	l, t  int
	rects *Skyline
}

func (n *node) add(w, h int) (x, y int, ok bool) {
	rx, ry, ok := n.rects.Add(w, h)
	if !ok {
		return 0, 0, false
	}
	return n.l + rx, n.t + ry, true
}

// Atlas packs rectangles into one fully-lazy proxy. Placements are valid
// immediately; the texture appears at the final grown extent when the
// proxy is instantiated. Like the provider that owns its proxy, an Atlas
// is single-owner.
type Atlas struct {
	proxy   *gpuproxy.Proxy
	top     *node
	width   int
	height  int
	maxSize int

	drawWidth  int
	drawHeight int
}

// New creates an empty atlas whose backing proxy is created on pp.
// The proxy reports gpuproxy.LazySize dimensions until the atlas is
// instantiated.
func New(pp *gpuproxy.Provider, cfg Config) (*Atlas, error) {
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = gputypes.TextureFormatR8Unorm
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	limit := pp.Caps().MaxTextureSize
	if cfg.Renderable && pp.Caps().MaxRenderTargetSize < limit {
		limit = pp.Caps().MaxRenderTargetSize
	}
	if cfg.MaxSize <= 0 || cfg.MaxSize > limit {
		cfg.MaxSize = limit
	}
	if cfg.InitialSize <= 0 {
		cfg.InitialSize = DefaultInitialSize
	}
	if cfg.InitialSize > cfg.MaxSize {
		return nil, fmt.Errorf("atlas: initial size %d exceeds maximum %d", cfg.InitialSize, cfg.MaxSize)
	}

	a := &Atlas{
		width:   cfg.InitialSize,
		height:  cfg.InitialSize,
		maxSize: cfg.MaxSize,
	}
	a.top = &node{rects: NewSkyline(a.width, a.height)}

	// The callback reads the atlas extent when it runs, which is after
	// all packing: the texture is born at its final grown size.
	cb := func(alloc gpuproxy.Allocator) (gpuproxy.Resource, error) {
		if alloc == nil {
			return nil, nil
		}
		desc := gpuproxy.SurfaceDesc{
			Width:       a.width,
			Height:      a.height,
			Format:      cfg.Format,
			Renderable:  cfg.Renderable,
			SampleCount: cfg.SampleCount,
		}
		return alloc.CreateResource(desc, gpuproxy.FitExact, true, nil)
	}
	p, err := pp.CreateFullyLazyProxy(cb, cfg.Format, cfg.Renderable, cfg.SampleCount)
	if err != nil {
		return nil, err
	}
	a.proxy = p
	return a, nil
}

// Proxy returns the atlas's backing proxy, for keying or scheduling.
func (a *Atlas) Proxy() *gpuproxy.Proxy { return a.proxy }

// Width returns the current packing extent. It can still grow until the
// atlas is instantiated.
func (a *Atlas) Width() int { return a.width }

// Height returns the current packing extent.
func (a *Atlas) Height() int { return a.height }

// DrawBounds returns the extent actually covered by placements, padding
// included. Consumers that copy the atlas out only need this much.
func (a *Atlas) DrawBounds() (w, h int) { return a.drawWidth, a.drawHeight }

// AddRect claims a w x h region and returns its top-left corner, growing
// the atlas up to its maximum size if needed. ok is false when the rect
// cannot fit even after growth, or once the atlas is instantiated and
// its extent is frozen.
func (a *Atlas) AddRect(w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	if a.proxy.IsInstantiated() || a.proxy.IsReleased() {
		return 0, 0, false
	}
	pw, ph := w+2*padding, h+2*padding
	if pw > a.maxSize || ph > a.maxSize {
		return 0, 0, false
	}

	px, py, ok := a.place(pw, ph)
	if !ok {
		return 0, 0, false
	}
	a.drawWidth = max(a.drawWidth, px+pw)
	a.drawHeight = max(a.drawHeight, py+ph)
	return px + padding, py + padding, true
}

// place tries every node newest-first, growing between rounds.
func (a *Atlas) place(w, h int) (int, int, bool) {
	for {
		for n := a.top; n != nil; n = n.prev {
			if x, y, ok := n.add(w, h); ok {
				return x, y, true
			}
		}
		if !a.grow() {
			return 0, 0, false
		}
	}
}

// grow doubles the height, then the width, alternating until both hit
// maxSize. Existing placements stay valid: the new node only covers the
// added strip.
func (a *Atlas) grow() bool {
	if a.width >= a.maxSize && a.height >= a.maxSize {
		return false
	}
	if a.height <= a.width && a.height < a.maxSize {
		top := a.height
		a.height = min(a.height*2, a.maxSize)
		a.top = &node{
			prev:  a.top,
			t:     top,
			rects: NewSkyline(a.width, a.height-top),
		}
	} else {
		left := a.width
		a.width = min(a.width*2, a.maxSize)
		a.top = &node{
			prev:  a.top,
			l:     left,
			rects: NewSkyline(a.width-left, a.height),
		}
	}
	gpuproxy.Logger().Debug("atlas: grown", "width", a.width, "height", a.height)
	return true
}

// Instantiate resolves the atlas texture at its final extent through
// alloc. Packing is frozen afterwards.
func (a *Atlas) Instantiate(alloc gpuproxy.Allocator) error {
	return a.proxy.Instantiate(alloc)
}

// Release releases the backing proxy. The atlas stops accepting rects.
func (a *Atlas) Release() {
	a.proxy.Release()
}
