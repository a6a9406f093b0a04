package gpuproxy

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Origin identifies which corner texel row zero refers to. Render targets
// produced by different APIs disagree on this, so it travels with the
// surface description.
type Origin uint8

const (
	// OriginTopLeft places row zero at the top of the image.
	OriginTopLeft Origin = iota

	// OriginBottomLeft places row zero at the bottom of the image.
	OriginBottomLeft
)

// String returns the origin name for debugging.
func (o Origin) String() string {
	switch o {
	case OriginTopLeft:
		return "TopLeft"
	case OriginBottomLeft:
		return "BottomLeft"
	default:
		return fmt.Sprintf("Origin(%d)", uint8(o))
	}
}

// BackingFit selects whether a proxy must be backed at exactly its logical
// dimensions or may ride a larger scratch allocation.
type BackingFit uint8

const (
	// FitExact requires the backing resource to match the logical
	// dimensions exactly.
	FitExact BackingFit = iota

	// FitApprox allows the allocator to satisfy the proxy with an
	// oversized resource rounded up by ApproxDims, improving reuse.
	FitApprox
)

// String returns the fit name for debugging.
func (f BackingFit) String() string {
	switch f {
	case FitExact:
		return "Exact"
	case FitApprox:
		return "Approx"
	default:
		return fmt.Sprintf("BackingFit(%d)", uint8(f))
	}
}

// LazySize is the width and height sentinel of proxies whose dimensions
// are determined by their instantiation callback.
const LazySize = -1

// SurfaceDesc describes the logical surface a proxy stands in for.
// The zero value is not valid; at minimum Width, Height and Format must
// be set (or the dimensions left to a fully-lazy callback).
type SurfaceDesc struct {
	// Width and Height are the logical dimensions in texels. Both are
	// LazySize on fully-lazy proxies until instantiation resolves them.
	Width  int
	Height int

	// Format is the texel format of the backing resource.
	Format gputypes.TextureFormat

	// Origin selects the row-zero convention of the surface.
	Origin Origin

	// MipMapped requests a full mip chain on the backing resource.
	MipMapped bool

	// Renderable marks the surface as a render target.
	Renderable bool

	// SampleCount is the MSAA sample count. Meaningful only when
	// Renderable is set, where it must be at least 1.
	SampleCount int
}

// IsFullyLazy reports whether the dimensions are deferred to the
// instantiation callback.
func (d *SurfaceDesc) IsFullyLazy() bool {
	return d.Width <= 0 && d.Height <= 0
}

// Validate checks the description against device capabilities. Dimensions
// must agree in sign: both positive, or both non-positive for a fully-lazy
// surface. caps must be non-nil.
func (d *SurfaceDesc) Validate(caps *Caps) error {
	if (d.Width > 0) != (d.Height > 0) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, d.Width, d.Height)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return ErrInvalidFormat
	}
	if d.MipMapped {
		if d.IsFullyLazy() {
			return ErrMipmappedFullyLazy
		}
		if !caps.MipMapSupport {
			return ErrMipmapUnsupported
		}
	}
	if d.Renderable {
		if d.SampleCount < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidSampleCount, d.SampleCount)
		}
		if d.Width > caps.MaxRenderTargetSize || d.Height > caps.MaxRenderTargetSize {
			return fmt.Errorf("%w: %dx%d (render target limit %d)",
				ErrSizeTooLarge, d.Width, d.Height, caps.MaxRenderTargetSize)
		}
	} else if d.Width > caps.MaxTextureSize || d.Height > caps.MaxTextureSize {
		return fmt.Errorf("%w: %dx%d (texture limit %d)",
			ErrSizeTooLarge, d.Width, d.Height, caps.MaxTextureSize)
	}
	return nil
}

// minScratchSize is the smallest extent ApproxDims returns. Tiny scratch
// textures fragment the allocator for no memory win.
const minScratchSize = 16

// magicTol is the extent above which ApproxDims inserts midpoints between
// powers of two, limiting worst-case overshoot to 33%.
const magicTol = 1024

// ApproxDims rounds dimensions up to the allocator's scratch grid: at
// least minScratchSize, then the next power of two, with an extra
// power-of-1.5 step for extents above magicTol.
func ApproxDims(w, h int) (int, int) {
	return approxSize(w), approxSize(h)
}

func approxSize(v int) int {
	if v < minScratchSize {
		return minScratchSize
	}
	if v&(v-1) == 0 {
		return v
	}
	ceil := nextPow2(v)
	if v <= magicTol {
		return ceil
	}
	floor := ceil >> 1
	mid := floor + floor>>1
	if v <= mid {
		return mid
	}
	return ceil
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// FunctionallyExact reports whether an approximate-fit surface of the
// given dimensions would be backed at exactly those dimensions anyway,
// so consumers can treat its content bounds as the full resource.
func FunctionallyExact(fit BackingFit, w, h int) bool {
	if fit == FitExact {
		return true
	}
	if w <= 0 || h <= 0 {
		return false
	}
	aw, ah := ApproxDims(w, h)
	return aw == w && ah == h
}
