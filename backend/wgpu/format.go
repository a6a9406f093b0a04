package wgpu

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuproxy"
)

// BytesPerPixel returns the per-texel byte size of the formats this
// backend allocates. Unknown formats fall back to 4 so size accounting
// never underestimates the common case.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// DefaultTextureUsage is what sampled textures are created with.
const DefaultTextureUsage = gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding

// textureUsage maps a surface description to HAL usage flags. The default
// set already carries CopyDst, so data-bearing uploads need nothing extra;
// renderable surfaces add RenderAttachment.
func textureUsage(desc gpuproxy.SurfaceDesc) gputypes.TextureUsage {
	usage := DefaultTextureUsage
	if desc.Renderable {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return usage
}

// textureSizeBytes sums the byte size of w x h in format f across levels
// mip levels, halving each dimension per level.
func textureSizeBytes(w, h, levels int, f gputypes.TextureFormat) uint64 {
	bpp := uint64(BytesPerPixel(f))
	var total uint64
	for i := 0; i < levels; i++ {
		total += uint64(w) * uint64(h) * bpp
		w = max(1, w/2)
		h = max(1, h/2)
	}
	return total
}
