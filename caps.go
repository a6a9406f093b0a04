package gpuproxy

// Default limits used when no device capabilities are supplied. They match
// the WebGPU default limits that gogpu/wgpu devices are opened with.
const (
	// DefaultMaxTextureSize is the default maximum texture dimension.
	DefaultMaxTextureSize = 8192

	// DefaultMaxSampleCount is the default maximum MSAA sample count.
	DefaultMaxSampleCount = 4
)

// Caps describes the capabilities the provider validates surface
// descriptions against. Allocator implementations derive a Caps from
// their device; recording-only providers use DefaultCaps.
type Caps struct {
	// MaxTextureSize is the maximum texture dimension supported.
	MaxTextureSize int

	// MaxRenderTargetSize is the maximum render target dimension
	// supported. Never larger than MaxTextureSize.
	MaxRenderTargetSize int

	// MaxSampleCount is the maximum MSAA sample count supported.
	MaxSampleCount int

	// MipMapSupport indicates if mip mapped textures are supported.
	MipMapSupport bool
}

// DefaultCaps returns capabilities matching the WebGPU default limits.
func DefaultCaps() *Caps {
	return &Caps{
		MaxTextureSize:      DefaultMaxTextureSize,
		MaxRenderTargetSize: DefaultMaxTextureSize,
		MaxSampleCount:      DefaultMaxSampleCount,
		MipMapSupport:       true,
	}
}
