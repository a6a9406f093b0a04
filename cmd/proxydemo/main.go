// Command proxydemo exercises the proxy provider end to end: it opens a
// HAL device when one is available, records deferred and lazy proxies,
// keys them, resolves them through the allocator, and prints the cache
// statistics. With -recording (or when no GPU is present) it runs the
// same recording flow without ever instantiating.
package main

import (
	"flag"
	"image"
	"image/color"
	"log"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuproxy"
	"github.com/gogpu/gpuproxy/atlas"
	"github.com/gogpu/gpuproxy/backend/wgpu"
)

func main() {
	var (
		recording = flag.Bool("recording", false, "skip device bring-up and record only")
		cacheMB   = flag.Int("cache-mb", 64, "resource cache budget in megabytes")
		size      = flag.Int("size", 256, "demo surface size")
		warmup    = flag.Bool("warmup", false, "warm the shader cache with the blit shader")
	)
	flag.Parse()

	if *recording {
		runRecording(*size)
		return
	}

	device, err := wgpu.Open()
	if err != nil {
		log.Printf("no GPU device (%v), falling back to recording mode", err)
		runRecording(*size)
		return
	}
	defer device.Close()

	alloc, cache, err := device.NewAllocator(*cacheMB)
	if err != nil {
		log.Fatalf("Failed to create allocator: %v", err)
	}

	provider := gpuproxy.New(alloc, cache, device.Caps())
	cache.SetInvalidationListener(provider.ProcessInvalidUniqueKey)
	defer provider.Abandon()

	domain := gpuproxy.GenerateDomain()

	// A blank render target, resolved eagerly.
	target, err := provider.CreateInstantiatedProxy(gpuproxy.SurfaceDesc{
		Width:       *size,
		Height:      *size,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		Renderable:  true,
		SampleCount: 1,
	}, gpuproxy.FitApprox, true)
	if err != nil {
		log.Fatalf("Failed to create render target: %v", err)
	}
	defer target.Release()
	log.Printf("render target backed at %dx%d (logical %dx%d)",
		target.Backing().Width(), target.Backing().Height(), target.Width(), target.Height())

	// A data-bearing texture with a CPU mip chain, keyed for reuse.
	img := checkerboard(*size)
	textured, err := provider.CreateProxyFromImage(img, true, true)
	if err != nil {
		log.Fatalf("Failed to create image proxy: %v", err)
	}
	defer textured.Release()

	key := gpuproxy.NewKeyBuilder(domain).AddString("checkerboard").AddUint32(uint32(*size)).Build()
	if err := provider.AssignUniqueKey(key, textured); err != nil {
		log.Fatalf("Failed to key image proxy: %v", err)
	}
	if err := textured.Instantiate(provider.Allocator()); err != nil {
		log.Fatalf("Failed to instantiate image proxy: %v", err)
	}
	if found := provider.FindProxyByUniqueKey(key); found != textured {
		log.Fatalf("key lookup returned %v, want the image proxy", found)
	}

	// An atlas packs rects before any texture exists; its fully-lazy
	// proxy resolves at the final grown extent.
	coverage, err := atlas.New(provider, atlas.Config{InitialSize: 64})
	if err != nil {
		log.Fatalf("Failed to create atlas: %v", err)
	}
	defer coverage.Release()
	placed := 0
	for i := 0; i < 200; i++ {
		if _, _, ok := coverage.AddRect(24, 24); ok {
			placed++
		}
	}
	if err := coverage.Instantiate(provider.Allocator()); err != nil {
		log.Fatalf("Failed to instantiate atlas: %v", err)
	}
	log.Printf("atlas packed %d rects, resolved at %dx%d",
		placed, coverage.Proxy().Width(), coverage.Proxy().Height())

	// Wrap the render target's backing as an externally owned resource,
	// the path an embedding application uses for swapchain images.
	external := target.Backing()
	wrapped, err := provider.WrapBackendTexture(external, gpuproxy.Borrowed, func() {
		log.Printf("wrapped backing released")
	})
	if err != nil {
		log.Fatalf("Failed to wrap backing: %v", err)
	}
	wrapped.Release()

	if *warmup {
		warmShaderCache(device)
	}

	if err := alloc.WaitIdle(); err != nil {
		log.Fatalf("GPU did not go idle: %v", err)
	}

	stats := cache.Stats()
	log.Printf("cache: %d entries, %d/%d bytes, %d hits, %d misses, %d evictions",
		stats.Entries, stats.Size, stats.MaxSize, stats.Hits, stats.Misses, stats.Evictions)
	log.Printf("allocator: %d textures, %d bytes live", alloc.TextureCount(), alloc.BytesAllocated())
}

// runRecording drives the provider without a device: proxies are created
// and keyed, and instantiation attempts report failure instead of
// allocating.
func runRecording(size int) {
	provider := gpuproxy.NewRecording(nil)
	domain := gpuproxy.GenerateDomain()

	proxy, err := provider.CreateProxy(gpuproxy.SurfaceDesc{
		Width:  size,
		Height: size,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}, gpuproxy.FitExact, true)
	if err != nil {
		log.Fatalf("Failed to create proxy: %v", err)
	}
	defer proxy.Release()

	key := gpuproxy.NewKeyBuilder(domain).AddString("recording").Build()
	if err := provider.AssignUniqueKey(key, proxy); err != nil {
		log.Fatalf("Failed to key proxy: %v", err)
	}

	err = proxy.Instantiate(provider.Allocator())
	log.Printf("recording-only: %d keyed proxies, instantiate reported %v",
		provider.NumUniqueKeyProxies(), err)
}

// warmShaderCache compiles the demo blit shader so a renderer picking up
// the device later finds the module ready.
func warmShaderCache(device *wgpu.Device) {
	const blitWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0), vec2<f32>(-1.0, 1.0), vec2<f32>(3.0, 1.0));
    return vec4<f32>(pos[idx], 0.0, 1.0);
}
`
	shaders, err := wgpu.NewShaderCache(device.HalDevice())
	if err != nil {
		log.Printf("shader cache unavailable: %v", err)
		return
	}
	defer shaders.Destroy()
	if _, err := shaders.GetOrCreate("proxydemo_blit", blitWGSL); err != nil {
		log.Printf("shader warmup failed: %v", err)
		return
	}
	// Second request must hit.
	if _, err := shaders.GetOrCreate("proxydemo_blit", blitWGSL); err != nil {
		log.Printf("shader warmup failed: %v", err)
		return
	}
	log.Printf("shader cache warmed: %d modules, %d hits", shaders.Len(), shaders.Hits())
}

// checkerboard builds the demo's source image.
func checkerboard(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{R: 40, G: 40, B: 48, A: 255}
			if (x/16+y/16)%2 == 0 {
				c = color.RGBA{R: 220, G: 220, B: 228, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
