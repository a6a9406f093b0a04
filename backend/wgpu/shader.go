package wgpu

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words through naga. SPIR-V is
// little-endian 32-bit words, so the compiled bytes are folded four at a
// time.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	return spirvWords(spirvBytes), nil
}

// spirvWords folds little-endian bytes into SPIR-V words. Trailing bytes
// that do not fill a word are dropped.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

// ShaderCache compiles WGSL sources at most once each and caches the
// resulting HAL shader modules by source hash. Module creation is the
// expensive step of pipeline warmup, so render passes built on top of
// proxy-backed targets share modules through this cache.
//
// ShaderCache is safe for concurrent use.
type ShaderCache struct {
	mu      sync.RWMutex
	device  hal.Device
	modules map[uint64]hal.ShaderModule

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewShaderCache creates a shader cache on device.
func NewShaderCache(device hal.Device) (*ShaderCache, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &ShaderCache{
		device:  device,
		modules: make(map[uint64]hal.ShaderModule),
	}, nil
}

// GetOrCreate returns the module for source, compiling and creating it on
// first use. label names the module in GPU debuggers on the creating call.
func (c *ShaderCache) GetOrCreate(label, source string) (hal.ShaderModule, error) {
	key := hashSource(source)

	c.mu.RLock()
	module, ok := c.modules[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return module, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Double-check: another goroutine may have compiled it meanwhile.
	if module, ok := c.modules[key]; ok {
		c.hits.Add(1)
		return module, nil
	}
	c.misses.Add(1)

	words, err := CompileWGSL(source)
	if err != nil {
		return nil, err
	}
	module, err = c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module: %w", err)
	}
	c.modules[key] = module
	return module, nil
}

// Hits returns the number of cache hits.
func (c *ShaderCache) Hits() uint64 { return c.hits.Load() }

// Misses returns the number of compilations.
func (c *ShaderCache) Misses() uint64 { return c.misses.Load() }

// Len returns the number of cached modules.
func (c *ShaderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modules)
}

// Destroy releases every cached module. The cache is unusable afterwards.
func (c *ShaderCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, module := range c.modules {
		c.device.DestroyShaderModule(module)
		delete(c.modules, key)
	}
}

// hashSource hashes WGSL source with FNV-1a for the module index.
func hashSource(source string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return h.Sum64()
}
