package atlas

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuproxy"
)

// stubResource implements gpuproxy.Resource with plain fields.
type stubResource struct {
	width, height int
	format        gputypes.TextureFormat
	key           gpuproxy.UniqueKey
}

func (r *stubResource) Width() int                             { return r.width }
func (r *stubResource) Height() int                            { return r.height }
func (r *stubResource) Format() gputypes.TextureFormat         { return r.format }
func (r *stubResource) UniqueKey() gpuproxy.UniqueKey          { return r.key }
func (r *stubResource) SetUniqueKey(key gpuproxy.UniqueKey)    { r.key = key }
func (r *stubResource) RemoveUniqueKey()                       { r.key = gpuproxy.UniqueKey{} }
func (r *stubResource) Release()                               {}

// stubAllocator implements gpuproxy.Allocator and records the last
// description it saw.
type stubAllocator struct {
	created  int
	lastDesc gpuproxy.SurfaceDesc
}

func (a *stubAllocator) CreateResource(desc gpuproxy.SurfaceDesc, fit gpuproxy.BackingFit, budgeted bool, data []gpuproxy.TexelLevel) (gpuproxy.Resource, error) {
	a.created++
	a.lastDesc = desc
	return &stubResource{width: desc.Width, height: desc.Height, format: desc.Format}, nil
}

func newTestAtlas(t *testing.T, cfg Config) (*Atlas, *gpuproxy.Provider) {
	t.Helper()
	pp := gpuproxy.NewRecording(nil)
	a, err := New(pp, cfg)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return a, pp
}

func TestAtlasStartsLazy(t *testing.T) {
	a, _ := newTestAtlas(t, Config{InitialSize: 64})

	p := a.Proxy()
	if p == nil {
		t.Fatal("Proxy() returned nil")
	}
	if !p.IsFullyLazy() {
		t.Error("atlas proxy should be fully lazy")
	}
	if p.Width() > 0 || p.Height() > 0 {
		t.Errorf("proxy dims = %dx%d before instantiation, must not be positive", p.Width(), p.Height())
	}
	if a.Width() != 64 || a.Height() != 64 {
		t.Errorf("packing extent = %dx%d, want 64x64", a.Width(), a.Height())
	}
}

func TestAtlasConfigDefaults(t *testing.T) {
	a, pp := newTestAtlas(t, Config{})
	if a.Width() != DefaultInitialSize {
		t.Errorf("initial extent = %d, want %d", a.Width(), DefaultInitialSize)
	}
	if a.maxSize != pp.Caps().MaxTextureSize {
		t.Errorf("max size = %d, want caps limit %d", a.maxSize, pp.Caps().MaxTextureSize)
	}
}

func TestAtlasInitialExceedsMax(t *testing.T) {
	pp := gpuproxy.NewRecording(nil)
	if _, err := New(pp, Config{InitialSize: 512, MaxSize: 256}); err == nil {
		t.Error("New() should reject InitialSize > MaxSize")
	}
}

func TestAtlasAddRect(t *testing.T) {
	a, _ := newTestAtlas(t, Config{InitialSize: 64})

	x, y, ok := a.AddRect(10, 10)
	if !ok {
		t.Fatal("AddRect(10, 10) should fit")
	}
	// Placements are inset by the sampling padding.
	if x != padding || y != padding {
		t.Errorf("first placement = (%d, %d), want (%d, %d)", x, y, padding, padding)
	}

	dw, dh := a.DrawBounds()
	if dw != 10+2*padding || dh != 10+2*padding {
		t.Errorf("DrawBounds() = (%d, %d), want (%d, %d)", dw, dh, 10+2*padding, 10+2*padding)
	}

	if _, _, ok := a.AddRect(0, 5); ok {
		t.Error("AddRect(0, 5) should be rejected")
	}
}

func TestAtlasGrowth(t *testing.T) {
	a, _ := newTestAtlas(t, Config{InitialSize: 64, MaxSize: 256})

	// Each padded 60x60 entry occupies most of a 64-wide column, so
	// packing several forces height doubling, then width doubling.
	type rect struct{ x, y, w, h int }
	var rects []rect
	for range 12 {
		x, y, ok := a.AddRect(60, 60)
		if !ok {
			t.Fatalf("AddRect rejected rect %d with growth headroom left", len(rects)+1)
		}
		rects = append(rects, rect{x, y, 60, 60})
	}
	if a.Width() <= 64 && a.Height() <= 64 {
		t.Error("atlas should have grown past its initial extent")
	}
	if a.Width() > 256 || a.Height() > 256 {
		t.Errorf("atlas extent %dx%d exceeds MaxSize", a.Width(), a.Height())
	}

	// Growth must never invalidate earlier placements.
	for i, r := range rects {
		if r.x < padding || r.y < padding || r.x+r.w+padding > a.Width() || r.y+r.h+padding > a.Height() {
			t.Errorf("rect %d (%+v) escapes the grown %dx%d atlas", i, r, a.Width(), a.Height())
		}
		for j := i + 1; j < len(rects); j++ {
			o := rects[j]
			if r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h {
				t.Errorf("rect %d (%+v) overlaps rect %d (%+v)", i, r, j, o)
			}
		}
	}
}

func TestAtlasGrowthExhausted(t *testing.T) {
	a, _ := newTestAtlas(t, Config{InitialSize: 32, MaxSize: 64})

	placedCount := 0
	for range 64 {
		if _, _, ok := a.AddRect(30, 30); !ok {
			break
		}
		placedCount++
	}
	if placedCount == 0 {
		t.Fatal("nothing placed at all")
	}
	if _, _, ok := a.AddRect(30, 30); ok {
		t.Error("a saturated atlas at MaxSize should reject further rects")
	}

	// Oversized rects fail fast, padding included.
	if _, _, ok := a.AddRect(64, 64); ok {
		t.Error("rect that cannot fit even at MaxSize (with padding) should be rejected")
	}
}

func TestAtlasInstantiateAtFinalSize(t *testing.T) {
	caps := gpuproxy.DefaultCaps()
	alloc := &stubAllocator{}
	pp := gpuproxy.New(alloc, nil, caps)

	a, err := New(pp, Config{InitialSize: 64, MaxSize: 256, Renderable: true})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	// Force at least one growth round before instantiation.
	for range 4 {
		if _, _, ok := a.AddRect(60, 60); !ok {
			t.Fatal("AddRect rejected with growth headroom left")
		}
	}
	grownW, grownH := a.Width(), a.Height()

	if err := a.Instantiate(pp.Allocator()); err != nil {
		t.Fatalf("Instantiate() = %v", err)
	}
	if alloc.created != 1 {
		t.Fatalf("allocator created %d resources, want 1", alloc.created)
	}
	if alloc.lastDesc.Width != grownW || alloc.lastDesc.Height != grownH {
		t.Errorf("backing allocated at %dx%d, want final extent %dx%d",
			alloc.lastDesc.Width, alloc.lastDesc.Height, grownW, grownH)
	}
	if !alloc.lastDesc.Renderable {
		t.Error("renderable atlas should allocate a render target")
	}

	// The fully-lazy proxy now reports the resolved extent.
	if a.Proxy().Width() != grownW || a.Proxy().Height() != grownH {
		t.Errorf("proxy dims = %dx%d, want %dx%d",
			a.Proxy().Width(), a.Proxy().Height(), grownW, grownH)
	}

	// Packing is frozen once the texture exists.
	if _, _, ok := a.AddRect(5, 5); ok {
		t.Error("AddRect after instantiation should be rejected")
	}
}

func TestAtlasInstantiateWithoutAllocator(t *testing.T) {
	a, pp := newTestAtlas(t, Config{InitialSize: 32})
	if err := a.Instantiate(pp.Allocator()); !errors.Is(err, gpuproxy.ErrNoAllocator) {
		t.Errorf("Instantiate() = %v, want %v", err, gpuproxy.ErrNoAllocator)
	}
}

func TestAtlasRelease(t *testing.T) {
	a, _ := newTestAtlas(t, Config{InitialSize: 32})
	a.Release()
	if !a.Proxy().IsReleased() {
		t.Error("Release() should release the proxy")
	}
	if _, _, ok := a.AddRect(4, 4); ok {
		t.Error("AddRect after release should be rejected")
	}
}
