package gpuproxy

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// MipLevelCount returns the number of levels in a full mip chain for a
// base level of w x h, counting the base and running down to 1x1.
// Returns 0 for non-positive dimensions.
func MipLevelCount(w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	n := 1
	for w > 1 || h > 1 {
		w = max(1, w/2)
		h = max(1, h/2)
		n++
	}
	return n
}

// BuildMipChain converts img to tight RGBA texels and downsamples it
// level by level to 1x1, halving each dimension per level. The chain is
// built on the CPU so the allocator only has to upload, never synthesize.
func BuildMipChain(img image.Image) ([]TexelLevel, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}

	cur := toRGBA(img)
	levels := make([]TexelLevel, 0, MipLevelCount(w, h))
	levels = append(levels, texelLevel(cur))
	for cur.Rect.Dx() > 1 || cur.Rect.Dy() > 1 {
		nw := max(1, cur.Rect.Dx()/2)
		nh := max(1, cur.Rect.Dy()/2)
		next := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.BiLinear.Scale(next, next.Bounds(), cur, cur.Bounds(), xdraw.Src, nil)
		levels = append(levels, texelLevel(next))
		cur = next
	}
	return levels, nil
}

// TexelsFromImage converts img to a single tight RGBA level.
func TexelsFromImage(img image.Image) TexelLevel {
	if img == nil {
		return TexelLevel{}
	}
	return texelLevel(toRGBA(img))
}

// toRGBA normalizes img to an RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba
}

func texelLevel(rgba *image.RGBA) TexelLevel {
	return TexelLevel{
		Pixels:   rgba.Pix,
		RowBytes: rgba.Stride,
		Width:    rgba.Rect.Dx(),
		Height:   rgba.Rect.Dy(),
	}
}

// CreateProxyFromImage converts img to RGBA texels and builds a
// data-bearing proxy. When mipmapped, a full CPU chain is attached so
// every level uploads at first instantiation.
func (pp *Provider) CreateProxyFromImage(img image.Image, mipmapped, budgeted bool) (*Proxy, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	b := img.Bounds()
	desc := SurfaceDesc{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    gputypes.TextureFormatRGBA8Unorm,
		MipMapped: mipmapped,
	}
	if mipmapped {
		levels, err := BuildMipChain(img)
		if err != nil {
			return nil, err
		}
		return pp.CreateTextureProxy(desc, budgeted, levels...)
	}
	return pp.CreateTextureProxy(desc, budgeted, TexelsFromImage(img))
}
