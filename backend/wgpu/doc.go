// Package wgpu implements the gpuproxy backing contract on the gogpu/wgpu
// HAL: an Allocator that creates and uploads hal textures, a keyed
// ResourceCache with an LRU byte budget, and device bring-up helpers that
// open a HAL device directly or borrow one from a gpucontext provider.
//
// The package sits on the allocator side of the proxy seam. Proxies and
// their provider never import it; they see only the gpuproxy.Allocator and
// gpuproxy.ResourceCache interfaces this package satisfies.
package wgpu
