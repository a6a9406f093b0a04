package gpuproxy

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync/atomic"
)

// Domain namespaces unique keys so independent subsystems cannot collide.
// Each subsystem that issues keys calls GenerateDomain once (typically in
// a package-level var) and builds all of its keys in that domain.
type Domain uint32

// domainCounter issues process-unique domains. Domain 0 is reserved for
// the invalid zero key.
var domainCounter atomic.Uint32

// GenerateDomain returns a new, process-unique key domain.
// Safe for concurrent use.
func GenerateDomain() Domain {
	return Domain(domainCounter.Add(1))
}

// UniqueKey identifies a proxy or backing resource for cross-module reuse.
// Keys are immutable value types built from typed words via KeyBuilder;
// two keys built from the same domain and data compare equal, so UniqueKey
// works directly as a map key. The zero UniqueKey is invalid.
type UniqueKey struct {
	domain Domain
	data   string
	hash   uint64
}

// MakeUniqueKey builds a key directly from raw bytes, for callers that
// already hold a serialized identity (e.g. a content hash).
func MakeUniqueKey(domain Domain, data []byte) UniqueKey {
	return UniqueKey{
		domain: domain,
		data:   string(data),
		hash:   hashKey(domain, data),
	}
}

// IsValid reports whether the key was built in a generated domain.
func (k UniqueKey) IsValid() bool { return k.domain != 0 }

// Domain returns the key's namespace.
func (k UniqueKey) Domain() Domain { return k.domain }

// Hash returns the precomputed FNV-1a hash over the key's domain and data.
func (k UniqueKey) Hash() uint64 { return k.hash }

// String returns a compact form for debug logging.
func (k UniqueKey) String() string {
	if !k.IsValid() {
		return "key(invalid)"
	}
	return fmt.Sprintf("key(%d:%016x)", k.domain, k.hash)
}

// KeyBuilder accumulates typed little-endian words into a UniqueKey.
// The Add methods return the builder so calls can be chained:
//
//	key := gpuproxy.NewKeyBuilder(domain).
//		AddUint32(atlasGeneration).
//		AddString("glyphs").
//		Build()
//
// A builder may be reused after Build; it keeps its accumulated words.
type KeyBuilder struct {
	domain Domain
	buf    []byte
}

// NewKeyBuilder starts a key in the given domain.
func NewKeyBuilder(domain Domain) *KeyBuilder {
	return &KeyBuilder{domain: domain}
}

// AddUint32 appends a 32-bit word.
func (b *KeyBuilder) AddUint32(v uint32) *KeyBuilder {
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], v)
	b.buf = append(b.buf, w[:]...)
	return b
}

// AddUint64 appends a 64-bit word.
func (b *KeyBuilder) AddUint64(v uint64) *KeyBuilder {
	var w [8]byte
	binary.LittleEndian.PutUint64(w[:], v)
	b.buf = append(b.buf, w[:]...)
	return b
}

// AddBool appends a boolean as a single byte.
func (b *KeyBuilder) AddBool(v bool) *KeyBuilder {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	return b
}

// AddString appends a length-prefixed string, so "ab"+"c" and "a"+"bc"
// produce different keys.
func (b *KeyBuilder) AddString(s string) *KeyBuilder {
	b.AddUint32(uint32(len(s)))
	b.buf = append(b.buf, s...)
	return b
}

// Build finalizes the accumulated words into a UniqueKey.
func (b *KeyBuilder) Build() UniqueKey {
	return UniqueKey{
		domain: b.domain,
		data:   string(b.buf),
		hash:   hashKey(b.domain, b.buf),
	}
}

// hashKey computes FNV-1a over the domain followed by the key data.
func hashKey(domain Domain, data []byte) uint64 {
	h := fnv.New64a()
	var dw [4]byte
	binary.LittleEndian.PutUint32(dw[:], uint32(domain))
	_, _ = h.Write(dw[:])
	_, _ = h.Write(data)
	return h.Sum64()
}
