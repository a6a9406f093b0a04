package gpuproxy

import (
	"sync"
	"testing"
)

func TestGenerateDomainUnique(t *testing.T) {
	d1 := GenerateDomain()
	d2 := GenerateDomain()
	if d1 == d2 {
		t.Errorf("GenerateDomain() returned %d twice", d1)
	}
	if d1 == 0 || d2 == 0 {
		t.Error("GenerateDomain() returned the reserved zero domain")
	}
}

func TestGenerateDomainConcurrent(t *testing.T) {
	const goroutines = 50
	domains := make([]Domain, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			domains[i] = GenerateDomain()
		}()
	}
	wg.Wait()

	seen := make(map[Domain]bool, goroutines)
	for _, d := range domains {
		if seen[d] {
			t.Fatalf("domain %d issued twice", d)
		}
		seen[d] = true
	}
}

func TestUniqueKeyZeroInvalid(t *testing.T) {
	var k UniqueKey
	if k.IsValid() {
		t.Error("zero UniqueKey should be invalid")
	}
	if got := k.String(); got != "key(invalid)" {
		t.Errorf("String() = %q, want %q", got, "key(invalid)")
	}
}

func TestKeyBuilderDeterministic(t *testing.T) {
	domain := GenerateDomain()

	build := func() UniqueKey {
		return NewKeyBuilder(domain).
			AddUint32(7).
			AddUint64(0xDEADBEEF).
			AddBool(true).
			AddString("tile").
			Build()
	}

	k1 := build()
	k2 := build()
	if k1 != k2 {
		t.Error("identical builds should compare equal")
	}
	if k1.Hash() != k2.Hash() {
		t.Errorf("Hash() = %x and %x, want equal", k1.Hash(), k2.Hash())
	}
	if !k1.IsValid() {
		t.Error("built key should be valid")
	}
	if k1.Domain() != domain {
		t.Errorf("Domain() = %d, want %d", k1.Domain(), domain)
	}
}

func TestKeyBuilderDistinguishesContent(t *testing.T) {
	domain := GenerateDomain()

	tests := []struct {
		name string
		a, b UniqueKey
	}{
		{
			name: "different uint32",
			a:    NewKeyBuilder(domain).AddUint32(1).Build(),
			b:    NewKeyBuilder(domain).AddUint32(2).Build(),
		},
		{
			name: "different bool",
			a:    NewKeyBuilder(domain).AddBool(true).Build(),
			b:    NewKeyBuilder(domain).AddBool(false).Build(),
		},
		{
			name: "string boundary shift",
			a:    NewKeyBuilder(domain).AddString("ab").AddString("c").Build(),
			b:    NewKeyBuilder(domain).AddString("a").AddString("bc").Build(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a == tt.b {
				t.Error("keys with different content should differ")
			}
		})
	}
}

func TestKeyBuilderDomainSeparation(t *testing.T) {
	d1 := GenerateDomain()
	d2 := GenerateDomain()

	k1 := NewKeyBuilder(d1).AddUint32(42).Build()
	k2 := NewKeyBuilder(d2).AddUint32(42).Build()
	if k1 == k2 {
		t.Error("same data in different domains should produce different keys")
	}
}

func TestMakeUniqueKey(t *testing.T) {
	domain := GenerateDomain()
	data := []byte{1, 2, 3, 4}

	k1 := MakeUniqueKey(domain, data)
	k2 := MakeUniqueKey(domain, data)
	if k1 != k2 {
		t.Error("MakeUniqueKey with identical bytes should compare equal")
	}

	// The key must not alias the caller's slice.
	data[0] = 99
	k3 := MakeUniqueKey(domain, data)
	if k1 == k3 {
		t.Error("mutating the source slice should not affect existing keys")
	}
}

func TestUniqueKeyAsMapKey(t *testing.T) {
	domain := GenerateDomain()
	m := make(map[UniqueKey]int)

	k := NewKeyBuilder(domain).AddUint32(5).AddString("atlas").Build()
	m[k] = 1

	lookup := NewKeyBuilder(domain).AddUint32(5).AddString("atlas").Build()
	if got, ok := m[lookup]; !ok || got != 1 {
		t.Errorf("map lookup via rebuilt key = (%d, %v), want (1, true)", got, ok)
	}
}

func BenchmarkKeyBuilder(b *testing.B) {
	domain := GenerateDomain()
	b.ReportAllocs()
	for b.Loop() {
		_ = NewKeyBuilder(domain).
			AddUint32(512).
			AddUint32(512).
			AddBool(true).
			Build()
	}
}
