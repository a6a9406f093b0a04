package wgpu

import "testing"

func TestSpirvWords(t *testing.T) {
	// SPIR-V magic number 0x07230203 in little-endian bytes.
	b := []byte{0x03, 0x02, 0x23, 0x07, 0xff, 0x00, 0x00, 0x00}
	words := spirvWords(b)
	if len(words) != 2 {
		t.Fatalf("len(words) = %d, want 2", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want 0x07230203", words[0])
	}
	if words[1] != 0xff {
		t.Errorf("words[1] = %#x, want 0xff", words[1])
	}
}

func TestSpirvWordsDropsTrailingBytes(t *testing.T) {
	b := []byte{1, 0, 0, 0, 2, 0}
	words := spirvWords(b)
	if len(words) != 1 || words[0] != 1 {
		t.Errorf("spirvWords = %v, want [1]", words)
	}
}

func TestHashSourceStable(t *testing.T) {
	src := "@compute @workgroup_size(1) fn main() {}"
	if hashSource(src) != hashSource(src) {
		t.Error("hashSource not deterministic")
	}
	if hashSource(src) == hashSource(src+" ") {
		t.Error("hashSource collides on different sources")
	}
}

func TestNewShaderCacheNilDevice(t *testing.T) {
	if _, err := NewShaderCache(nil); err == nil {
		t.Error("NewShaderCache(nil) succeeded, want error")
	}
}
