package atlas

import "testing"

type placed struct {
	x, y, w, h int
}

func overlaps(a, b placed) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

func TestSkylineFirstPlacement(t *testing.T) {
	s := NewSkyline(64, 64)
	x, y, ok := s.Add(10, 10)
	if !ok {
		t.Fatal("Add(10, 10) should fit in an empty 64x64 packer")
	}
	if x != 0 || y != 0 {
		t.Errorf("first placement = (%d, %d), want (0, 0)", x, y)
	}
}

func TestSkylinePacksExactGrid(t *testing.T) {
	s := NewSkyline(16, 16)
	var rects []placed
	for range 4 {
		x, y, ok := s.Add(8, 8)
		if !ok {
			t.Fatalf("packer rejected rect %d of 4", len(rects)+1)
		}
		rects = append(rects, placed{x, y, 8, 8})
	}
	if _, _, ok := s.Add(8, 8); ok {
		t.Error("a full packer should reject further rects")
	}
	checkDisjointInBounds(t, rects, 16, 16)

	if got := s.PercentFull(); got != 1.0 {
		t.Errorf("PercentFull() = %v, want 1.0", got)
	}
}

func TestSkylineRejectsOversize(t *testing.T) {
	s := NewSkyline(32, 32)
	cases := [][2]int{{33, 1}, {1, 33}, {0, 5}, {5, 0}, {-1, 4}}
	for _, c := range cases {
		if _, _, ok := s.Add(c[0], c[1]); ok {
			t.Errorf("Add(%d, %d) should be rejected", c[0], c[1])
		}
	}
}

func TestSkylineMixedSizesDisjoint(t *testing.T) {
	s := NewSkyline(128, 128)
	sizes := [][2]int{
		{40, 30}, {60, 10}, {10, 60}, {25, 25}, {25, 25},
		{50, 5}, {5, 50}, {32, 32}, {16, 48}, {48, 16},
		{7, 7}, {13, 21}, {21, 13}, {64, 8}, {8, 64},
	}
	var rects []placed
	for _, sz := range sizes {
		x, y, ok := s.Add(sz[0], sz[1])
		if !ok {
			continue
		}
		rects = append(rects, placed{x, y, sz[0], sz[1]})
	}
	if len(rects) < 10 {
		t.Fatalf("only %d of %d rects placed; packing is too weak", len(rects), len(sizes))
	}
	checkDisjointInBounds(t, rects, 128, 128)
}

func TestSkylineReset(t *testing.T) {
	s := NewSkyline(32, 32)
	if _, _, ok := s.Add(32, 32); !ok {
		t.Fatal("full-area rect should fit an empty packer")
	}
	if _, _, ok := s.Add(1, 1); ok {
		t.Fatal("nothing should fit after the full-area rect")
	}

	s.Reset()
	if got := s.PercentFull(); got != 0 {
		t.Errorf("PercentFull() after Reset = %v, want 0", got)
	}
	if _, _, ok := s.Add(32, 32); !ok {
		t.Error("full-area rect should fit again after Reset")
	}
}

func TestSkylinePercentFullGrows(t *testing.T) {
	s := NewSkyline(64, 64)
	prev := 0.0
	for range 8 {
		if _, _, ok := s.Add(16, 16); !ok {
			t.Fatal("rect unexpectedly rejected")
		}
		cur := s.PercentFull()
		if cur <= prev {
			t.Fatalf("PercentFull() = %v, want > %v", cur, prev)
		}
		prev = cur
	}
}

func checkDisjointInBounds(t *testing.T, rects []placed, w, h int) {
	t.Helper()
	for i, r := range rects {
		if r.x < 0 || r.y < 0 || r.x+r.w > w || r.y+r.h > h {
			t.Errorf("rect %d (%+v) escapes the %dx%d area", i, r, w, h)
		}
		for j := i + 1; j < len(rects); j++ {
			if overlaps(r, rects[j]) {
				t.Errorf("rect %d (%+v) overlaps rect %d (%+v)", i, r, j, rects[j])
			}
		}
	}
}
