// Package atlas packs small rectangles into one lazily allocated GPU
// surface. Placement happens at record time on the CPU; the backing
// texture is created at the atlas's final grown size only when its proxy
// is instantiated, so packing can run far ahead of a live device.
package atlas

// Skyline is a rectangle packer that keeps a monotone horizon of placed
// rectangles and slots each new one at the lowest position it fits.
// Coordinates grow rightward and downward from the top-left corner.
//
// The zero value is not usable; construct with NewSkyline. Skyline is not
// safe for concurrent use.
type Skyline struct {
	width  int
	height int
	segs   []skylineSeg
	area   int
}

// skylineSeg is one horizontal span of the horizon: rectangles placed in
// [x, x+width) must sit at or below y.
type skylineSeg struct {
	x, y, width int
}

// NewSkyline creates a packer for a w x h area.
func NewSkyline(w, h int) *Skyline {
	s := &Skyline{width: w, height: h}
	s.Reset()
	return s
}

// Width returns the packing area width.
func (s *Skyline) Width() int { return s.width }

// Height returns the packing area height.
func (s *Skyline) Height() int { return s.height }

// Reset forgets all placements.
func (s *Skyline) Reset() {
	s.area = 0
	s.segs = s.segs[:0]
	s.segs = append(s.segs, skylineSeg{x: 0, y: 0, width: s.width})
}

// PercentFull returns the fraction of the area covered by placed
// rectangles, in [0, 1].
func (s *Skyline) PercentFull() float64 {
	return float64(s.area) / float64(s.width*s.height)
}

// Add places a w x h rectangle and returns its top-left corner. ok is
// false when no position fits; the packer is unchanged in that case.
func (s *Skyline) Add(w, h int) (x, y int, ok bool) {
	if w <= 0 || h <= 0 || w > s.width || h > s.height {
		return 0, 0, false
	}

	// Lowest resulting y wins; ties go to the narrower segment, which
	// preserves wide spans for wide rectangles.
	bestIdx := -1
	bestX := 0
	bestY := s.height + 1
	bestWidth := s.width + 1
	for i := range s.segs {
		top, fits := s.fitsAt(i, w, h)
		if !fits {
			continue
		}
		if top < bestY || (top == bestY && s.segs[i].width < bestWidth) {
			bestIdx = i
			bestX = s.segs[i].x
			bestY = top
			bestWidth = s.segs[i].width
		}
	}
	if bestIdx < 0 {
		return 0, 0, false
	}

	s.place(bestIdx, bestX, bestY, w, h)
	s.area += w * h
	return bestX, bestY, true
}

// fitsAt reports whether a w x h rectangle starting at segment i fits,
// and the y it would rest on: the maximum height of every segment the
// rectangle spans.
func (s *Skyline) fitsAt(i, w, h int) (int, bool) {
	x := s.segs[i].x
	if x+w > s.width {
		return 0, false
	}
	y := s.segs[i].y
	widthLeft := w
	for widthLeft > 0 {
		y = max(y, s.segs[i].y)
		if y+h > s.height {
			return 0, false
		}
		widthLeft -= s.segs[i].width
		i++
		if widthLeft > 0 && i >= len(s.segs) {
			return 0, false
		}
	}
	return y, true
}

// place raises the horizon over [x, x+w) to y+h: a new segment is
// inserted, spans it shadows are shrunk away, and equal-height neighbors
// merge.
func (s *Skyline) place(idx, x, y, w, h int) {
	seg := skylineSeg{x: x, y: y + h, width: w}
	s.segs = append(s.segs, skylineSeg{})
	copy(s.segs[idx+1:], s.segs[idx:])
	s.segs[idx] = seg

	for i := idx + 1; i < len(s.segs); i++ {
		prev := &s.segs[i-1]
		cur := &s.segs[i]
		if cur.x >= prev.x+prev.width {
			break
		}
		shrink := prev.x + prev.width - cur.x
		cur.x += shrink
		cur.width -= shrink
		if cur.width > 0 {
			break
		}
		s.segs = append(s.segs[:i], s.segs[i+1:]...)
		i--
	}

	for i := 0; i < len(s.segs)-1; i++ {
		if s.segs[i].y != s.segs[i+1].y {
			continue
		}
		s.segs[i].width += s.segs[i+1].width
		s.segs = append(s.segs[:i+1], s.segs[i+2:]...)
		i--
	}
}
