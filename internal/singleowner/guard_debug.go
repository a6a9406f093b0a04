//go:build singleowner

package singleowner

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"
)

// Guard is the debug-build variant: it records the owning goroutine and
// panics when a second goroutine enters an owned section. Reentrant on
// the owning goroutine. The zero value is ready to use.
type Guard struct {
	mu    sync.Mutex
	gid   uint64
	depth int
}

// Acquire marks the start of an owned section.
func (g *Guard) Acquire() {
	id := goroutineID()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.depth > 0 && g.gid != id {
		panic(fmt.Sprintf("singleowner: goroutine %d entered while goroutine %d owns the value", id, g.gid))
	}
	g.gid = id
	g.depth++
}

// Release marks the end of an owned section.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.depth--
	if g.depth < 0 {
		panic("singleowner: Release without matching Acquire")
	}
	if g.depth == 0 {
		g.gid = 0
	}
}

// goroutineID parses the current goroutine's id out of the runtime stack
// header ("goroutine N [state]:"). The runtime exposes no direct API for
// it, which is also why this only runs under the debug tag.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	i := bytes.IndexByte(s, ' ')
	if i < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(s[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
