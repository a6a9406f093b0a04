//go:build singleowner

package singleowner

import (
	"sync"
	"testing"
)

func TestGuardPanicsOnSecondGoroutine(t *testing.T) {
	var g Guard
	g.Acquire()
	defer g.Release()

	panicked := make(chan bool, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			panicked <- recover() != nil
		}()
		g.Acquire()
		g.Release()
	}()
	wg.Wait()

	if !<-panicked {
		t.Error("Acquire from a second goroutine should panic while owned")
	}
}

func TestGuardHandoffBetweenGoroutines(t *testing.T) {
	var g Guard
	g.Acquire()
	g.Release()

	// Once released, another goroutine may take ownership.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Acquire after release panicked: %v", r)
			}
			close(done)
		}()
		g.Acquire()
		g.Release()
	}()
	<-done
}

func TestGuardReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Release without Acquire should panic")
		}
	}()
	var g Guard
	g.Release()
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	if id == 0 {
		t.Fatal("goroutineID() = 0, want a real id")
	}
	if got := goroutineID(); got != id {
		t.Errorf("goroutineID() changed within one goroutine: %d then %d", id, got)
	}
}
