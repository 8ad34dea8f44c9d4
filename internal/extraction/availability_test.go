package extraction

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestAvailability_DemoteOnce(t *testing.T) {
	a := NewAvailability()
	if !a.Available() {
		t.Fatal("new Availability should start available")
	}

	var transitions atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Demote() {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := transitions.Load(); got != 1 {
		t.Errorf("Demote() transitions = %d, want 1", got)
	}
	if a.Available() {
		t.Error("Available() = true after Demote, want false")
	}
}
