package extraction

import "sync/atomic"

// Availability is the process-wide model health flag shared by every
// ExtractionService. It starts available and can only be demoted.
type Availability struct {
	demoted atomic.Bool
}

// defaultAvailability backs every ExtractionService built without an
// explicit handle.
var defaultAvailability = NewAvailability()

// NewAvailability returns a flag in the available state.
func NewAvailability() *Availability {
	return &Availability{}
}

// Available reports whether model calls may still be attempted.
func (a *Availability) Available() bool {
	return !a.demoted.Load()
}

// Demote marks the model unavailable for the rest of the process. It returns
// true only for the call that performed the transition.
func (a *Availability) Demote() bool {
	return a.demoted.CompareAndSwap(false, true)
}
