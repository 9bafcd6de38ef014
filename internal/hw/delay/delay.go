// Package delay provides the blocking wait used for timed manoeuvres.
package delay

import (
	"sync"
	"time"

	"github.com/cjeanneret/RoverGo/internal/debug"
)

// Sleeper blocks the calling goroutine for d.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Real sleeps on the wall clock.
type Real struct{}

func (Real) Sleep(d time.Duration) {
	debug.Trace("delay %v", d)
	time.Sleep(d)
}

// Recorder returns immediately and remembers every requested duration.
type Recorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *Recorder) Sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
}

// Sleeps returns a copy of the recorded durations.
func (r *Recorder) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

// Total returns the sum of the recorded durations.
func (r *Recorder) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Sleeps() {
		total += d
	}
	return total
}
