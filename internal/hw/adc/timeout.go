package adc

import (
	"fmt"
	"time"
)

type timeoutReader struct {
	Reader
	timeout time.Duration
	busy    chan struct{} // holds a token while a conversion is in flight
}

// WithTimeout bounds every conversion of r to d. A conversion that never
// completes is abandoned and ErrConversionTimeout is returned instead of
// blocking the caller forever. d <= 0 returns r unchanged.
//
// An abandoned conversion keeps its goroutine blocked inside r until r
// returns. Reads made meanwhile fail at once with ErrConversionTimeout
// instead of starting another one, so at most one goroutine is stuck.
func WithTimeout(r Reader, d time.Duration) Reader {
	if d <= 0 {
		return r
	}
	return &timeoutReader{Reader: r, timeout: d, busy: make(chan struct{}, 1)}
}

type result struct {
	v   Sample
	err error
}

func (t *timeoutReader) Read(ch Channel) (Sample, error) {
	select {
	case t.busy <- struct{}{}:
	default:
		return 0, fmt.Errorf("channel %d: previous conversion still pending: %w", ch, ErrConversionTimeout)
	}

	done := make(chan result, 1)
	go func() {
		v, err := t.Reader.Read(ch)
		<-t.busy
		done <- result{v, err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.v, r.err
	case <-timer.C:
		return 0, fmt.Errorf("channel %d after %v: %w", ch, t.timeout, ErrConversionTimeout)
	}
}
