package sampling

import (
	"fmt"

	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
)

// DefaultCount is the number of conversions averaged per reading.
const DefaultCount = 10

// Averager smooths sensor noise by averaging a fixed number of
// conversions taken within one tick. There is no state across calls.
type Averager struct {
	reader adc.Reader
	count  int
}

// NewAverager creates an averager; count <= 0 falls back to DefaultCount.
func NewAverager(r adc.Reader, count int) *Averager {
	if count <= 0 {
		count = DefaultCount
	}
	return &Averager{reader: r, count: count}
}

// Count returns the number of conversions per reading.
func (a *Averager) Count() int {
	return a.count
}

// Average reads ch count times back to back and returns the mean.
func (a *Averager) Average(ch adc.Channel) (float64, error) {
	var sum float64
	for i := 0; i < a.count; i++ {
		s, err := a.reader.Read(ch)
		if err != nil {
			return 0, fmt.Errorf("sample channel %d: %w", ch, err)
		}
		sum += float64(s)
	}
	mean := sum / float64(a.count)
	debug.Verbose("Channel %d: mean of %d = %.2f", ch, a.count, mean)
	return mean, nil
}

// AverageAll acquires several channels in interleaved rounds, one
// conversion per channel per round, and returns one mean per channel in
// the order given.
func (a *Averager) AverageAll(chs ...adc.Channel) ([]float64, error) {
	sums := make([]float64, len(chs))
	for round := 0; round < a.count; round++ {
		for i, ch := range chs {
			s, err := a.reader.Read(ch)
			if err != nil {
				return nil, fmt.Errorf("sample channel %d: %w", ch, err)
			}
			sums[i] += float64(s)
		}
	}
	for i := range sums {
		sums[i] /= float64(a.count)
		debug.Verbose("Channel %d: mean of %d = %.2f", chs[i], a.count, sums[i])
	}
	return sums, nil
}
