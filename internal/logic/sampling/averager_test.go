package sampling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/RoverGo/internal/hw/adc"
)

// recordingReader returns scripted values and records the channel order.
type recordingReader struct {
	values map[adc.Channel][]adc.Sample
	order  []adc.Channel
	failAt int // 1-based read index that fails, 0 = never
}

func (r *recordingReader) Read(ch adc.Channel) (adc.Sample, error) {
	r.order = append(r.order, ch)
	if r.failAt > 0 && len(r.order) == r.failAt {
		return 0, errors.New("bus error")
	}
	vals := r.values[ch]
	n := 0
	for _, c := range r.order[:len(r.order)-1] {
		if c == ch {
			n++
		}
	}
	return vals[n%len(vals)], nil
}

func (r *recordingReader) Close() error { return nil }

func TestAverage_Mean(t *testing.T) {
	cases := []struct {
		name   string
		values []adc.Sample
		want   float64
	}{
		{"constant", []adc.Sample{500}, 500},
		{"ramp", []adc.Sample{0, 100, 200, 300, 400, 500, 600, 700, 800, 900}, 450},
		{"fractional", []adc.Sample{1, 2}, 1.5},
		{"full_scale", []adc.Sample{1023}, 1023},
		{"odd", []adc.Sample{3, 3, 3, 3, 3, 3, 3, 3, 3, 4}, 3.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &recordingReader{values: map[adc.Channel][]adc.Sample{2: tc.values}}
			got, err := NewAverager(r, 10).Average(2)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-6)
			assert.Len(t, r.order, 10)
		})
	}
}

func TestNewAverager_DefaultCount(t *testing.T) {
	r := &recordingReader{values: map[adc.Channel][]adc.Sample{0: {7}}}
	for _, n := range []int{0, -3} {
		assert.Equal(t, DefaultCount, NewAverager(r, n).Count())
	}
	assert.Equal(t, 4, NewAverager(r, 4).Count())
}

func TestAverage_ReadErrorAborts(t *testing.T) {
	r := &recordingReader{values: map[adc.Channel][]adc.Sample{0: {7}}, failAt: 3}
	_, err := NewAverager(r, 10).Average(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample channel 0")
	assert.Len(t, r.order, 3, "no reads after the failure")
}

func TestAverageAll_Interleaved(t *testing.T) {
	r := &recordingReader{values: map[adc.Channel][]adc.Sample{
		0: {200},
		1: {10, 20},
		2: {600},
	}}
	got, err := NewAverager(r, 4).AverageAll(0, 1, 2)
	require.NoError(t, err)

	assert.InDelta(t, 200, got[0], 1e-6)
	assert.InDelta(t, 15, got[1], 1e-6)
	assert.InDelta(t, 600, got[2], 1e-6)
	assert.Equal(t, []adc.Channel{0, 1, 2, 0, 1, 2, 0, 1, 2, 0, 1, 2}, r.order)
}

func TestAverageAll_WithMockReader(t *testing.T) {
	m := adc.NewMockReader(0)
	m.Set(3, 100, 300)
	m.Set(4, 900)

	got, err := NewAverager(m, 10).AverageAll(3, 4)
	require.NoError(t, err)
	assert.InDelta(t, 200, got[0], 1e-6)
	assert.InDelta(t, 900, got[1], 1e-6)
	assert.Equal(t, 10, m.Reads(3))
}

func TestAverageAll_Error(t *testing.T) {
	r := &recordingReader{values: map[adc.Channel][]adc.Sample{0: {1}, 1: {1}}, failAt: 4}
	got, err := NewAverager(r, 10).AverageAll(0, 1)
	assert.Error(t, err)
	assert.Nil(t, got)
}
