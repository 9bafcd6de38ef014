package delay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	start := time.Now()
	r.Sleep(450 * time.Millisecond)
	r.Sleep(50 * time.Millisecond)

	assert.Less(t, time.Since(start), 100*time.Millisecond, "recorder must not block")
	assert.Equal(t, []time.Duration{450 * time.Millisecond, 50 * time.Millisecond}, r.Sleeps())
	assert.Equal(t, 500*time.Millisecond, r.Total())
}

func TestReal_Blocks(t *testing.T) {
	start := time.Now()
	Real{}.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
