package loop

import "maps"

// State describes the last completed tick. It is kept for diagnostics
// only; the control laws never read it.
type State struct {
	Tick     uint64             `json:"tick"`
	Mode     string             `json:"mode"`
	Decision string             `json:"decision"`
	Left     string             `json:"left"`  // last command written to the left motor
	Right    string             `json:"right"` // last command written to the right motor
	Reversed bool               `json:"reversed"`
	Readings map[string]float64 `json:"readings,omitempty"`
}

func (s State) clone() State {
	s.Readings = maps.Clone(s.Readings)
	return s
}
