package frame

import "fmt"

// State is the position of a frame slot in the acquire, record, submit, present cycle.
type State int

const (
	Idle State = iota
	Acquiring
	Recording
	Submitted
	Presenting
)

var stateNames = map[State]string{
	Idle:       "Idle",
	Acquiring:  "Acquiring",
	Recording:  "Recording",
	Submitted:  "Submitted",
	Presenting: "Presenting",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return name
}
