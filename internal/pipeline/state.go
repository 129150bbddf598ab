package pipeline

import (
	"errors"
	"fmt"
)

// State is the stage a release is in.
type State int

const (
	Fetching State = iota
	Mapping
	Partitioning
	Loading
	Cleanup
	Done
	Aborted
)

var stateNames = [...]string{
	Fetching:     "FETCHING",
	Mapping:      "MAPPING",
	Partitioning: "PARTITIONING",
	Loading:      "LOADING",
	Cleanup:      "CLEANUP",
	Done:         "DONE",
	Aborted:      "ABORTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ErrAborted is matched by every error that stopped a run.
var ErrAborted = errors.New("run aborted")

// AbortError reports the release and stage at which a run stopped.
type AbortError struct {
	Release string
	State   State
	Err     error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("release %s aborted while %s: %v", e.Release, e.State, e.Err)
}

// Unwrap exposes both ErrAborted and the cause to errors.Is / errors.As.
func (e *AbortError) Unwrap() []error { return []error{ErrAborted, e.Err} }
