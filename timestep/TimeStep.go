// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the way in which an episode ended. Episodes may end
// by the environment reaching a terminal state or by some external
// condition cutting the episode off, such as a step limit expiring.
// The distinction matters when computing return estimates: the state
// following a terminal state has a value of 0 by definition, while the
// state following a cutoff retains its value and may be bootstrapped
// from.
type EndType int

const (
	// Nil denotes a step that does not end an episode
	Nil EndType = iota

	// TerminalStateReached denotes an episode that ended by the
	// environment reaching a terminal state
	TerminalStateReached

	// Timeout denotes an episode that was cut off by some external
	// condition such as a time limit, with the environment never
	// reaching a terminal state
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	default:
		return "Nil"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	endType     EndType
}

// New returns a new TimeStep. The returned TimeStep has an EndType of
// Nil; callers that construct the last step of an episode should
// record how the episode ended with SetEnd.
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{t, r, d, o, n, Nil}
}

// SetEnd records the way in which the episode ended at this TimeStep
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// End returns the way in which the episode ended at this TimeStep.
// For TimeSteps that are not the last in an episode, End returns Nil.
func (t *TimeStep) End() EndType {
	return t.endType
}

// TerminalEnd returns whether the TimeStep ends an episode by reaching
// a terminal state
func (t *TimeStep) TerminalEnd() bool {
	return t.Last() && t.endType == TerminalStateReached
}

// TimeoutEnd returns whether the TimeStep ends an episode by being cut
// off before any terminal state was reached
func (t *TimeStep) TimeoutEnd() bool {
	return t.Last() && t.endType == Timeout
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
