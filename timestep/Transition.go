package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition packages together the data of a single environmental
// transition: the state, the action taken in that state, the resulting
// reward, discount, and next state, and the action to be taken in the
// next state. A Transition also records how the episode stood once the
// action was taken, so that consumers can tell transitions that ended
// an episode apart from those that did not, and terminal ends apart
// from timeouts.
type Transition struct {
	State      *mat.VecDense
	Action     *mat.VecDense
	Reward     float64
	Discount   float64
	NextState  *mat.VecDense
	NextAction *mat.VecDense

	nextStepType StepType
	nextEndType  EndType
}

// NewTransition returns a new Transition constructed from two
// consecutive TimeSteps and the actions taken at each. The nextAction
// argument may be nil for algorithms that do not use it.
func NewTransition(step TimeStep, action *mat.VecDense, nextStep TimeStep,
	nextAction *mat.VecDense) Transition {
	return Transition{
		State:        step.Observation,
		Action:       action,
		Reward:       nextStep.Reward,
		Discount:     nextStep.Discount,
		NextState:    nextStep.Observation,
		NextAction:   nextAction,
		nextStepType: nextStep.StepType,
		nextEndType:  nextStep.endType,
	}
}

// Done returns whether the transition ended its episode, for any
// reason
func (t Transition) Done() bool {
	return t.nextStepType == Last
}

// Terminal returns whether the transition ended its episode by
// reaching a terminal state. The value of the next state of a terminal
// transition is 0 by definition and should never be bootstrapped from.
func (t Transition) Terminal() bool {
	return t.Done() && t.nextEndType == TerminalStateReached
}

// Truncated returns whether the transition ended its episode by being
// cut off before a terminal state was reached. The next state of a
// truncated transition remains meaningful, and its value may be
// bootstrapped from when estimating returns.
func (t Transition) Truncated() bool {
	return t.Done() && t.nextEndType == Timeout
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Reward: %.2f  |  Discount: %.2f  |  "+
		"Done: %v  |  End: %v", t.Reward, t.Discount, t.Done(), t.nextEndType)
}
