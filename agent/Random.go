package agent

import (
	"fmt"

	"github.com/samuelfneumann/gorollout/timestep"
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformRandom implements a Policy that selects actions uniformly at
// random within fixed bounds, ignoring the state observation. It is
// commonly used as a behaviour policy to seed a replay buffer before
// learning begins.
type UniformRandom struct {
	bounds []r1.Interval
	rand   *distmv.Uniform
	eval   bool
}

// NewUniformRandom returns a new UniformRandom policy which selects
// each action dimension from the corresponding interval in bounds.
func NewUniformRandom(bounds []r1.Interval, seed uint64) (*UniformRandom, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("newuniformrandom: at least one action " +
			"dimension is required")
	}
	for _, bound := range bounds {
		if bound.Min > bound.Max {
			return nil, fmt.Errorf("newuniformrandom: interval min (%v) "+
				"is larger than interval max (%v)", bound.Min, bound.Max)
		}
	}

	source := rand.NewSource(seed)
	return &UniformRandom{
		bounds: bounds,
		rand:   distmv.NewUniform(bounds, source),
	}, nil
}

// SelectAction selects an action at random, ignoring t
func (u *UniformRandom) SelectAction(t timestep.TimeStep) *mat.VecDense {
	return mat.NewVecDense(len(u.bounds), u.rand.Rand(nil))
}

// ActionDims gets the number of action dimensions the policy selects
// actions over
func (u *UniformRandom) ActionDims() int {
	return len(u.bounds)
}

// Eval sets the policy to evaluation mode
func (u *UniformRandom) Eval() {
	u.eval = true
}

// Train sets the policy to training mode
func (u *UniformRandom) Train() {
	u.eval = false
}

// IsEval returns whether the policy is in evaluation mode
func (u *UniformRandom) IsEval() bool {
	return u.eval
}
