package estimate

import (
	"fmt"

	"github.com/samuelfneumann/gorollout/trajectory"
)

// NStepConfig implements a configuration of n-step bootstrapped return
// estimation.
type NStepConfig struct {
	Gamma float64
	N     int
}

// NewNStep returns a new n-step return estimation method with discount
// factor gamma and lookahead n
func NewNStep(gamma float64, n int) (*Method, error) {
	config := NStepConfig{
		Gamma: gamma,
		N:     n,
	}

	return newMethod(config)
}

// Type returns the type of estimation method described by the
// configuration.
func (n NStepConfig) Type() Type {
	return NStep
}

// Create returns the estimation method as a Targeter
func (n NStepConfig) Create() (Targeter, error) {
	if n.N < 1 {
		return nil, fmt.Errorf("create: n must be at least 1, got %v: %w",
			n.N, ErrInvalidParameter)
	}

	estimator, err := New(n.Gamma, 1.0)
	if err != nil {
		return nil, err
	}

	return nStep{estimator: estimator, n: n.N}, nil
}

// nStep computes n-step bootstrapped return targets. State value
// predictions vS are ignored and no advantages are produced.
type nStep struct {
	estimator *Estimator
	n         int
}

func (s nStep) Targets(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, []float64, error) {
	returns, err := s.estimator.NStepReturns(seg, s.n, vNext)
	return returns, nil, err
}
