package estimate

import "github.com/samuelfneumann/gorollout/trajectory"

// GAEConfig implements a configuration of generalized advantage
// estimation GAE(λ).
type GAEConfig struct {
	Gamma  float64
	Lambda float64
}

// NewGAE returns a new generalized advantage estimation method with
// discount factor gamma and mixing parameter lambda
func NewGAE(gamma, lambda float64) (*Method, error) {
	config := GAEConfig{
		Gamma:  gamma,
		Lambda: lambda,
	}

	return newMethod(config)
}

// Type returns the type of estimation method described by the
// configuration.
func (g GAEConfig) Type() Type {
	return GAE
}

// Create returns the estimation method as a Targeter
func (g GAEConfig) Create() (Targeter, error) {
	estimator, err := New(g.Gamma, g.Lambda)
	if err != nil {
		return nil, err
	}

	return gae{estimator}, nil
}

// gae computes GAE(λ) advantages and the corresponding return targets
type gae struct {
	estimator *Estimator
}

func (g gae) Targets(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, []float64, error) {
	return g.estimator.Returns(seg, vS, vNext)
}
