package estimate

import "github.com/samuelfneumann/gorollout/trajectory"

// MonteCarloConfig implements a configuration of pure Monte-Carlo
// return estimation.
type MonteCarloConfig struct {
	Gamma float64
}

// NewMonteCarlo returns a new Monte-Carlo return estimation method
// with discount factor gamma
func NewMonteCarlo(gamma float64) (*Method, error) {
	config := MonteCarloConfig{
		Gamma: gamma,
	}

	return newMethod(config)
}

// Type returns the type of estimation method described by the
// configuration.
func (m MonteCarloConfig) Type() Type {
	return MonteCarlo
}

// Create returns the estimation method as a Targeter
func (m MonteCarloConfig) Create() (Targeter, error) {
	estimator, err := New(m.Gamma, 1.0)
	if err != nil {
		return nil, err
	}

	return monteCarlo{estimator}, nil
}

// monteCarlo computes discounted Monte-Carlo return targets. Value
// predictions are ignored, no bootstrapping occurs, and no advantages
// are produced.
type monteCarlo struct {
	estimator *Estimator
}

func (m monteCarlo) Targets(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, []float64, error) {
	return m.estimator.EpisodicReturns(seg), nil, nil
}
