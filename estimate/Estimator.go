// Package estimate implements return and advantage estimation over
// recorded trajectory segments.
//
// Given a trajectory segment and, optionally, predicted state values
// for each transition, an Estimator computes per-transition learning
// targets: discounted Monte-Carlo returns, n-step bootstrapped
// returns, or generalized advantage estimates GAE(λ). All estimation
// is a pure function of its inputs. An Estimator holds only its
// parameters γ and λ, retains no trajectory state between calls, and
// never mutates the segment or value arrays it is given, so a single
// Estimator may be shared freely across goroutines operating on
// disjoint segments.
//
// Care is taken to treat the two ways an episode can end differently.
// An episode that ends in a true terminal state has, by definition, a
// successor state with value 0, and the estimators here zero out the
// predicted successor value at such transitions. An episode that was
// merely cut off, by a time limit or by the edge of the collected
// data, remains meaningful beyond the cutoff, and the predicted
// successor value is kept so that the return can bootstrap from it.
// Conflating these two cases is a classic source of bias in
// implementations of advantage estimation.
package estimate

import (
	"fmt"

	"github.com/samuelfneumann/gorollout/trajectory"
	"github.com/samuelfneumann/gorollout/utils/floatutils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat"
)

// unitInterval is the legal range for both γ and λ
var unitInterval r1.Interval = r1.Interval{Min: 0.0, Max: 1.0}

// Estimator computes return and advantage estimates with discount
// factor γ and GAE mixing parameter λ
type Estimator struct {
	// Discount factor γ
	gamma float64

	// λ for GAE(λ) estimation, trading off bias and variance
	lambda float64
}

// New returns a new Estimator with discount factor gamma and mixing
// parameter lambda. New fails with an error if either parameter falls
// outside [0, 1].
func New(gamma, lambda float64) (*Estimator, error) {
	if !floatutils.WithinInterval(gamma, unitInterval) {
		return nil, fmt.Errorf("new: discount factor must be in [%v, %v], "+
			"got %v: %w", unitInterval.Min, unitInterval.Max, gamma,
			ErrInvalidParameter)
	}
	if !floatutils.WithinInterval(lambda, unitInterval) {
		return nil, fmt.Errorf("new: mixing parameter must be in [%v, %v], "+
			"got %v: %w", unitInterval.Min, unitInterval.Max, lambda,
			ErrInvalidParameter)
	}
	return &Estimator{gamma: gamma, lambda: lambda}, nil
}

// Gamma returns the discount factor of the Estimator
func (e *Estimator) Gamma() float64 {
	return e.gamma
}

// Lambda returns the mixing parameter of the Estimator
func (e *Estimator) Lambda() float64 {
	return e.lambda
}

// ValueMask returns, for each transition in seg, whether the predicted
// value of the transition's successor state may be bootstrapped from.
// Bootstrapping is allowed unless the transition reached a true
// terminal state: transitions that were cut off by a time limit and
// transitions of a still-running episode keep their successor values.
// A transition that is somehow flagged both terminal and truncated is
// treated as truncated, so its successor value is preserved.
func ValueMask(seg *trajectory.Segment) []bool {
	mask := make([]bool, seg.Len())
	for i := range mask {
		mask[i] = seg.Truncated(i) || !seg.Done(i)
	}
	return mask
}

// maskedNextValues returns a copy of vNext with the entries at
// non-bootstrappable transitions zeroed out
func maskedNextValues(seg *trajectory.Segment, vNext []float64) []float64 {
	masked := make([]float64, len(vNext))
	for i, allowed := range ValueMask(seg) {
		if allowed {
			masked[i] = vNext[i]
		}
	}
	return masked
}

// EpisodicReturns computes the discounted Monte-Carlo return of every
// transition in seg:
//
//	G[i] = reward[i] + γ * G[i+1]
//
// accumulated backward from the end of the segment to its beginning
// and reset at every episode boundary. No value predictions are used,
// so the return of a partially recorded episode covers only its
// recorded rewards.
func (e *Estimator) EpisodicReturns(seg *trajectory.Segment) []float64 {
	returns := make([]float64, seg.Len())

	acc := 0.0
	for i := seg.Len() - 1; i >= 0; i-- {
		if seg.EndFlag(i) {
			acc = 0.0
		}
		acc = seg.Reward(i) + e.gamma*acc
		returns[i] = acc
	}
	return returns
}

// Advantages computes the generalized advantage estimate GAE(λ) of
// every transition in seg. The arrays vS and vNext hold the predicted
// values of each transition's state and successor state and must have
// length seg.Len(). For each transition the one-step TD residual is
//
//	δ[i] = reward[i] + γ * vNext[i] - vS[i]
//
// with vNext[i] zeroed at terminal transitions, and advantages are the
// exponentially weighted sums
//
//	advantage[i] = δ[i] + γλ * advantage[i+1]
//
// accumulated backward and reset at every episode boundary.
func (e *Estimator) Advantages(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, error) {
	if vS == nil || vNext == nil {
		return nil, fmt.Errorf("advantages: state and successor state "+
			"values are both required: %w", ErrInvalidParameter)
	}
	err := validateValues("advantages", seg, vS, vNext)
	if err != nil {
		return nil, err
	}

	masked := maskedNextValues(seg, vNext)
	advantages := make([]float64, seg.Len())

	gae := 0.0
	for i := seg.Len() - 1; i >= 0; i-- {
		delta := seg.Reward(i) + e.gamma*masked[i] - vS[i]
		if seg.EndFlag(i) {
			gae = delta
		} else {
			gae = delta + e.gamma*e.lambda*gae
		}
		advantages[i] = gae
	}
	return advantages, nil
}

// Returns computes the return and advantage estimates of every
// transition in seg.
//
// When both vS and vNext are nil, no bootstrapping is possible and
// Returns computes pure Monte-Carlo returns. This mode requires λ = 1
// and produces nil advantages.
//
// When vNext is given, Returns computes GAE(λ) advantages and the
// corresponding return targets
//
//	G[i] = advantage[i] + vS[i]
//
// In this mode vS may be nil, in which case it is reconstructed by
// shifting vNext one transition later. The reconstructed entries
// cancel out of the returns, which depend only on rewards and vNext,
// but the advantages are then measured against the shifted baseline.
func (e *Estimator) Returns(seg *trajectory.Segment, vS,
	vNext []float64) ([]float64, []float64, error) {
	if vNext == nil {
		if vS != nil {
			return nil, nil, fmt.Errorf("returns: successor state values "+
				"are required whenever state values are given: %w",
				ErrInvalidParameter)
		}
		if e.lambda != 1.0 {
			return nil, nil, fmt.Errorf("returns: mixing parameter must "+
				"be 1 when no value predictions are given, got %v: %w",
				e.lambda, ErrInvalidParameter)
		}
		return e.EpisodicReturns(seg), nil, nil
	}

	if vS == nil {
		vS = shiftedBaseline(vNext)
	}

	advantages, err := e.Advantages(seg, vS, vNext)
	if err != nil {
		return nil, nil, fmt.Errorf("returns: %w", err)
	}

	returns := make([]float64, seg.Len())
	floats.AddTo(returns, advantages, vS)
	return returns, advantages, nil
}

// NStepReturns computes the n-step bootstrapped return of every
// transition in seg:
//
//	G[i] = reward[i] + γ*reward[i+1] + ... + γⁿ⁻¹*reward[i+n-1]
//	        + γⁿ * vNext[i+n-1]
//
// with the lookahead stopping early at episode boundaries. The
// bootstrap value is zeroed at terminal transitions and preserved at
// truncated or still-running ones, exactly as in Advantages. The array
// vNext must have length seg.Len() and n must be at least 1.
func (e *Estimator) NStepReturns(seg *trajectory.Segment, n int,
	vNext []float64) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("nStepReturns: n must be at least 1, got "+
			"%v: %w", n, ErrInvalidParameter)
	}
	if vNext == nil {
		return nil, fmt.Errorf("nStepReturns: successor state values are "+
			"required: %w", ErrInvalidParameter)
	}
	err := validateValues("nStepReturns", seg, nil, vNext)
	if err != nil {
		return nil, err
	}

	masked := maskedNextValues(seg, vNext)
	returns := make([]float64, seg.Len())

	for i := range returns {
		ret := 0.0
		discount := 1.0

		// A non-empty segment always ends at an episode boundary, so
		// the scan below can never run past the end of the segment
		for k := 0; k < n; k++ {
			j := i + k
			ret += discount * seg.Reward(j)
			discount *= e.gamma
			if seg.EndFlag(j) || k == n-1 {
				ret += discount * masked[j]
				break
			}
		}
		returns[i] = ret
	}
	return returns, nil
}

// Standardize returns a copy of values standardized to mean 0 and
// standard deviation 1, which is commonly applied to advantages before
// they are used in a policy gradient. Sequences with fewer than two
// elements have no spread to normalize by and are mapped to zeros.
func Standardize(values []float64) []float64 {
	standardized := make([]float64, len(values))
	if len(values) < 2 {
		return standardized
	}

	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil) + 1e-8

	copy(standardized, values)
	floats.AddConst(-mean, standardized)
	floats.Scale(1.0/std, standardized)
	return standardized
}

// shiftedBaseline reconstructs state values from successor state
// values by shifting them one transition later. The first transition
// has no predecessor in the segment and wraps around to the final
// successor value, which is harmless for return computation since a
// transition's own baseline always cancels out of its return.
func shiftedBaseline(vNext []float64) []float64 {
	vS := make([]float64, len(vNext))
	if len(vNext) == 0 {
		return vS
	}
	vS[0] = vNext[len(vNext)-1]
	copy(vS[1:], vNext[:len(vNext)-1])
	return vS
}

// validateValues ensures that any non-nil value array matches the
// segment in length, failing with a shape mismatch error otherwise
func validateValues(op string, seg *trajectory.Segment, vS,
	vNext []float64) error {
	if vS != nil && len(vS) != seg.Len() {
		return fmt.Errorf("%v: state values length differs from segment "+
			"\n\twant(%v) \n\thave(%v): %w", op, seg.Len(), len(vS),
			trajectory.ErrShapeMismatch)
	}
	if vNext != nil && len(vNext) != seg.Len() {
		return fmt.Errorf("%v: successor state values length differs from "+
			"segment \n\twant(%v) \n\thave(%v): %w", op, seg.Len(),
			len(vNext), trajectory.ErrShapeMismatch)
	}
	return nil
}
