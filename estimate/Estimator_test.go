package estimate

import (
	"testing"

	"github.com/samuelfneumann/gorollout/trajectory"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// newSegment constructs a Segment for testing, failing the test on
// error
func newSegment(t *testing.T, rewards []float64, done,
	truncated []bool) *trajectory.Segment {
	t.Helper()
	seg, err := trajectory.New(rewards, done, truncated)
	if err != nil {
		t.Fatal(err)
	}
	return seg
}

// randomSegment constructs a Segment of n transitions with rewards
// drawn uniformly from [-1, 1) and episode boundaries placed at random
func randomSegment(t *testing.T, n int, pDone float64,
	seed uint64) *trajectory.Segment {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	dist := distuv.Uniform{Min: -1.0, Max: 1.0, Src: rand.NewSource(seed + 1)}

	rewards := make([]float64, n)
	done := make([]bool, n)
	truncated := make([]bool, n)
	for i := range rewards {
		rewards[i] = dist.Rand()
		done[i] = rng.Float64() < pDone
		truncated[i] = done[i] && rng.Float64() < 0.3
	}
	return newSegment(t, rewards, done, truncated)
}

// naiveEpisodicReturns computes discounted Monte-Carlo returns by
// direct forward summation within each episode, as a reference for the
// backward recursion
func naiveEpisodicReturns(rewards []float64, endFlags []bool,
	gamma float64) []float64 {
	returns := make([]float64, len(rewards))
	for i := range rewards {
		discount := 1.0
		for j := i; ; j++ {
			returns[i] += discount * rewards[j]
			if endFlags[j] {
				break
			}
			discount *= gamma
		}
	}
	return returns
}

// TestEpisodicReturnsSuffixSums checks the undiscounted single-episode
// case, where each return is the plain sum of the remaining rewards
func TestEpisodicReturnsSuffixSums(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0, 1.0},
		[]bool{false, false, true}, []bool{false, false, false})

	estimator, err := New(1.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns := estimator.EpisodicReturns(seg)
	expected := []float64{3.0, 2.0, 1.0}
	if !floats.Equal(returns, expected) {
		t.Errorf("expected returns %v, got %v", expected, returns)
	}

	// For γ=1 and a single episode, return[i] = sum(reward[i:])
	rewards := []float64{2.0, -1.0, 0.5, 3.0, 1.0}
	seg = newSegment(t, rewards, []bool{false, false, false, false, true},
		make([]bool, 5))
	returns = estimator.EpisodicReturns(seg)
	for i := range rewards {
		if returns[i] != floats.Sum(rewards[i:]) {
			t.Errorf("expected return %v at index %v, got %v",
				floats.Sum(rewards[i:]), i, returns[i])
		}
	}
}

// TestEpisodicReturnsMatchesNaiveSummation checks the backward
// recursion against direct forward summation on random segments
// spanning many episodes
func TestEpisodicReturnsMatchesNaiveSummation(t *testing.T) {
	gammas := []float64{0.0, 0.5, 0.9, 1.0}
	for i, gamma := range gammas {
		seg := randomSegment(t, 250, 0.1, uint64(i)*17+3)

		estimator, err := New(gamma, 1.0)
		if err != nil {
			t.Fatal(err)
		}

		returns := estimator.EpisodicReturns(seg)
		expected := naiveEpisodicReturns(seg.Rewards(), seg.EndFlags(),
			gamma)
		if !floats.EqualApprox(returns, expected, 1e-10) {
			t.Errorf("gamma %v: backward recursion disagrees with naive "+
				"summation", gamma)
		}
	}
}

// TestEpisodicReturnsZeroGamma ensures that γ=0 degenerates to the
// immediate reward
func TestEpisodicReturnsZeroGamma(t *testing.T) {
	rewards := []float64{1.0, -2.0, 3.5, 0.0}
	seg := newSegment(t, rewards, []bool{false, true, false, false},
		make([]bool, 4))

	estimator, err := New(0.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns := estimator.EpisodicReturns(seg)
	if !floats.Equal(returns, rewards) {
		t.Errorf("expected returns %v, got %v", rewards, returns)
	}
}

// TestValueMask checks each combination of the done and truncated
// flags. Only strict termination forbids bootstrapping: cutoffs and
// still-running episodes keep their successor values, and a cutoff
// recorded on top of a done flag dominates it.
func TestValueMask(t *testing.T) {
	seg := newSegment(t, make([]float64, 4),
		[]bool{false, true, true, false},
		[]bool{false, false, true, true})

	mask := ValueMask(seg)
	expected := []bool{true, false, true, true}
	for i := range expected {
		if mask[i] != expected[i] {
			t.Errorf("index %v: expected bootstrap allowed to be %v, got "+
				"%v", i, expected[i], mask[i])
		}
	}
}

// TestReturnsZeroesTerminalBootstrap ensures that the successor value
// of a terminal transition contributes nothing to returns or
// advantages
func TestReturnsZeroesTerminalBootstrap(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0, 1.0},
		[]bool{false, false, true}, []bool{false, false, false})
	vS := []float64{0.0, 0.0, 0.0}

	estimator, err := New(1.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	// The value prediction 5 at the terminal transition must be masked
	// to 0, leaving pure Monte-Carlo returns
	returns, advantages, err := estimator.Returns(seg, vS,
		[]float64{0.0, 0.0, 5.0})
	if err != nil {
		t.Fatal(err)
	}

	expected := estimator.EpisodicReturns(seg)
	if !floats.Equal(returns, expected) {
		t.Errorf("expected returns %v, got %v", expected, returns)
	}
	if !floats.Equal(advantages, expected) {
		t.Errorf("expected advantages %v with a zero baseline, got %v",
			expected, advantages)
	}
}

// TestReturnsPreservesTruncatedBootstrap ensures that the successor
// value of a truncated transition is bootstrapped from, even though
// the transition also carries a done flag
func TestReturnsPreservesTruncatedBootstrap(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0, 1.0},
		[]bool{false, false, true}, []bool{false, false, true})

	estimator, err := New(1.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, _, err := estimator.Returns(seg, nil, []float64{0.0, 0.0, 5.0})
	if err != nil {
		t.Fatal(err)
	}

	// The cutoff value 5 bootstraps the final return to 1+5=6, and the
	// earlier returns accumulate it in turn
	expected := []float64{8.0, 7.0, 6.0}
	if !floats.Equal(returns, expected) {
		t.Errorf("expected returns %v, got %v", expected, returns)
	}
}

// TestReturnsEmptySegment ensures that estimating over no transitions
// is legal and produces empty outputs
func TestReturnsEmptySegment(t *testing.T) {
	seg := newSegment(t, []float64{}, []bool{}, []bool{})

	estimator, err := New(0.99, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, advantages, err := estimator.Returns(seg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(returns) != 0 || advantages != nil {
		t.Errorf("expected empty outputs, got returns %v and advantages "+
			"%v", returns, advantages)
	}

	returns, advantages, err = estimator.Returns(seg, []float64{},
		[]float64{})
	if err != nil {
		t.Fatal(err)
	}
	if len(returns) != 0 || len(advantages) != 0 {
		t.Errorf("expected empty outputs, got returns %v and advantages "+
			"%v", returns, advantages)
	}
}

// TestReturnsIdempotent ensures that estimation is a pure function of
// its inputs, with no state retained between calls
func TestReturnsIdempotent(t *testing.T) {
	seg := randomSegment(t, 100, 0.07, 11)
	dist := distuv.Uniform{Min: -2.0, Max: 2.0, Src: rand.NewSource(13)}
	vS := make([]float64, seg.Len())
	vNext := make([]float64, seg.Len())
	for i := range vS {
		vS[i] = dist.Rand()
		vNext[i] = dist.Rand()
	}

	estimator, err := New(0.99, 0.95)
	if err != nil {
		t.Fatal(err)
	}

	returns1, advantages1, err := estimator.Returns(seg, vS, vNext)
	if err != nil {
		t.Fatal(err)
	}
	returns2, advantages2, err := estimator.Returns(seg, vS, vNext)
	if err != nil {
		t.Fatal(err)
	}

	if !floats.Equal(returns1, returns2) {
		t.Error("expected identical returns on identical inputs")
	}
	if !floats.Equal(advantages1, advantages2) {
		t.Error("expected identical advantages on identical inputs")
	}
}

// TestNewInvalidParameter ensures that discount factors and mixing
// parameters outside [0, 1] are rejected before any computation
func TestNewInvalidParameter(t *testing.T) {
	invalid := [][2]float64{
		{1.2, 1.0},
		{-0.1, 1.0},
		{0.9, 1.3},
		{0.9, -0.5},
	}
	for _, params := range invalid {
		if _, err := New(params[0], params[1]); !IsInvalidParameter(err) {
			t.Errorf("expected an invalid parameter error for gamma %v "+
				"and lambda %v, got %v", params[0], params[1], err)
		}
	}

	// The endpoints of [0, 1] are legal
	valid := [][2]float64{{0.0, 0.0}, {1.0, 1.0}, {0.0, 1.0}, {1.0, 0.0}}
	for _, params := range valid {
		if _, err := New(params[0], params[1]); err != nil {
			t.Errorf("expected gamma %v and lambda %v to be legal, got %v",
				params[0], params[1], err)
		}
	}
}

// TestReturnsMonteCarloRequiresUnitLambda ensures that estimating
// returns without value predictions demands λ=1
func TestReturnsMonteCarloRequiresUnitLambda(t *testing.T) {
	seg := newSegment(t, []float64{1.0}, []bool{true}, []bool{false})

	estimator, err := New(0.9, 0.95)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := estimator.Returns(seg, nil, nil); !IsInvalidParameter(err) {
		t.Errorf("expected an invalid parameter error, got %v", err)
	}

	// State values alone are useless without successor values
	if _, _, err := estimator.Returns(seg, []float64{1.0}, nil); !IsInvalidParameter(err) {
		t.Errorf("expected an invalid parameter error, got %v", err)
	}
}

// TestReturnsShapeMismatch ensures that value arrays whose lengths
// differ from the segment are rejected with no partial result
func TestReturnsShapeMismatch(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0, 1.0},
		[]bool{false, false, true}, []bool{false, false, false})

	estimator, err := New(1.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, advantages, err := estimator.Returns(seg,
		[]float64{0.0, 0.0, 0.0}, []float64{0.0, 0.0})
	if !IsShapeMismatch(err) {
		t.Errorf("expected a shape mismatch error, got %v", err)
	}
	if returns != nil || advantages != nil {
		t.Error("expected no partial result on shape mismatch")
	}

	_, _, err = estimator.Returns(seg, []float64{0.0},
		[]float64{0.0, 0.0, 0.0})
	if !IsShapeMismatch(err) {
		t.Errorf("expected a shape mismatch error, got %v", err)
	}

	_, err = estimator.NStepReturns(seg, 2, []float64{0.0, 0.0})
	if !IsShapeMismatch(err) {
		t.Errorf("expected a shape mismatch error, got %v", err)
	}
}

// TestAdvantagesLambdaZero ensures that λ=0 degenerates to the
// one-step TD residual
func TestAdvantagesLambdaZero(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 2.0, 3.0},
		[]bool{false, false, true}, []bool{false, false, false})
	vS := []float64{0.5, 1.5, 2.5}
	vNext := []float64{1.5, 2.5, 10.0}

	estimator, err := New(0.9, 0.0)
	if err != nil {
		t.Fatal(err)
	}

	advantages, err := estimator.Advantages(seg, vS, vNext)
	if err != nil {
		t.Fatal(err)
	}

	expected := []float64{
		1.0 + 0.9*1.5 - 0.5,
		2.0 + 0.9*2.5 - 1.5,
		3.0 - 2.5, // terminal, bootstrap masked to 0
	}
	if !floats.EqualApprox(advantages, expected, 1e-14) {
		t.Errorf("expected advantages %v, got %v", expected, advantages)
	}
}

// TestAdvantagesLambdaOne ensures that λ=1 over fully terminated
// episodes reproduces Monte-Carlo returns, with advantages measured
// against the state value baseline
func TestAdvantagesLambdaOne(t *testing.T) {
	seg := newSegment(t, []float64{1.0, -1.0, 2.0, 0.5, 1.5},
		[]bool{false, true, false, false, true}, make([]bool, 5))
	dist := distuv.Uniform{Min: -1.0, Max: 1.0, Src: rand.NewSource(7)}

	// A self-consistent value function: within an episode, each
	// transition's successor is the next transition's state. Successor
	// values at terminal transitions are masked, so they may be
	// arbitrary.
	vS := make([]float64, seg.Len())
	vNext := make([]float64, seg.Len())
	for i := range vS {
		vS[i] = dist.Rand()
		vNext[i] = dist.Rand()
	}
	for i := 0; i < seg.Len()-1; i++ {
		if !seg.Done(i) {
			vNext[i] = vS[i+1]
		}
	}

	estimator, err := New(0.9, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, advantages, err := estimator.Returns(seg, vS, vNext)
	if err != nil {
		t.Fatal(err)
	}

	// Every episode ends in a true terminal state, so its masked
	// bootstrap is 0 and the λ=1 residuals telescope to the exact
	// Monte-Carlo return
	expected := estimator.EpisodicReturns(seg)
	if !floats.EqualApprox(returns, expected, 1e-12) {
		t.Errorf("expected returns %v, got %v", expected, returns)
	}

	for i := range advantages {
		if diff := advantages[i] - (returns[i] - vS[i]); diff > 1e-12 ||
			diff < -1e-12 {
			t.Errorf("index %v: expected advantage %v, got %v", i,
				returns[i]-vS[i], advantages[i])
		}
	}
}

// TestReturnsAgreesWithShiftedBaseline ensures that omitting the state
// value array changes only the advantage baseline, never the returns
func TestReturnsAgreesWithShiftedBaseline(t *testing.T) {
	seg := randomSegment(t, 80, 0.08, 29)
	dist := distuv.Uniform{Min: -1.0, Max: 1.0, Src: rand.NewSource(31)}
	vNext := make([]float64, seg.Len())
	for i := range vNext {
		vNext[i] = dist.Rand()
	}

	// A value function consistent with vNext: each transition's state
	// is the previous transition's successor
	vS := make([]float64, seg.Len())
	for i := 1; i < len(vS); i++ {
		vS[i] = vNext[i-1]
	}

	estimator, err := New(0.97, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	explicit, _, err := estimator.Returns(seg, vS, vNext)
	if err != nil {
		t.Fatal(err)
	}
	shifted, _, err := estimator.Returns(seg, nil, vNext)
	if err != nil {
		t.Fatal(err)
	}

	if !floats.EqualApprox(explicit, shifted, 1e-12) {
		t.Error("expected returns to be independent of the baseline " +
			"reconstruction")
	}
}

// TestNStepReturns checks hand-computed n-step targets, the one-step
// degenerate case, and the n→∞ agreement with Monte-Carlo returns
func TestNStepReturns(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0, 1.0, 1.0},
		[]bool{false, false, false, true}, make([]bool, 4))
	vNext := []float64{2.0, 2.0, 2.0, 2.0}

	estimator, err := New(0.5, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, err := estimator.NStepReturns(seg, 2, vNext)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{2.0, 2.0, 1.5, 1.0}
	if !floats.Equal(returns, expected) {
		t.Errorf("expected 2-step returns %v, got %v", expected, returns)
	}

	// n=1 is the one-step TD target r + γ*vNext with terminal masking
	returns, err = estimator.NStepReturns(seg, 1, vNext)
	if err != nil {
		t.Fatal(err)
	}
	expected = []float64{2.0, 2.0, 2.0, 1.0}
	if !floats.Equal(returns, expected) {
		t.Errorf("expected 1-step returns %v, got %v", expected, returns)
	}

	// Lookaheads beyond the episode end match Monte-Carlo returns,
	// since the terminal bootstrap is masked to 0
	returns, err = estimator.NStepReturns(seg, 10, vNext)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(returns, estimator.EpisodicReturns(seg)) {
		t.Errorf("expected Monte-Carlo returns %v, got %v",
			estimator.EpisodicReturns(seg), returns)
	}
}

// TestNStepReturnsOpenEpisode ensures that the lookahead stops at the
// edge of the recorded data and bootstraps from the last available
// successor value
func TestNStepReturnsOpenEpisode(t *testing.T) {
	seg := newSegment(t, []float64{1.0, 1.0}, []bool{false, false},
		[]bool{false, false})
	vNext := []float64{3.0, 4.0}

	estimator, err := New(0.5, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	returns, err := estimator.NStepReturns(seg, 5, vNext)
	if err != nil {
		t.Fatal(err)
	}

	expected := []float64{1.0 + 0.5*1.0 + 0.25*4.0, 1.0 + 0.5*4.0}
	if !floats.Equal(returns, expected) {
		t.Errorf("expected returns %v, got %v", expected, returns)
	}
}

// TestNStepReturnsInvalidParameter ensures that a lookahead below 1 or
// missing successor values are rejected
func TestNStepReturnsInvalidParameter(t *testing.T) {
	seg := newSegment(t, []float64{1.0}, []bool{true}, []bool{false})

	estimator, err := New(0.9, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := estimator.NStepReturns(seg, 0, []float64{0.0}); !IsInvalidParameter(err) {
		t.Errorf("expected an invalid parameter error, got %v", err)
	}
	if _, err := estimator.NStepReturns(seg, 1, nil); !IsInvalidParameter(err) {
		t.Errorf("expected an invalid parameter error, got %v", err)
	}
}

// TestStandardize ensures that standardized values have mean 0 and
// standard deviation 1, and that degenerate inputs map to zeros
func TestStandardize(t *testing.T) {
	dist := distuv.Uniform{Min: -5.0, Max: 10.0, Src: rand.NewSource(41)}
	values := make([]float64, 1000)
	for i := range values {
		values[i] = dist.Rand()
	}

	standardized := Standardize(values)
	if mean := stat.Mean(standardized, nil); mean > 1e-10 || mean < -1e-10 {
		t.Errorf("expected mean 0, got %v", mean)
	}
	if std := stat.StdDev(standardized, nil); std < 0.999 || std > 1.001 {
		t.Errorf("expected standard deviation 1, got %v", std)
	}

	if !floats.Equal(Standardize([]float64{3.14}), []float64{0.0}) {
		t.Error("expected a single value to standardize to 0")
	}
	if len(Standardize([]float64{})) != 0 {
		t.Error("expected an empty input to standardize to an empty output")
	}

	constant := []float64{2.0, 2.0, 2.0}
	if !floats.Equal(Standardize(constant), []float64{0.0, 0.0, 0.0}) {
		t.Error("expected constant values to standardize to 0")
	}
}

func BenchmarkEpisodicReturns(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	rewards := make([]float64, 10000)
	done := make([]bool, len(rewards))
	truncated := make([]bool, len(rewards))
	for i := range rewards {
		rewards[i] = rng.Float64()
		done[i] = rng.Float64() < 0.01
	}
	seg, err := trajectory.New(rewards, done, truncated)
	if err != nil {
		b.Fatal(err)
	}
	estimator, err := New(0.99, 1.0)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		estimator.EpisodicReturns(seg)
	}
}

func BenchmarkReturns(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	rewards := make([]float64, 10000)
	done := make([]bool, len(rewards))
	truncated := make([]bool, len(rewards))
	vS := make([]float64, len(rewards))
	vNext := make([]float64, len(rewards))
	for i := range rewards {
		rewards[i] = rng.Float64()
		done[i] = rng.Float64() < 0.01
		vS[i] = rng.Float64()
		vNext[i] = rng.Float64()
	}
	seg, err := trajectory.New(rewards, done, truncated)
	if err != nil {
		b.Fatal(err)
	}
	estimator, err := New(0.99, 0.95)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		estimator.Returns(seg, vS, vNext)
	}
}
