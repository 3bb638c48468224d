package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/gorollout/utils/intutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// SelectorType describes different types of Selectors that are
// available
type SelectorType string

// Available selector types
const (
	Uniform SelectorType = "Uniform"
	Fifo    SelectorType = "Fifo"
	Recency SelectorType = "Recency"
)

// DefaultRecencyDecay is the weight decay used for recency selectors
// created through CreateSelector
const DefaultRecencyDecay float64 = 0.99

// CreateSelector is a factory method for creating a Selector of the
// given type. Recency selectors are created with DefaultRecencyDecay.
func CreateSelector(method SelectorType, size int,
	seed uint64) (Selector, error) {
	switch method {
	case Uniform:
		return NewUniformSelector(size, seed), nil

	case Fifo:
		return NewFifoSelector(size), nil

	case Recency:
		return NewRecencySelector(size, DefaultRecencyDecay, seed)

	default:
		return nil, fmt.Errorf("createSelector: no such selector type %v",
			method)
	}
}

// Selector implements functionality for choosing which chronological
// positions should be sampled from an experience replay buffer
type Selector interface {
	// choose selects the positions at which data should be sampled
	// from the experience replay buffer
	choose(c *cache) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int
}

// uniformSelector is a Selector which selects positions from an
// experience replay buffer uniformly randomly, with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects positions
// uniformly randomly from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the
// buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of positions at which to draw data from the
// buffer
func (u *uniformSelector) choose(c *cache) []int {
	selected := make([]int, u.BatchSize())
	for i := range selected {
		selected[i] = u.rng.Intn(c.Capacity())
	}

	return selected
}

// fifoSelector is a Selector which selects positions from an
// experience replay buffer as first-in-first-out.
type fifoSelector struct {
	samples int
}

// NewFifoSelector returns a new Selector which draws the oldest
// stored positions from an experience replay buffer
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the
// buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose selects a number of positions at which to draw data from the
// buffer
func (f *fifoSelector) choose(c *cache) []int {
	selected := make([]int, intutils.Min(f.BatchSize(), c.Capacity()))
	for i := range selected {
		selected[i] = i
	}

	return selected
}

// recencySelector is a Selector which selects positions with
// probability proportional to decay^age, where the newest stored
// transition has age 0. Sampling emphasizes recent experience while
// never entirely forgetting older transitions.
type recencySelector struct {
	samples int
	decay   float64
	src     rand.Source

	// The categorical distribution over positions is rebuilt whenever
	// the number of stored transitions changes
	dist     distuv.Categorical
	distSize int
}

// NewRecencySelector returns a new Selector which selects positions
// with probability proportional to decay^age. The decay parameter
// must be in (0, 1]; a decay of 1 is equivalent to uniform selection.
func NewRecencySelector(samples int, decay float64,
	seed uint64) (Selector, error) {
	if decay <= 0.0 || decay > 1.0 {
		return nil, fmt.Errorf("newRecencySelector: decay must be in "+
			"(0, 1], got %v", decay)
	}

	return &recencySelector{
		samples:  samples,
		decay:    decay,
		src:      rand.NewSource(seed),
		distSize: -1,
	}, nil
}

// BatchSize gets the number of samples in a batch drawn from the
// buffer
func (r *recencySelector) BatchSize() int {
	return r.samples
}

// choose selects a number of positions at which to draw data from the
// buffer
func (r *recencySelector) choose(c *cache) []int {
	if c.Capacity() != r.distSize {
		weights := make([]float64, c.Capacity())
		weight := 1.0
		for pos := c.Capacity() - 1; pos >= 0; pos-- {
			weights[pos] = weight
			weight *= r.decay
		}

		r.dist = distuv.NewCategorical(weights, r.src)
		r.distSize = c.Capacity()
	}

	selected := make([]int, r.samples)
	for i := range selected {
		selected[i] = int(r.dist.Rand())
	}

	return selected
}
