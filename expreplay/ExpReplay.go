// Package expreplay implements episode-aware experience replay
// buffers.
//
// A replay buffer stores the transitions an agent experiences, in the
// order they were experienced, and lets downstream learners read them
// back in two ways: as chronological trajectory segments, which
// return estimators consume to compute learning targets, and as
// randomly sampled minibatches of transition data for gradient
// updates. Once the buffer fills, the oldest transitions are
// overwritten first.
//
// Transitions are addressed by chronological position: position 0 is
// always the oldest stored transition and Capacity()-1 the newest.
// Positions therefore shift as old transitions are overwritten, and
// callers should finish consuming any positions they hold before
// adding more data. Buffers are not safe for concurrent use.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/gorollout/timestep"
	"github.com/samuelfneumann/gorollout/trajectory"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	SampleMethod      SelectorType
	SampleSize        int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	sampler, err := CreateSelector(c.SampleMethod, c.SampleSize, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	return New(sampler, c.MinReplayCapacity, c.MaxReplayCapacity,
		featureSize, actionSize)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// SampleIndices samples a batch of chronological positions for
	// minibatching, using the buffer's Selector
	SampleIndices() ([]int, error)

	// Slice returns the stored transitions at positions
	// [start, stop) as a trajectory segment in chronological order
	Slice(start, stop int) (*trajectory.Segment, error)

	// Select returns the stored transitions at the given positions
	// as a trajectory segment, in the order given
	Select(indices []int) (*trajectory.Segment, error)

	// Batch gathers the stored transition data at the given
	// positions into dense tensors
	Batch(indices []int) (*Batch, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of positions returned by
	// SampleIndices()
	BatchSize() int
}

// cache implements a concrete ExperienceReplayer as a ring over
// preallocated storage. The slot holding the oldest transition is
// tracked by head, and chronological position p lives at slot
// (head + p) % maxCapacity. Adding to a full cache overwrites the
// oldest transition.
type cache struct {
	stateCache      []float64
	actionCache     []float64
	rewardCache     []float64
	discountCache   []float64
	nextStateCache  []float64
	nextActionCache []float64
	doneCache       []bool
	truncatedCache  []bool

	head  int
	count int

	// Outlines how positions are sampled for minibatching
	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New creates and returns a new ExperienceReplayer. The sampler
// parameter is a Selector which determines how positions are sampled
// from the replay buffer for minibatching. The featureSize and
// actionSize parameters define the size of the feature and action
// vectors.
//
// Pixel observations should be flattened before adding to the buffer.
func New(sampler Selector, minCapacity, maxCapacity, featureSize,
	actionSize int) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if maxCapacity < sampler.BatchSize() {
		return nil, fmt.Errorf("new: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", sampler.BatchSize(), maxCapacity)
	}

	return &cache{
		stateCache:      make([]float64, maxCapacity*featureSize),
		actionCache:     make([]float64, maxCapacity*actionSize),
		rewardCache:     make([]float64, maxCapacity),
		discountCache:   make([]float64, maxCapacity),
		nextStateCache:  make([]float64, maxCapacity*featureSize),
		nextActionCache: make([]float64, maxCapacity*actionSize),
		doneCache:       make([]bool, maxCapacity),
		truncatedCache:  make([]bool, maxCapacity),

		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// slot returns the storage slot of chronological position p
func (c *cache) slot(p int) int {
	return (c.head + p) % c.maxCapacity
}

// String returns the string representation of the cache
func (c *cache) String() string {
	return fmt.Sprintf("ExperienceReplay | Capacity: %v/%v  |  Batch "+
		"Size: %v", c.Capacity(), c.MaxCapacity(), c.BatchSize())
}

// BatchSize returns the number of positions sampled using
// SampleIndices() - a.k.a the batch size
func (c *cache) BatchSize() int {
	return c.sampler.BatchSize()
}

// Capacity returns the current number of elements in the cache that
// are available for sampling
func (c *cache) Capacity() int {
	return c.count
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// cache before sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// Add adds a transition to the cache, overwriting the oldest stored
// transition once the cache is full
func (c *cache) Add(t timestep.Transition) error {
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, t.State.Len())
	}
	if t.Action.Len() != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			c.actionSize, t.Action.Len())
	}
	if t.NextAction != nil && t.NextAction.Len() != c.actionSize {
		return fmt.Errorf("add: invalid next action size "+
			"\n\twant(%v)\n\thave(%v)", c.actionSize, t.NextAction.Len())
	}

	var index int
	if c.count == c.maxCapacity {
		// Overwrite the oldest transition
		c.head = (c.head + 1) % c.maxCapacity
		index = c.slot(c.count - 1)
	} else {
		index = c.slot(c.count)
		c.count++
	}

	// Copy states
	stateInd := index * c.featureSize
	copy(c.stateCache[stateInd:stateInd+c.featureSize],
		t.State.RawVector().Data)
	copy(c.nextStateCache[stateInd:stateInd+c.featureSize],
		t.NextState.RawVector().Data)

	// Copy actions
	actionInd := index * c.actionSize
	copy(c.actionCache[actionInd:actionInd+c.actionSize],
		t.Action.RawVector().Data)
	if t.NextAction != nil {
		copy(c.nextActionCache[actionInd:actionInd+c.actionSize],
			t.NextAction.RawVector().Data)
	} else {
		for i := actionInd; i < actionInd+c.actionSize; i++ {
			c.nextActionCache[i] = 0
		}
	}

	c.rewardCache[index] = t.Reward
	c.discountCache[index] = t.Discount
	c.doneCache[index] = t.Done()
	c.truncatedCache[index] = t.Truncated()

	return nil
}

// SampleIndices samples a batch of chronological positions from the
// replay buffer using the buffer's Selector
func (c *cache) SampleIndices() ([]int, error) {
	if c.Capacity() == 0 {
		return nil, &ExpReplayError{
			Op:  "sampleIndices",
			Err: errEmptyCache,
		}
	}
	if c.Capacity() < c.MinCapacity() {
		return nil, &ExpReplayError{
			Op:  "sampleIndices",
			Err: errInsufficientSamples,
		}
	}

	return c.sampler.choose(c), nil
}

// Slice returns the stored transitions at positions [start, stop) as
// a trajectory segment in chronological order. A transition whose
// episode continues past the end of the slice is marked unfinished in
// the returned segment, so return estimators will treat the window
// edge as an episode boundary that still permits bootstrapping.
func (c *cache) Slice(start, stop int) (*trajectory.Segment, error) {
	if start < 0 || stop < start || stop > c.Capacity() {
		return nil, &ExpReplayError{
			Op:  "slice",
			Err: errOutOfRange,
		}
	}

	indices := make([]int, stop-start)
	for i := range indices {
		indices[i] = start + i
	}
	return c.Select(indices)
}

// Select returns the stored transitions at the given positions as a
// trajectory segment. Positions are treated as consecutive in the
// order given: callers should select runs that respect episode
// structure, or mark artificial boundaries afterward with the
// segment's MarkUnfinished. Any selected transition whose episode is
// still running at the newest end of the buffer is marked unfinished.
func (c *cache) Select(indices []int) (*trajectory.Segment, error) {
	for _, index := range indices {
		if index < 0 || index >= c.Capacity() {
			return nil, &ExpReplayError{
				Op:  "select",
				Err: errOutOfRange,
			}
		}
	}

	rewards := make([]float64, len(indices))
	done := make([]bool, len(indices))
	truncated := make([]bool, len(indices))
	var unfinished []int
	for i, index := range indices {
		s := c.slot(index)
		rewards[i] = c.rewardCache[s]
		done[i] = c.doneCache[s]
		truncated[i] = c.truncatedCache[s]

		// The newest stored transition of a still-running episode has
		// no recorded successor transition
		if index == c.Capacity()-1 && !c.doneCache[s] {
			unfinished = append(unfinished, i)
		}
	}

	seg, err := trajectory.New(rewards, done, truncated)
	if err != nil {
		return nil, fmt.Errorf("select: could not construct segment: %v",
			err)
	}
	if err := seg.MarkUnfinished(unfinished...); err != nil {
		return nil, fmt.Errorf("select: could not mark unfinished: %v", err)
	}
	return seg, nil
}
