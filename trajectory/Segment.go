// Package trajectory provides read-only views over recorded sequences
// of agent-environment transitions.
//
// A trajectory segment is any contiguous window of transitions taken
// from one or more episodes. Segments need not line up with episode
// boundaries: a segment may contain many completed episodes
// back-to-back, may begin partway through an episode, and may end
// before its final episode has finished. Each transition in a segment
// therefore carries flags describing how the episode stood at that
// transition, and downstream consumers such as return estimators use
// these flags to decide where accumulation must reset and where
// bootstrapping from a predicted state value is legal.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/gorollout/timestep"
)

// ErrShapeMismatch indicates that parallel arrays describing the same
// sequence of transitions did not have equal lengths
var ErrShapeMismatch = errors.New("mismatched array lengths")

// Segment is a read-only sequence of transitions. For each transition
// i, a Segment records the reward earned, whether the episode ended at
// i for any reason (done), whether that end was a cutoff rather than a
// true terminal state (truncated), and whether i is the last recorded
// transition of an episode that is still running (unfinished).
//
// A truncated transition is always done: New and FromTransitions
// record the union of the two flags in done. Unfinished marks episode
// ends of a different kind, those forced by the edge of the recorded
// data rather than by the environment, and is unioned with done
// whenever episode boundaries are queried through EndFlag.
//
// A non-empty Segment always ends at an episode boundary: if the final
// transition is not done, it is marked unfinished on construction.
type Segment struct {
	rewards    []float64
	done       []bool
	truncated  []bool
	unfinished []bool
}

// New returns a new Segment over the given parallel arrays. The
// arrays are copied, so the caller may freely reuse its slices. New
// fails with ErrShapeMismatch if the arrays differ in length.
func New(rewards []float64, done, truncated []bool) (*Segment, error) {
	if len(done) != len(rewards) || len(truncated) != len(rewards) {
		return nil, fmt.Errorf("new: reward, done, and truncated lengths "+
			"differ \n\twant(%v) \n\thave(done: %v, truncated: %v): %w",
			len(rewards), len(done), len(truncated), ErrShapeMismatch)
	}

	seg := &Segment{
		rewards:    make([]float64, len(rewards)),
		done:       make([]bool, len(rewards)),
		truncated:  make([]bool, len(rewards)),
		unfinished: make([]bool, len(rewards)),
	}
	copy(seg.rewards, rewards)
	copy(seg.truncated, truncated)
	for i := range done {
		seg.done[i] = done[i] || truncated[i]
	}

	if n := seg.Len(); n > 0 && !seg.done[n-1] {
		seg.unfinished[n-1] = true
	}
	return seg, nil
}

// FromTransitions returns a new Segment describing the given
// transitions, taken to be in chronological order
func FromTransitions(transitions []timestep.Transition) *Segment {
	rewards := make([]float64, len(transitions))
	done := make([]bool, len(transitions))
	truncated := make([]bool, len(transitions))
	for i, t := range transitions {
		rewards[i] = t.Reward
		done[i] = t.Done()
		truncated[i] = t.Truncated()
	}

	// New cannot fail on arrays constructed above
	seg, err := New(rewards, done, truncated)
	if err != nil {
		panic(fmt.Sprintf("fromtransitions: could not construct segment: %v",
			err))
	}
	return seg
}

// MarkUnfinished flags each of the given transitions as the last
// recorded transition of an episode that is still running. Transitions
// so marked act as episode ends when boundaries are queried through
// EndFlag, but unlike done transitions they never represent a true
// terminal state, so bootstrapping from their successor state remains
// legal. MarkUnfinished fails if any index is out of range.
func (s *Segment) MarkUnfinished(indices ...int) error {
	for _, i := range indices {
		if i < 0 || i >= s.Len() {
			return fmt.Errorf("markUnfinished: index %v out of range [0, %v)",
				i, s.Len())
		}
	}
	for _, i := range indices {
		s.unfinished[i] = true
	}
	return nil
}

// Len returns the number of transitions in the Segment
func (s *Segment) Len() int {
	return len(s.rewards)
}

// Reward returns the reward earned on transition i
func (s *Segment) Reward(i int) float64 {
	return s.rewards[i]
}

// Done returns whether the episode ended at transition i for any
// reason
func (s *Segment) Done(i int) bool {
	return s.done[i]
}

// Truncated returns whether the episode was cut off at transition i
// before reaching a terminal state
func (s *Segment) Truncated(i int) bool {
	return s.truncated[i]
}

// Unfinished returns whether transition i is the last recorded
// transition of an episode that is still running
func (s *Segment) Unfinished(i int) bool {
	return s.unfinished[i]
}

// EndFlag returns whether transition i is an episode boundary, either
// because the episode ended there (done) or because the recorded data
// ran out there (unfinished). Backward accumulation over a Segment
// must reset at every transition for which EndFlag is true.
func (s *Segment) EndFlag(i int) bool {
	return s.done[i] || s.unfinished[i]
}

// Rewards returns a copy of the reward of every transition
func (s *Segment) Rewards() []float64 {
	rewards := make([]float64, s.Len())
	copy(rewards, s.rewards)
	return rewards
}

// EndFlags returns a copy of the episode boundary flag of every
// transition, as computed by EndFlag
func (s *Segment) EndFlags() []bool {
	flags := make([]bool, s.Len())
	for i := range flags {
		flags[i] = s.EndFlag(i)
	}
	return flags
}

// Span marks one episode's run of transitions within a Segment. Start
// is the index of the episode's first recorded transition and Stop is
// one past its last. Open indicates that the episode never actually
// ended, the recorded data simply stopped partway through it.
type Span struct {
	Start int
	Stop  int
	Open  bool
}

// Episodes returns the runs of transitions belonging to each episode
// in the Segment, in chronological order. Episode boundaries are
// determined by EndFlag, so partially recorded episodes are returned
// as Spans with Open set.
func (s *Segment) Episodes() []Span {
	spans := make([]Span, 0)
	start := 0
	for i := 0; i < s.Len(); i++ {
		if s.EndFlag(i) {
			spans = append(spans, Span{Start: start, Stop: i + 1,
				Open: !s.done[i]})
			start = i + 1
		}
	}
	return spans
}

func (s *Segment) String() string {
	return fmt.Sprintf("Segment | Transitions: %v  |  Episodes: %v",
		s.Len(), len(s.Episodes()))
}
