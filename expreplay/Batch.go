package expreplay

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Batch packages together the data of a minibatch of transitions as
// dense tensors, ready to be fed to a downstream learner. States and
// actions are stacked row-wise, one transition per row, and rewards
// and discounts are vectors with one entry per transition. Rows are
// ordered exactly as the positions that produced them, so learning
// targets computed for those positions stay aligned row-for-row.
type Batch struct {
	States      *tensor.Dense
	Actions     *tensor.Dense
	Rewards     *tensor.Dense
	Discounts   *tensor.Dense
	NextStates  *tensor.Dense
	NextActions *tensor.Dense
}

// String returns the string representation of the Batch
func (b *Batch) String() string {
	return fmt.Sprintf("Batch | States: %v  |  Actions: %v",
		b.States.Shape(), b.Actions.Shape())
}

// Batch gathers the stored transition data at the given chronological
// positions into dense tensors
func (c *cache) Batch(indices []int) (*Batch, error) {
	if c.Capacity() == 0 {
		return nil, &ExpReplayError{
			Op:  "batch",
			Err: errEmptyCache,
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("batch: at least one position is required")
	}
	for _, index := range indices {
		if index < 0 || index >= c.Capacity() {
			return nil, &ExpReplayError{
				Op:  "batch",
				Err: errOutOfRange,
			}
		}
	}

	rows := len(indices)
	states := make([]float64, rows*c.featureSize)
	nextStates := make([]float64, rows*c.featureSize)
	actions := make([]float64, rows*c.actionSize)
	nextActions := make([]float64, rows*c.actionSize)
	rewards := make([]float64, rows)
	discounts := make([]float64, rows)

	for i, index := range indices {
		s := c.slot(index)

		batchStartInd := i * c.featureSize
		expStartInd := s * c.featureSize
		copy(states[batchStartInd:batchStartInd+c.featureSize],
			c.stateCache[expStartInd:expStartInd+c.featureSize])
		copy(nextStates[batchStartInd:batchStartInd+c.featureSize],
			c.nextStateCache[expStartInd:expStartInd+c.featureSize])

		batchStartInd = i * c.actionSize
		expStartInd = s * c.actionSize
		copy(actions[batchStartInd:batchStartInd+c.actionSize],
			c.actionCache[expStartInd:expStartInd+c.actionSize])
		copy(nextActions[batchStartInd:batchStartInd+c.actionSize],
			c.nextActionCache[expStartInd:expStartInd+c.actionSize])

		rewards[i] = c.rewardCache[s]
		discounts[i] = c.discountCache[s]
	}

	return &Batch{
		States: tensor.NewDense(tensor.Float64,
			[]int{rows, c.featureSize}, tensor.WithBacking(states)),
		Actions: tensor.NewDense(tensor.Float64,
			[]int{rows, c.actionSize}, tensor.WithBacking(actions)),
		Rewards: tensor.New(tensor.WithBacking(rewards),
			tensor.WithShape(rows)),
		Discounts: tensor.New(tensor.WithBacking(discounts),
			tensor.WithShape(rows)),
		NextStates: tensor.NewDense(tensor.Float64,
			[]int{rows, c.featureSize}, tensor.WithBacking(nextStates)),
		NextActions: tensor.NewDense(tensor.Float64,
			[]int{rows, c.actionSize}, tensor.WithBacking(nextActions)),
	}, nil
}
