package main

import (
	"fmt"
	"math"
	"time"

	"github.com/samuelfneumann/gorollout/agent"
	"github.com/samuelfneumann/gorollout/estimate"
	"github.com/samuelfneumann/gorollout/expreplay"
	"github.com/samuelfneumann/gorollout/timestep"
	"github.com/samuelfneumann/gorollout/tracker"
	"github.com/samuelfneumann/gorollout/utils/progressbar"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func main() {
	var seed uint64 = 192382

	const steps int = 1_000      // Transitions to collect
	const boundary float64 = 3.0 // Walks outside [-boundary, boundary] terminate
	const cutoff int = 50        // Episodes time out after cutoff steps

	// Create the behaviour policy
	bounds := r1.Interval{Min: -1.0, Max: 1.0}
	policy, err := agent.NewUniformRandom([]r1.Interval{bounds}, seed)
	if err != nil {
		panic(err)
	}

	// Create the replay buffer
	config := expreplay.Config{
		SampleMethod:      expreplay.Uniform,
		SampleSize:        32,
		MaxReplayCapacity: 500,
		MinReplayCapacity: 100,
	}
	buffer, err := config.Create(1, policy.ActionDims(), seed)
	if err != nil {
		panic(err)
	}

	// Track episodic returns while collecting
	var returns tracker.Tracker = tracker.NewReturn("./data.bin")

	bar := progressbar.NewProgressBar(25, steps, time.Second, false)
	bar.Display()

	// Collect experience from a bounded random walk
	position := 0.0
	step := timestep.New(timestep.First, 0.0, 1.0,
		mat.NewVecDense(1, []float64{position}), 0)
	returns.Track(step)

	for i := 0; i < steps; i++ {
		action := policy.SelectAction(step)
		position += action.AtVec(0)

		reward := -math.Abs(position)
		next := timestep.New(timestep.Mid, reward, 1.0,
			mat.NewVecDense(1, []float64{position}), step.Number+1)
		if math.Abs(position) > boundary {
			next.StepType = timestep.Last
			next.SetEnd(timestep.TerminalStateReached)
		} else if next.Number >= cutoff {
			next.StepType = timestep.Last
			next.SetEnd(timestep.Timeout)
		}

		if err := buffer.Add(timestep.NewTransition(step, action, next,
			nil)); err != nil {
			panic(err)
		}
		returns.Track(next)
		bar.Increment()

		if next.Last() {
			position = 0.0
			step = timestep.New(timestep.First, 0.0, 1.0,
				mat.NewVecDense(1, []float64{position}), 0)
			returns.Track(step)
		} else {
			step = next
		}
	}
	bar.Close()

	// The most recent experience in chronological order
	segment, _ := buffer.Slice(0, buffer.Capacity())

	// Predict state values with a heuristic critic
	indices := make([]int, buffer.Capacity())
	for i := range indices {
		indices[i] = i
	}
	batch, _ := buffer.Batch(indices)
	states := batch.States.Data().([]float64)
	nextStates := batch.NextStates.Data().([]float64)
	vS := make([]float64, len(states))
	vNext := make([]float64, len(nextStates))
	for i := range states {
		vS[i] = -math.Abs(states[i])
		vNext[i] = -math.Abs(nextStates[i])
	}

	// GAE learning targets with standardized advantages
	gae, err := estimate.NewGAE(0.99, 0.95)
	if err != nil {
		panic(err)
	}
	targets, advantages, err := gae.Targets(segment, vS, vNext)
	if err != nil {
		panic(err)
	}
	advantages = estimate.Standardize(advantages)

	fmt.Println("targets:", targets[:10])
	fmt.Println("advantages:", advantages[:10])

	// Save the tracked returns
	returns.Save()

	data := tracker.LoadData("./data.bin")
	fmt.Println(data[len(data)-10:])
}
