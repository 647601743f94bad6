// Package simulate replays a learned policy through an environment and
// records the resulting trajectory.
package simulate

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// DefaultMaxSteps bounds a rollout when the caller gives no cap.
const DefaultMaxSteps = 200

// Step is one executed transition of a rollout.
type Step struct {
	State      string  `json:"state"`
	Action     int     `json:"action"`
	Reward     float64 `json:"reward"`
	NextState  string  `json:"nextState"`
	Terminated bool    `json:"terminated"`
	Truncated  bool    `json:"truncated"`
}

// Trajectory is the full record of one policy rollout.
type Trajectory struct {
	Steps       []Step  `json:"steps"`
	TotalReward float64 `json:"totalReward"`
	MeanReward  float64 `json:"meanReward"`

	// ReachedGoal reports that the rollout ended on a terminal transition
	// with positive reward.
	ReachedGoal bool `json:"reachedGoal"`
}

// Run replays policy greedily from start, or from the environment's own
// start state when start is nil. States the policy never learned fall back
// to action 0. The rollout stops on a terminal or truncating transition, or
// after maxSteps transitions (0 selects DefaultMaxSteps).
func Run(environment env.Environment, policy rl.Policy, start env.State, maxSteps int) (Trajectory, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	state := environment.Reset()
	if start != nil {
		restorer, ok := environment.(env.Restorer)
		if !ok {
			return Trajectory{}, fmt.Errorf("environment does not support custom start states")
		}
		if err := restorer.Restore(start); err != nil {
			return Trajectory{}, err
		}
		state = start
	}

	var trajectory Trajectory
	for i := 0; i < maxSteps; i++ {
		if environment.Terminal(state) {
			break
		}
		t := environment.Step(policy.Action(state))
		trajectory.Steps = append(trajectory.Steps, Step{
			State:      t.State.Key(),
			Action:     t.Action,
			Reward:     t.Reward,
			NextState:  t.NextState.Key(),
			Terminated: t.Terminated,
			Truncated:  t.Truncated,
		})
		trajectory.TotalReward += t.Reward
		if t.Done() {
			trajectory.ReachedGoal = t.Terminated && t.Reward > 0
			break
		}
		state = t.NextState
	}

	if n := len(trajectory.Steps); n > 0 {
		rewards := make([]float64, n)
		for i, step := range trajectory.Steps {
			rewards[i] = step.Reward
		}
		trajectory.MeanReward = stat.Mean(rewards, nil)
	}
	return trajectory, nil
}
