// Package engines implements the algorithm engines: dynamic programming
// (value iteration, policy iteration), Monte Carlo (first-visit, every-visit,
// epsilon-greedy control) and temporal difference (TD(0), SARSA, n-step TD).
// Every engine advances in bounded increments, one sweep or one episode at a
// time, so the training session can interleave progress emission and
// cancellation checks between increments.
package engines

import (
	"fmt"
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// Increment reports one completed unit of work.
type Increment struct {
	// Unit is the 1-based sweep or episode index.
	Unit int

	// Delta is the maximum absolute value change of a dynamic programming
	// sweep.
	Delta float64

	// Reward is the total reward of an episodic increment.
	Reward float64

	// Done reports that the engine reached its terminal condition.
	Done bool
}

// Engine runs one algorithm in bounded increments.
type Engine interface {
	// TotalUnits returns the planned increment count, 0 for engines that run
	// until convergence.
	TotalUnits() int

	// RunIncrement advances the engine by one sweep or episode. After Done
	// is reported further calls return the same terminal increment.
	RunIncrement() (Increment, error)

	// Snapshot returns an independent copy of the current learned state.
	Snapshot() rl.Result
}

// New constructs the engine for the given algorithm against a closed
// dispatch table; unknown identifiers are a validation error.
func New(algorithm rl.Algorithm, environment env.Environment, hp rl.Hyperparams) (Engine, error) {
	switch algorithm {
	case rl.AlgorithmValueIteration:
		return NewValueIteration(environment, hp), nil
	case rl.AlgorithmPolicyIteration:
		return NewPolicyIteration(environment, hp), nil
	case rl.AlgorithmMonteCarloFirstVisit:
		return NewMonteCarlo(environment, hp, FirstVisit), nil
	case rl.AlgorithmMonteCarloEveryVisit:
		return NewMonteCarlo(environment, hp, EveryVisit), nil
	case rl.AlgorithmMonteCarloControl:
		return NewMonteCarloControl(environment, hp), nil
	case rl.AlgorithmTDZero:
		return NewTDZero(environment, hp), nil
	case rl.AlgorithmSARSA:
		return NewSARSA(environment, hp), nil
	case rl.AlgorithmNStepTD:
		return NewNStepTD(environment, hp), nil
	default:
		return nil, fmt.Errorf("%w: %q", rl.ErrUnknownAlgorithm, algorithm)
	}
}

// epsilonGreedy picks a random action with probability epsilon, otherwise
// the greedy action from q with ties broken toward the lowest index.
func epsilonGreedy(q *rl.QTable, state env.State, epsilon float64, rng *rand.Rand) int {
	if rng.Float64() < epsilon {
		return rng.Intn(q.NumActions())
	}
	action, _ := q.Best(state)
	return action
}

// rolloutRandom rolls one episode under a uniform random behavior policy.
// Episode length is bounded by the environment's step cap.
func rolloutRandom(environment env.Environment, rng *rand.Rand) []env.Transition {
	var episode []env.Transition
	environment.Reset()
	for {
		t := environment.Step(rng.Intn(environment.NumActions()))
		episode = append(episode, t)
		if t.Done() {
			return episode
		}
	}
}

// rolloutEpsilonGreedy rolls one episode with epsilon-greedy selection over
// the live Q-table.
func rolloutEpsilonGreedy(environment env.Environment, q *rl.QTable, epsilon float64, rng *rand.Rand) []env.Transition {
	var episode []env.Transition
	state := environment.Reset()
	for {
		t := environment.Step(epsilonGreedy(q, state, epsilon, rng))
		episode = append(episode, t)
		if t.Done() {
			return episode
		}
		state = t.NextState
	}
}

func episodeReward(episode []env.Transition) float64 {
	total := 0.0
	for _, t := range episode {
		total += t.Reward
	}
	return total
}
