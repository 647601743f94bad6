package engines

import (
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// Visit selects the Monte Carlo bookkeeping variant.
type Visit int

const (
	// FirstVisit updates a key only at its first occurrence in the episode.
	FirstVisit Visit = iota
	// EveryVisit updates a key at every occurrence.
	EveryVisit
)

// MonteCarlo estimates state values by averaging sampled returns. One
// increment is one full episode rolled out under a uniform random behavior
// policy and processed backward; estimates are incremental means,
// V(s) += (G - V(s)) / N(s).
type MonteCarlo struct {
	environment env.Environment
	hp          rl.Hyperparams
	visit       Visit
	rng         *rand.Rand
	values      *rl.ValueFunction
	counts      map[env.State]int
	episodes    int
	history     rl.History
}

// NewMonteCarlo returns a Monte Carlo prediction engine for the given visit
// variant.
func NewMonteCarlo(environment env.Environment, hp rl.Hyperparams, visit Visit) *MonteCarlo {
	return &MonteCarlo{
		environment: environment,
		hp:          hp,
		visit:       visit,
		rng:         rl.NewRand(hp.Seed),
		values:      rl.NewValueFunction(),
		counts:      make(map[env.State]int),
	}
}

// TotalUnits returns the configured episode count.
func (e *MonteCarlo) TotalUnits() int {
	return e.hp.Episodes
}

// RunIncrement generates one episode and folds its returns into the value
// estimates.
func (e *MonteCarlo) RunIncrement() (Increment, error) {
	if e.episodes >= e.hp.Episodes {
		return Increment{Unit: e.episodes, Done: true}, nil
	}
	episode := rolloutRandom(e.environment, e.rng)
	e.episodes++

	// First occurrence index per state, scanning forward.
	firstIndex := make(map[env.State]int, len(episode))
	for t, step := range episode {
		if _, seen := firstIndex[step.State]; !seen {
			firstIndex[step.State] = t
		}
	}

	g := 0.0
	for t := len(episode) - 1; t >= 0; t-- {
		step := episode[t]
		g = e.hp.Gamma*g + step.Reward
		if e.visit == FirstVisit && firstIndex[step.State] != t {
			continue
		}
		e.counts[step.State]++
		old := e.values.Get(step.State)
		e.values.Set(step.State, old+(g-old)/float64(e.counts[step.State]))
	}

	reward := episodeReward(episode)
	e.history.EpisodeRewards = append(e.history.EpisodeRewards, reward)
	return Increment{Unit: e.episodes, Reward: reward, Done: e.episodes >= e.hp.Episodes}, nil
}

// Snapshot returns the current value estimates. Prediction derives no
// policy.
func (e *MonteCarlo) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.values.Clone(),
		History: e.history.Clone(),
	}
}

// stateAction keys the control engine's return counters.
type stateAction struct {
	state  env.State
	action int
}

// MonteCarloControl learns a Q-table with first-visit incremental-mean
// returns over episodes generated epsilon-greedily from the live table, so
// the behavior policy improves as the table does. Epsilon is held fixed per
// configuration.
type MonteCarloControl struct {
	environment env.Environment
	hp          rl.Hyperparams
	rng         *rand.Rand
	q           *rl.QTable
	counts      map[stateAction]int
	episodes    int
	history     rl.History
}

// NewMonteCarloControl returns an epsilon-greedy Monte Carlo control engine
// with a uniformly seeded Q-table.
func NewMonteCarloControl(environment env.Environment, hp rl.Hyperparams) *MonteCarloControl {
	return &MonteCarloControl{
		environment: environment,
		hp:          hp,
		rng:         rl.NewRand(hp.Seed),
		q:           rl.NewQTable(environment.NumActions()),
		counts:      make(map[stateAction]int),
	}
}

// TotalUnits returns the configured episode count.
func (e *MonteCarloControl) TotalUnits() int {
	return e.hp.Episodes
}

// RunIncrement generates one epsilon-greedy episode and folds its returns
// into the Q-table.
func (e *MonteCarloControl) RunIncrement() (Increment, error) {
	if e.episodes >= e.hp.Episodes {
		return Increment{Unit: e.episodes, Done: true}, nil
	}
	episode := rolloutEpsilonGreedy(e.environment, e.q, e.hp.Epsilon, e.rng)
	e.episodes++

	firstIndex := make(map[stateAction]int, len(episode))
	for t, step := range episode {
		key := stateAction{step.State, step.Action}
		if _, seen := firstIndex[key]; !seen {
			firstIndex[key] = t
		}
	}

	g := 0.0
	for t := len(episode) - 1; t >= 0; t-- {
		step := episode[t]
		g = e.hp.Gamma*g + step.Reward
		key := stateAction{step.State, step.Action}
		if firstIndex[key] != t {
			continue
		}
		e.counts[key]++
		old := e.q.Get(step.State, step.Action)
		e.q.Set(step.State, step.Action, old+(g-old)/float64(e.counts[key]))
	}

	reward := episodeReward(episode)
	e.history.EpisodeRewards = append(e.history.EpisodeRewards, reward)
	return Increment{Unit: e.episodes, Reward: reward, Done: e.episodes >= e.hp.Episodes}, nil
}

// Snapshot returns the Q-table, its implied value function, and the greedy
// policy.
func (e *MonteCarloControl) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.q.Values(),
		Q:       e.q.Clone(),
		Policy:  e.q.GreedyPolicy(),
		History: e.history.Clone(),
	}
}
