package engines

import (
	"math"
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// TDZero estimates state values with one-step bootstrapped updates applied
// after every environment step: V(S) += alpha*[R + gamma*V(S')*(1-done) -
// V(S)]. Episodes are rolled out under a uniform random behavior policy.
type TDZero struct {
	environment env.Environment
	hp          rl.Hyperparams
	rng         *rand.Rand
	values      *rl.ValueFunction
	episodes    int
	history     rl.History
}

// NewTDZero returns a TD(0) prediction engine.
func NewTDZero(environment env.Environment, hp rl.Hyperparams) *TDZero {
	return &TDZero{
		environment: environment,
		hp:          hp,
		rng:         rl.NewRand(hp.Seed),
		values:      rl.NewValueFunction(),
	}
}

// TotalUnits returns the configured episode count.
func (e *TDZero) TotalUnits() int {
	return e.hp.Episodes
}

// RunIncrement runs one episode, updating values after every step.
func (e *TDZero) RunIncrement() (Increment, error) {
	if e.episodes >= e.hp.Episodes {
		return Increment{Unit: e.episodes, Done: true}, nil
	}
	e.episodes++

	total := 0.0
	e.environment.Reset()
	for {
		t := e.environment.Step(e.rng.Intn(e.environment.NumActions()))
		total += t.Reward

		target := t.Reward
		if !t.Done() {
			target += e.hp.Gamma * e.values.Get(t.NextState)
		}
		old := e.values.Get(t.State)
		e.values.Set(t.State, old+e.hp.Alpha*(target-old))

		if t.Done() {
			break
		}
	}

	e.history.EpisodeRewards = append(e.history.EpisodeRewards, total)
	return Increment{Unit: e.episodes, Reward: total, Done: e.episodes >= e.hp.Episodes}, nil
}

// Snapshot returns the current value estimates.
func (e *TDZero) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.values.Clone(),
		History: e.history.Clone(),
	}
}

// SARSAStep is one recorded step of a SARSA episode. NextAction is the
// action selected at the next state before the update; on-policy learning
// requires that it also be the action executed on the following step.
type SARSAStep struct {
	State      env.State
	Action     int
	Reward     float64
	NextState  env.State
	NextAction int
	Done       bool
}

// SARSA is on-policy TD control: A' is selected epsilon-greedily from Q at
// the next state before the update, used as the bootstrap target, and then
// executed as-is on the following step. Terminal and truncating steps use
// the bootstrap-free update Q += alpha*(R - Q).
type SARSA struct {
	environment env.Environment
	hp          rl.Hyperparams
	rng         *rand.Rand
	q           *rl.QTable
	episodes    int
	history     rl.History
	trace       []SARSAStep
}

// NewSARSA returns a SARSA control engine with a uniformly seeded Q-table.
func NewSARSA(environment env.Environment, hp rl.Hyperparams) *SARSA {
	return &SARSA{
		environment: environment,
		hp:          hp,
		rng:         rl.NewRand(hp.Seed),
		q:           rl.NewQTable(environment.NumActions()),
	}
}

// TotalUnits returns the configured episode count.
func (e *SARSA) TotalUnits() int {
	return e.hp.Episodes
}

// RunIncrement runs one on-policy episode.
func (e *SARSA) RunIncrement() (Increment, error) {
	if e.episodes >= e.hp.Episodes {
		return Increment{Unit: e.episodes, Done: true}, nil
	}
	e.episodes++
	e.trace = e.trace[:0]

	total := 0.0
	state := e.environment.Reset()
	action := epsilonGreedy(e.q, state, e.hp.Epsilon, e.rng)
	for {
		t := e.environment.Step(action)
		total += t.Reward

		old := e.q.Get(state, action)
		if t.Done() {
			e.q.Set(state, action, old+e.hp.Alpha*(t.Reward-old))
			e.trace = append(e.trace, SARSAStep{
				State: state, Action: action, Reward: t.Reward,
				NextState: t.NextState, NextAction: -1, Done: true,
			})
			break
		}

		nextAction := epsilonGreedy(e.q, t.NextState, e.hp.Epsilon, e.rng)
		target := t.Reward + e.hp.Gamma*e.q.Get(t.NextState, nextAction)
		e.q.Set(state, action, old+e.hp.Alpha*(target-old))
		e.trace = append(e.trace, SARSAStep{
			State: state, Action: action, Reward: t.Reward,
			NextState: t.NextState, NextAction: nextAction,
		})

		state = t.NextState
		action = nextAction
	}

	e.history.EpisodeRewards = append(e.history.EpisodeRewards, total)
	return Increment{Unit: e.episodes, Reward: total, Done: e.episodes >= e.hp.Episodes}, nil
}

// Trace returns the per-step record of the most recent episode.
func (e *SARSA) Trace() []SARSAStep {
	return append([]SARSAStep(nil), e.trace...)
}

// Snapshot returns the Q-table, its implied value function, and the greedy
// policy.
func (e *SARSA) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.q.Values(),
		Q:       e.q.Clone(),
		Policy:  e.q.GreedyPolicy(),
		History: e.history.Clone(),
	}
}

// NStepTD estimates state values with n-step returns: G = sum_{k=0}^{n-1}
// gamma^k R_{t+k+1} + gamma^n V(S_{t+n}), bootstrapping only when the
// window is full and using the shorter tail returns at episode end. n=1
// matches TD(0); n at the episode length matches Monte Carlo returns.
type NStepTD struct {
	environment env.Environment
	hp          rl.Hyperparams
	rng         *rand.Rand
	values      *rl.ValueFunction
	episodes    int
	history     rl.History
}

// NewNStepTD returns an n-step TD prediction engine.
func NewNStepTD(environment env.Environment, hp rl.Hyperparams) *NStepTD {
	return &NStepTD{
		environment: environment,
		hp:          hp,
		rng:         rl.NewRand(hp.Seed),
		values:      rl.NewValueFunction(),
	}
}

// TotalUnits returns the configured episode count.
func (e *NStepTD) TotalUnits() int {
	return e.hp.Episodes
}

// RunIncrement rolls one episode under a uniform random policy, then applies
// the n-step updates over the recorded states and rewards.
func (e *NStepTD) RunIncrement() (Increment, error) {
	if e.episodes >= e.hp.Episodes {
		return Increment{Unit: e.episodes, Done: true}, nil
	}
	e.episodes++

	states := []env.State{e.environment.Reset()}
	var rewards []float64
	for {
		t := e.environment.Step(e.rng.Intn(e.environment.NumActions()))
		rewards = append(rewards, t.Reward)
		states = append(states, t.NextState)
		if t.Done() {
			break
		}
	}

	n := e.hp.NSteps
	horizon := len(rewards)
	for t := 0; t < horizon; t++ {
		end := min(t+n, horizon)
		g := 0.0
		for k := t; k < end; k++ {
			g += math.Pow(e.hp.Gamma, float64(k-t)) * rewards[k]
		}
		if end < horizon {
			// Full window: bootstrap on the state n steps ahead.
			g += math.Pow(e.hp.Gamma, float64(n)) * e.values.Get(states[end])
		}
		old := e.values.Get(states[t])
		e.values.Set(states[t], old+e.hp.Alpha*(g-old))
	}

	total := episodeRewardFloats(rewards)
	e.history.EpisodeRewards = append(e.history.EpisodeRewards, total)
	return Increment{Unit: e.episodes, Reward: total, Done: e.episodes >= e.hp.Episodes}, nil
}

// Snapshot returns the current value estimates.
func (e *NStepTD) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.values.Clone(),
		History: e.history.Clone(),
	}
}

func episodeRewardFloats(rewards []float64) float64 {
	total := 0.0
	for _, r := range rewards {
		total += r
	}
	return total
}
