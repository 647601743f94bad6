package engines

import (
	"fmt"
	"math"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// ValueIteration sweeps the full state set synchronously, backing each state
// up with the best one-step return. Terminal states are pinned at value 0
// and excluded from the max. Convergence is delta < theta; exceeding the
// sweep safety bound is a convergence failure.
type ValueIteration struct {
	environment env.Environment
	hp          rl.Hyperparams
	states      []env.State
	values      *rl.ValueFunction
	sweeps      int
	lastDelta   float64
	converged   bool
	history     rl.History
}

// NewValueIteration returns a value iteration engine over the environment's
// enumerated states.
func NewValueIteration(environment env.Environment, hp rl.Hyperparams) *ValueIteration {
	e := &ValueIteration{
		environment: environment,
		hp:          hp,
		states:      environment.EnumerateStates(),
		values:      rl.NewValueFunction(),
	}
	for _, state := range e.states {
		e.values.Set(state, 0)
	}
	return e
}

// TotalUnits returns 0: value iteration runs until convergence.
func (e *ValueIteration) TotalUnits() int {
	return 0
}

// RunIncrement performs one full synchronous sweep.
func (e *ValueIteration) RunIncrement() (Increment, error) {
	if e.converged {
		return Increment{Unit: e.sweeps, Delta: e.lastDelta, Done: true}, nil
	}
	if e.sweeps >= e.hp.SweepBound() {
		return Increment{}, fmt.Errorf("%w: delta %g after %d sweeps", rl.ErrConvergenceFailure, e.lastDelta, e.sweeps)
	}
	e.sweeps++

	delta := 0.0
	for _, state := range e.states {
		if e.environment.Terminal(state) {
			e.values.Set(state, 0)
			continue
		}
		old := e.values.Get(state)
		best := math.Inf(-1)
		for action := 0; action < e.environment.NumActions(); action++ {
			if value := backup(e.environment, e.values, state, action, e.hp.Gamma); value > best {
				best = value
			}
		}
		e.values.Set(state, best)
		delta = math.Max(delta, math.Abs(old-best))
	}

	e.lastDelta = delta
	e.history.Deltas = append(e.history.Deltas, delta)
	e.converged = delta < e.hp.Theta
	return Increment{Unit: e.sweeps, Delta: delta, Done: e.converged}, nil
}

// Snapshot returns the current value function and the greedy policy derived
// from it.
func (e *ValueIteration) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.values.Clone(),
		Policy:  greedyPolicy(e.environment, e.values, e.hp.Gamma),
		History: e.history.Clone(),
	}
}

// PolicyIteration alternates full policy evaluation with a greedy
// improvement sweep. One increment is one evaluation+improvement pair; the
// engine terminates when improvement leaves the policy unchanged.
type PolicyIteration struct {
	environment env.Environment
	hp          rl.Hyperparams
	states      []env.State
	values      *rl.ValueFunction
	policy      rl.Policy
	iterations  int
	totalSweeps int
	lastDelta   float64
	stable      bool
	history     rl.History
}

// NewPolicyIteration returns a policy iteration engine starting from a
// uniformly random policy.
func NewPolicyIteration(environment env.Environment, hp rl.Hyperparams) *PolicyIteration {
	rng := rl.NewRand(hp.Seed)
	e := &PolicyIteration{
		environment: environment,
		hp:          hp,
		states:      environment.EnumerateStates(),
		values:      rl.NewValueFunction(),
		policy:      make(rl.Policy),
	}
	for _, state := range e.states {
		e.values.Set(state, 0)
		e.policy[state] = rng.Intn(environment.NumActions())
	}
	return e
}

// TotalUnits returns 0: policy iteration runs until the policy is stable.
func (e *PolicyIteration) TotalUnits() int {
	return 0
}

// RunIncrement evaluates the current policy to theta, then improves it.
func (e *PolicyIteration) RunIncrement() (Increment, error) {
	if e.stable {
		return Increment{Unit: e.iterations, Delta: e.lastDelta, Done: true}, nil
	}

	if err := e.evaluate(); err != nil {
		return Increment{}, err
	}
	e.iterations++
	e.stable = e.improve()

	e.history.Deltas = append(e.history.Deltas, e.lastDelta)
	return Increment{Unit: e.iterations, Delta: e.lastDelta, Done: e.stable}, nil
}

// Snapshot returns the current value function and policy.
func (e *PolicyIteration) Snapshot() rl.Result {
	return rl.Result{
		Values:  e.values.Clone(),
		Policy:  e.policy.Clone(),
		History: e.history.Clone(),
	}
}

// evaluate runs in-place policy evaluation sweeps until the inner delta
// drops below theta, charging each sweep against the shared safety bound.
func (e *PolicyIteration) evaluate() error {
	for {
		if e.totalSweeps >= e.hp.SweepBound() {
			return fmt.Errorf("%w: delta %g after %d evaluation sweeps", rl.ErrConvergenceFailure, e.lastDelta, e.totalSweeps)
		}
		e.totalSweeps++

		delta := 0.0
		for _, state := range e.states {
			if e.environment.Terminal(state) {
				e.values.Set(state, 0)
				continue
			}
			old := e.values.Get(state)
			value := backup(e.environment, e.values, state, e.policy[state], e.hp.Gamma)
			e.values.Set(state, value)
			delta = math.Max(delta, math.Abs(old-value))
		}
		e.lastDelta = delta
		if delta < e.hp.Theta {
			return nil
		}
	}
}

// improve recomputes the greedy action for every state and reports whether
// the policy survived unchanged.
func (e *PolicyIteration) improve() bool {
	stable := true
	for _, state := range e.states {
		if e.environment.Terminal(state) {
			continue
		}
		best := greedyAction(e.environment, e.values, state, e.hp.Gamma)
		if e.policy[state] != best {
			e.policy[state] = best
			stable = false
		}
	}
	return stable
}

// backup computes the expected one-step return of (state, action) under the
// current values: sum_sp P(sp|s,a)[R + gamma*V(sp)*(1-terminated)].
func backup(environment env.Environment, values *rl.ValueFunction, state env.State, action int, gamma float64) float64 {
	total := 0.0
	for _, o := range environment.Model(state, action) {
		if o.Terminated {
			total += o.Probability * o.Reward
		} else {
			total += o.Probability * (o.Reward + gamma*values.Get(o.NextState))
		}
	}
	return total
}

func greedyAction(environment env.Environment, values *rl.ValueFunction, state env.State, gamma float64) int {
	row := make([]float64, environment.NumActions())
	for action := range row {
		row[action] = backup(environment, values, state, action, gamma)
	}
	return rl.ArgmaxTieLow(row)
}

// greedyPolicy derives the argmax policy over the same backup used by the
// sweeps, for every non-terminal enumerated state.
func greedyPolicy(environment env.Environment, values *rl.ValueFunction, gamma float64) rl.Policy {
	policy := make(rl.Policy)
	for _, state := range environment.EnumerateStates() {
		if environment.Terminal(state) {
			continue
		}
		policy[state] = greedyAction(environment, values, state, gamma)
	}
	return policy
}
