package rl

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
)

// ArgmaxTieLow returns the index of the largest value, breaking ties toward
// the lowest index for determinism.
func ArgmaxTieLow(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// ============================================================================
// Value Function
// ============================================================================

// ValueFunction maps states to value estimates, defaulting to 0 for unseen
// states.
type ValueFunction struct {
	values map[env.State]float64
}

// NewValueFunction returns an empty value function.
func NewValueFunction() *ValueFunction {
	return &ValueFunction{values: make(map[env.State]float64)}
}

// Get returns the estimate for state, 0 when unseen.
func (v *ValueFunction) Get(state env.State) float64 {
	return v.values[state]
}

// Set stores the estimate for state.
func (v *ValueFunction) Set(state env.State, value float64) {
	v.values[state] = value
}

// Len returns the number of states with stored estimates.
func (v *ValueFunction) Len() int {
	return len(v.values)
}

// States returns the states with stored estimates, in no particular order.
func (v *ValueFunction) States() []env.State {
	states := make([]env.State, 0, len(v.values))
	for state := range v.values {
		states = append(states, state)
	}
	return states
}

// Merge overwrites this function's estimates with those of other.
func (v *ValueFunction) Merge(other *ValueFunction) {
	for state, value := range other.values {
		v.values[state] = value
	}
}

// Clone returns an independent copy.
func (v *ValueFunction) Clone() *ValueFunction {
	clone := NewValueFunction()
	clone.Merge(v)
	return clone
}

// Mean returns the mean stored estimate, 0 when empty.
func (v *ValueFunction) Mean() float64 {
	if len(v.values) == 0 {
		return 0
	}
	values := make([]float64, 0, len(v.values))
	for _, value := range v.values {
		values = append(values, value)
	}
	return stat.Mean(values, nil)
}

// Snapshot returns the textual-key mapping handed across the boundary.
// States projecting onto the same key keep the largest value, matching how
// composite states collapse onto grid cells.
func (v *ValueFunction) Snapshot() map[string]float64 {
	snapshot := make(map[string]float64, len(v.values))
	for state, value := range v.values {
		key := state.Key()
		if existing, ok := snapshot[key]; !ok || value > existing {
			snapshot[key] = value
		}
	}
	return snapshot
}

// Sample returns at most limit entries of the snapshot, chosen by sorted key
// so repeated calls are deterministic.
func (v *ValueFunction) Sample(limit int) map[string]float64 {
	full := v.Snapshot()
	if limit <= 0 || len(full) <= limit {
		return full
	}
	keys := make([]string, 0, len(full))
	for key := range full {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	sample := make(map[string]float64, limit)
	for _, key := range keys[:limit] {
		sample[key] = full[key]
	}
	return sample
}

// ============================================================================
// Q-Table
// ============================================================================

// QTable maps states to per-action value rows, defaulting to 0 for unseen
// pairs.
type QTable struct {
	numActions int
	rows       map[env.State][]float64
}

// NewQTable returns an empty Q-table over the given action count.
func NewQTable(numActions int) *QTable {
	return &QTable{
		numActions: numActions,
		rows:       make(map[env.State][]float64),
	}
}

// NumActions returns the action count the table was built for.
func (q *QTable) NumActions() int {
	return q.numActions
}

// Row returns the action-value row for state, creating a zero row on first
// access. The returned slice is the live row.
func (q *QTable) Row(state env.State) []float64 {
	row, ok := q.rows[state]
	if !ok {
		row = make([]float64, q.numActions)
		q.rows[state] = row
	}
	return row
}

// Get returns the estimate for (state, action), 0 when unseen.
func (q *QTable) Get(state env.State, action int) float64 {
	if row, ok := q.rows[state]; ok {
		return row[action]
	}
	return 0
}

// Set stores the estimate for (state, action).
func (q *QTable) Set(state env.State, action int, value float64) {
	q.Row(state)[action] = value
}

// Best returns the greedy action for state and its value, ties broken toward
// the lowest action index.
func (q *QTable) Best(state env.State) (int, float64) {
	row, ok := q.rows[state]
	if !ok {
		return 0, 0
	}
	action := ArgmaxTieLow(row)
	return action, row[action]
}

// Len returns the number of states with stored rows.
func (q *QTable) Len() int {
	return len(q.rows)
}

// States returns the states with stored rows, in no particular order.
func (q *QTable) States() []env.State {
	states := make([]env.State, 0, len(q.rows))
	for state := range q.rows {
		states = append(states, state)
	}
	return states
}

// Clone returns an independent copy.
func (q *QTable) Clone() *QTable {
	clone := NewQTable(q.numActions)
	for state, row := range q.rows {
		copied := make([]float64, len(row))
		copy(copied, row)
		clone.rows[state] = copied
	}
	return clone
}

// Values returns the state-value function implied by the table, V(s) =
// max_a Q(s, a).
func (q *QTable) Values() *ValueFunction {
	values := NewValueFunction()
	for state, row := range q.rows {
		values.Set(state, row[ArgmaxTieLow(row)])
	}
	return values
}

// GreedyPolicy returns the greedy policy implied by the table.
func (q *QTable) GreedyPolicy() Policy {
	policy := make(Policy, len(q.rows))
	for state, row := range q.rows {
		policy[state] = ArgmaxTieLow(row)
	}
	return policy
}

// ============================================================================
// Policy
// ============================================================================

// Policy maps states to greedy actions.
type Policy map[env.State]int

// Action returns the policy's action for state, falling back to action 0 for
// states the policy never saw.
func (p Policy) Action(state env.State) int {
	return p[state]
}

// Clone returns an independent copy.
func (p Policy) Clone() Policy {
	clone := make(Policy, len(p))
	for state, action := range p {
		clone[state] = action
	}
	return clone
}

// Snapshot returns the textual-key mapping handed across the boundary.
func (p Policy) Snapshot() map[string]int {
	snapshot := make(map[string]int, len(p))
	for state, action := range p {
		snapshot[state.Key()] = action
	}
	return snapshot
}

// ============================================================================
// History and Results
// ============================================================================

// History accumulates per-increment training metrics: delta per sweep for
// dynamic programming, reward per episode for the episodic engines.
type History struct {
	Deltas         []float64 `json:"deltas,omitempty"`
	EpisodeRewards []float64 `json:"episodeRewards,omitempty"`
}

// Clone returns an independent copy.
func (h History) Clone() History {
	clone := History{}
	if h.Deltas != nil {
		clone.Deltas = append([]float64(nil), h.Deltas...)
	}
	if h.EpisodeRewards != nil {
		clone.EpisodeRewards = append([]float64(nil), h.EpisodeRewards...)
	}
	return clone
}

// RecentMeanReward returns the mean of the last n episode rewards, 0 when no
// episodes were recorded.
func (h History) RecentMeanReward(n int) float64 {
	rewards := h.EpisodeRewards
	if len(rewards) == 0 {
		return 0
	}
	if n > 0 && len(rewards) > n {
		rewards = rewards[len(rewards)-n:]
	}
	return stat.Mean(rewards, nil)
}

// Result is a snapshot of what an engine has learned so far: the value
// function, the Q-table for control engines, the derived greedy policy where
// one is derivable, and the metric history.
type Result struct {
	Values  *ValueFunction
	Q       *QTable
	Policy  Policy
	History History
}
