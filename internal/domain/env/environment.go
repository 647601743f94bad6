// Package env defines the discrete environment contract consumed by the
// algorithm engines: a finite state/action model with episode stepping and,
// for dynamic programming, an explicit one-step transition distribution.
package env

import "fmt"

// State is an opaque, immutable, hashable environment state. Concrete state
// types are comparable structs so they can be used as map keys directly.
type State interface {
	// Key returns the stable textual form used when states cross the module
	// boundary inside value/policy mappings.
	Key() string
}

// Transition is the result of applying an action to the current state.
// Terminated and Truncated are mutually exclusive per step.
type Transition struct {
	State      State   `json:"state"`
	Action     int     `json:"action"`
	Reward     float64 `json:"reward"`
	NextState  State   `json:"nextState"`
	Terminated bool    `json:"terminated"`
	Truncated  bool    `json:"truncated"`
}

// Done reports whether the transition ends the episode.
func (t Transition) Done() bool {
	return t.Terminated || t.Truncated
}

// Outcome is one entry of the one-step transition distribution used by the
// dynamic programming engines. Deterministic environments produce a single
// entry with probability 1.
type Outcome struct {
	Probability float64
	NextState   State
	Reward      float64
	Terminated  bool
}

// Environment is the discrete state/action model shared by all engines.
// Implementations are stateful: Reset places the environment at its start
// state and Step advances it.
type Environment interface {
	// NumActions returns the size of the action enumeration.
	NumActions() int

	// Reset places the environment at its start state and returns it.
	Reset() State

	// Step applies an action to the current state and returns the resulting
	// transition.
	Step(action int) Transition

	// EnumerateStates returns the finite state set fixed by configuration.
	EnumerateStates() []State

	// Terminal reports whether the given state ends an episode on entry.
	Terminal(state State) bool

	// Model returns the full one-step distribution for (state, action).
	// Only the dynamic programming engines use it.
	Model(state State, action int) []Outcome
}

// Restorer is implemented by environments that can be placed at an arbitrary
// state, as the trajectory simulator requires for custom start states.
type Restorer interface {
	Restore(state State) error
}

// Snapshotter is implemented by environments that expose a renderable state
// snapshot for callers outside the core.
type Snapshotter interface {
	Snapshot() map[string]any
}

// ============================================================================
// Concrete States
// ============================================================================

// GridState is the 2D coordinate state used by the grid environments.
type GridState struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key returns the "(x, y)" form of the cell.
func (s GridState) Key() string {
	return fmt.Sprintf("(%d, %d)", s.X, s.Y)
}

// BreakoutState is the composite paddle/ball/brick state of the breakout
// environment. BrickMask holds one bit per brick, indexed row-major from the
// top-left brick.
type BreakoutState struct {
	PaddleX   int    `json:"paddleX"`
	BallX     int    `json:"ballX"`
	BallY     int    `json:"ballY"`
	BallDir   int    `json:"ballDir"`
	BrickMask uint64 `json:"brickMask"`
}

// Key returns the "(x, y)" form of the ball position, the cell the state is
// projected onto when values cross the boundary as grid mappings.
func (s BreakoutState) Key() string {
	return fmt.Sprintf("(%d, %d)", s.BallX, s.BallY)
}

// Config parameterizes one of the concrete environments. Fields that do not
// apply to the selected environment are ignored by its constructor.
type Config struct {
	// GridSize is the side length of the square grid.
	GridSize int `json:"gridSize"`

	// MaxSteps is the per-episode step budget; 0 selects the environment's
	// default.
	MaxSteps int `json:"maxSteps"`

	// Start overrides the agent start cell (gridworld only).
	Start *GridState `json:"start,omitempty"`

	// Goal overrides the goal cell (gridworld only).
	Goal *GridState `json:"goal,omitempty"`

	// Slippery enables the stochastic slip model (frozen lake only).
	Slippery bool `json:"slippery"`

	// BrickRows is the number of brick rows (breakout only); 0 selects the
	// default of 2.
	BrickRows int `json:"brickRows"`
}
