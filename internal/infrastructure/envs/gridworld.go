// Package envs implements the concrete environments behind the env contract:
// deterministic grid navigation, the stochastic frozen lake, and the
// paddle/ball breakout variant.
package envs

import (
	"fmt"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// Gridworld action enumeration.
const (
	GridActionUp = iota
	GridActionDown
	GridActionLeft
	GridActionRight
	gridNumActions
)

const defaultGridworldMaxSteps = 50

// Gridworld is the deterministic grid-navigation environment: -1 per
// non-terminal step, +10 on reaching the goal, truncation at the step cap.
// Moves off the boundary are no-ops that still charge the step reward.
type Gridworld struct {
	size     int
	maxSteps int
	start    env.GridState
	goal     env.GridState

	agent env.GridState
	steps int
}

// NewGridworld builds a gridworld from cfg. Start defaults to the top-left
// cell and goal to the bottom-right cell.
func NewGridworld(cfg env.Config) (*Gridworld, error) {
	if cfg.GridSize < 2 {
		return nil, fmt.Errorf("%w: grid size %d must be at least 2", rl.ErrInvalidEnvironmentConfig, cfg.GridSize)
	}
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultGridworldMaxSteps
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("%w: max steps %d must be positive", rl.ErrInvalidEnvironmentConfig, cfg.MaxSteps)
	}

	start := env.GridState{X: 0, Y: 0}
	if cfg.Start != nil {
		start = *cfg.Start
	}
	goal := env.GridState{X: cfg.GridSize - 1, Y: cfg.GridSize - 1}
	if cfg.Goal != nil {
		goal = *cfg.Goal
	}
	if !inBounds(start, cfg.GridSize) {
		return nil, fmt.Errorf("%w: start %s outside %dx%d grid", rl.ErrInvalidEnvironmentConfig, start.Key(), cfg.GridSize, cfg.GridSize)
	}
	if !inBounds(goal, cfg.GridSize) {
		return nil, fmt.Errorf("%w: goal %s outside %dx%d grid", rl.ErrInvalidEnvironmentConfig, goal.Key(), cfg.GridSize, cfg.GridSize)
	}
	if start == goal {
		return nil, fmt.Errorf("%w: start and goal are both %s", rl.ErrInvalidEnvironmentConfig, start.Key())
	}

	g := &Gridworld{
		size:     cfg.GridSize,
		maxSteps: maxSteps,
		start:    start,
		goal:     goal,
	}
	g.Reset()
	return g, nil
}

// NumActions returns 4: up, down, left, right.
func (g *Gridworld) NumActions() int {
	return gridNumActions
}

// Reset places the agent at the start cell.
func (g *Gridworld) Reset() env.State {
	g.agent = g.start
	g.steps = 0
	return g.agent
}

// Restore places the agent at an arbitrary cell with a fresh step budget.
func (g *Gridworld) Restore(state env.State) error {
	cell, ok := state.(env.GridState)
	if !ok || !inBounds(cell, g.size) {
		return fmt.Errorf("%w: state %v is not a cell of a %dx%d grid", rl.ErrInvalidEnvironmentConfig, state, g.size, g.size)
	}
	g.agent = cell
	g.steps = 0
	return nil
}

// Step moves the agent, clamping at the boundary.
func (g *Gridworld) Step(action int) env.Transition {
	from := g.agent
	g.agent = applyGridAction(g.agent, action, g.size)
	g.steps++

	t := env.Transition{
		State:     from,
		Action:    action,
		Reward:    -1,
		NextState: g.agent,
	}
	if g.agent == g.goal {
		t.Reward = 10
		t.Terminated = true
	} else if g.steps >= g.maxSteps {
		t.Truncated = true
	}
	return t
}

// EnumerateStates returns every cell of the grid.
func (g *Gridworld) EnumerateStates() []env.State {
	states := make([]env.State, 0, g.size*g.size)
	for x := 0; x < g.size; x++ {
		for y := 0; y < g.size; y++ {
			states = append(states, env.GridState{X: x, Y: y})
		}
	}
	return states
}

// Terminal reports whether state is the goal cell.
func (g *Gridworld) Terminal(state env.State) bool {
	cell, ok := state.(env.GridState)
	return ok && cell == g.goal
}

// Model returns the deterministic single-outcome distribution.
func (g *Gridworld) Model(state env.State, action int) []env.Outcome {
	cell := state.(env.GridState)
	next := applyGridAction(cell, action, g.size)
	outcome := env.Outcome{
		Probability: 1,
		NextState:   next,
		Reward:      -1,
	}
	if next == g.goal {
		outcome.Reward = 10
		outcome.Terminated = true
	}
	return []env.Outcome{outcome}
}

// Snapshot returns the renderable state of the environment.
func (g *Gridworld) Snapshot() map[string]any {
	return map[string]any{
		"agentPosition": g.agent,
		"goalPosition":  g.goal,
		"gridSize":      g.size,
		"currentStep":   g.steps,
		"maxSteps":      g.maxSteps,
	}
}

func inBounds(cell env.GridState, size int) bool {
	return cell.X >= 0 && cell.X < size && cell.Y >= 0 && cell.Y < size
}

func applyGridAction(cell env.GridState, action, size int) env.GridState {
	switch action {
	case GridActionUp:
		cell.Y = max(0, cell.Y-1)
	case GridActionDown:
		cell.Y = min(size-1, cell.Y+1)
	case GridActionLeft:
		cell.X = max(0, cell.X-1)
	case GridActionRight:
		cell.X = min(size-1, cell.X+1)
	}
	return cell
}
