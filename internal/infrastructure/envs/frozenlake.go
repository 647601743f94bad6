package envs

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

const defaultFrozenLakeMaxSteps = 100

// Cell markers of the lake map.
const (
	cellStart  = 'S'
	cellFrozen = 'F'
	cellHole   = 'H'
	cellGoal   = 'G'
)

// Canonical lake layouts for the standard sizes; other sizes get a random
// layout with roughly one hole per five cells.
var lakeMaps = map[int][]string{
	4: {
		"SFFF",
		"FHFH",
		"FFFH",
		"HFFG",
	},
	8: {
		"SFFFFFFF",
		"FFFFFFFF",
		"FFFHFFFF",
		"FFFFFHFF",
		"FFFHFFFF",
		"FHHFFFHF",
		"FHFFHFHF",
		"FFFHFFFG",
	},
}

// perpendicular maps each intended direction to its two orthogonal slips.
var perpendicular = map[int][2]int{
	GridActionUp:    {GridActionLeft, GridActionRight},
	GridActionDown:  {GridActionLeft, GridActionRight},
	GridActionLeft:  {GridActionUp, GridActionDown},
	GridActionRight: {GridActionUp, GridActionDown},
}

// FrozenLake is the stochastic "icy" grid: 0 reward per step, -1 on stepping
// into a hole (terminal), +1 on reaching the goal (terminal). With
// slipperiness enabled, each step moves in the intended direction or one of
// the two orthogonal directions with probability 1/3 each; slips clamp at
// the boundary like ordinary moves.
type FrozenLake struct {
	size     int
	maxSteps int
	slippery bool
	lakeMap  []string
	start    env.GridState
	goal     env.GridState
	rng      *rand.Rand

	agent env.GridState
	steps int
}

// NewFrozenLake builds a frozen lake from cfg. rng drives slip draws and
// random map generation for non-standard sizes; nil seeds from the clock.
func NewFrozenLake(cfg env.Config, rng *rand.Rand) (*FrozenLake, error) {
	if cfg.GridSize < 2 {
		return nil, fmt.Errorf("%w: grid size %d must be at least 2", rl.ErrInvalidEnvironmentConfig, cfg.GridSize)
	}
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultFrozenLakeMaxSteps
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("%w: max steps %d must be positive", rl.ErrInvalidEnvironmentConfig, cfg.MaxSteps)
	}
	if rng == nil {
		rng = rl.NewRand(0)
	}

	lakeMap, ok := lakeMaps[cfg.GridSize]
	if !ok {
		var err error
		lakeMap, err = generateLakeMap(cfg.GridSize, rng)
		if err != nil {
			return nil, err
		}
	}

	l := &FrozenLake{
		size:     cfg.GridSize,
		maxSteps: maxSteps,
		slippery: cfg.Slippery,
		lakeMap:  lakeMap,
		rng:      rng,
	}
	l.start = l.findCell(cellStart)
	l.goal = l.findCell(cellGoal)
	if l.start == l.goal {
		return nil, fmt.Errorf("%w: lake map has no distinct start and goal", rl.ErrInvalidEnvironmentConfig)
	}
	l.Reset()
	return l, nil
}

// NumActions returns 4: up, down, left, right.
func (l *FrozenLake) NumActions() int {
	return gridNumActions
}

// Reset places the agent at the start cell.
func (l *FrozenLake) Reset() env.State {
	l.agent = l.start
	l.steps = 0
	return l.agent
}

// Restore places the agent at an arbitrary cell with a fresh step budget.
func (l *FrozenLake) Restore(state env.State) error {
	cell, ok := state.(env.GridState)
	if !ok || !inBounds(cell, l.size) {
		return fmt.Errorf("%w: state %v is not a cell of a %dx%d lake", rl.ErrInvalidEnvironmentConfig, state, l.size, l.size)
	}
	l.agent = cell
	l.steps = 0
	return nil
}

// Step moves the agent; with slipperiness the executed direction is drawn
// from the slip distribution.
func (l *FrozenLake) Step(action int) env.Transition {
	executed := action
	if l.slippery {
		switch l.rng.Intn(3) {
		case 1:
			executed = perpendicular[action][0]
		case 2:
			executed = perpendicular[action][1]
		}
	}

	from := l.agent
	l.agent = applyGridAction(l.agent, executed, l.size)
	l.steps++

	t := env.Transition{
		State:     from,
		Action:    action,
		NextState: l.agent,
	}
	reward, terminated := l.cellOutcome(l.agent)
	t.Reward = reward
	t.Terminated = terminated
	if !terminated && l.steps >= l.maxSteps {
		t.Truncated = true
	}
	return t
}

// EnumerateStates returns every cell of the lake.
func (l *FrozenLake) EnumerateStates() []env.State {
	states := make([]env.State, 0, l.size*l.size)
	for x := 0; x < l.size; x++ {
		for y := 0; y < l.size; y++ {
			states = append(states, env.GridState{X: x, Y: y})
		}
	}
	return states
}

// Terminal reports whether state is a hole or the goal.
func (l *FrozenLake) Terminal(state env.State) bool {
	cell, ok := state.(env.GridState)
	if !ok {
		return false
	}
	c := l.Cell(cell.X, cell.Y)
	return c == cellHole || c == cellGoal
}

// Model returns the one-step distribution: a single entry when the surface
// is not slippery, otherwise up to three entries with equal probability.
// Slips that collapse onto the same next state are aggregated.
func (l *FrozenLake) Model(state env.State, action int) []env.Outcome {
	cell := state.(env.GridState)
	if !l.slippery {
		return []env.Outcome{l.outcomeFor(cell, action, 1)}
	}

	directions := []int{action, perpendicular[action][0], perpendicular[action][1]}
	outcomes := make([]env.Outcome, 0, len(directions))
	for _, direction := range directions {
		outcome := l.outcomeFor(cell, direction, 1.0/3.0)
		merged := false
		for i := range outcomes {
			if outcomes[i].NextState == outcome.NextState {
				outcomes[i].Probability += outcome.Probability
				merged = true
				break
			}
		}
		if !merged {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// Map returns the lake layout as rows of cell markers.
func (l *FrozenLake) Map() []string {
	return append([]string(nil), l.lakeMap...)
}

// Holes returns every hole cell.
func (l *FrozenLake) Holes() []env.GridState {
	var holes []env.GridState
	for y, row := range l.lakeMap {
		for x := 0; x < len(row); x++ {
			if row[x] == cellHole {
				holes = append(holes, env.GridState{X: x, Y: y})
			}
		}
	}
	return holes
}

// Cell returns the marker at (x, y), treating out-of-bounds cells as frozen.
func (l *FrozenLake) Cell(x, y int) byte {
	if x < 0 || x >= l.size || y < 0 || y >= l.size {
		return cellFrozen
	}
	return l.lakeMap[y][x]
}

// Snapshot returns the renderable state of the environment.
func (l *FrozenLake) Snapshot() map[string]any {
	return map[string]any{
		"agentPosition": l.agent,
		"goalPosition":  l.goal,
		"gridSize":      l.size,
		"currentStep":   l.steps,
		"maxSteps":      l.maxSteps,
		"lakeMap":       l.Map(),
		"holes":         l.Holes(),
		"isSlippery":    l.slippery,
	}
}

func (l *FrozenLake) outcomeFor(cell env.GridState, direction int, probability float64) env.Outcome {
	next := applyGridAction(cell, direction, l.size)
	reward, terminated := l.cellOutcome(next)
	return env.Outcome{
		Probability: probability,
		NextState:   next,
		Reward:      reward,
		Terminated:  terminated,
	}
}

func (l *FrozenLake) cellOutcome(cell env.GridState) (float64, bool) {
	switch l.Cell(cell.X, cell.Y) {
	case cellHole:
		return -1, true
	case cellGoal:
		return 1, true
	}
	return 0, false
}

func (l *FrozenLake) findCell(marker byte) env.GridState {
	for y, row := range l.lakeMap {
		if x := strings.IndexByte(row, marker); x >= 0 {
			return env.GridState{X: x, Y: y}
		}
	}
	return env.GridState{}
}

// generateLakeMapAttempts bounds the rejection-sampling loop for random
// layouts; at one hole per five cells an unreachable goal is rare, so the
// bound only guards against degenerate sizes.
const generateLakeMapAttempts = 100

func generateLakeMap(size int, rng *rand.Rand) ([]string, error) {
	holes := max(1, (size*size-2)/5)
	for attempt := 0; attempt < generateLakeMapAttempts; attempt++ {
		grid := make([][]byte, size)
		for y := range grid {
			grid[y] = []byte(strings.Repeat(string(cellFrozen), size))
		}
		grid[0][0] = cellStart
		grid[size-1][size-1] = cellGoal

		for placed := 0; placed < holes; {
			x, y := rng.Intn(size), rng.Intn(size)
			if grid[y][x] == cellFrozen {
				grid[y][x] = cellHole
				placed++
			}
		}
		if !goalReachable(grid, size) {
			continue
		}

		rows := make([]string, size)
		for y := range grid {
			rows[y] = string(grid[y])
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: no %dx%d lake layout with a reachable goal after %d attempts",
		rl.ErrInvalidEnvironmentConfig, size, size, generateLakeMapAttempts)
}

// goalReachable walks the non-hole cells from the start and reports whether
// the goal is connected.
func goalReachable(grid [][]byte, size int) bool {
	visited := make([]bool, size*size)
	queue := []env.GridState{{X: 0, Y: 0}}
	visited[0] = true
	for len(queue) > 0 {
		cell := queue[0]
		queue = queue[1:]
		if grid[cell.Y][cell.X] == cellGoal {
			return true
		}
		for action := 0; action < gridNumActions; action++ {
			next := applyGridAction(cell, action, size)
			index := next.Y*size + next.X
			if visited[index] || grid[next.Y][next.X] == cellHole {
				continue
			}
			visited[index] = true
			queue = append(queue, next)
		}
	}
	return false
}
