package envs

import (
	"fmt"
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// Breakout action enumeration.
const (
	BreakoutActionStay = iota
	BreakoutActionLeft
	BreakoutActionRight
	breakoutNumActions
)

// Ball direction enumeration.
const (
	BallUpLeft = iota
	BallUpRight
	BallDownLeft
	BallDownRight
	numBallDirections
)

const (
	defaultBreakoutMaxSteps  = 200
	defaultBreakoutBrickRows = 2
)

// Breakout is the paddle/ball environment: +1 per brick destroyed, 0
// otherwise. An episode terminates when every brick is cleared or the ball
// passes the paddle row, and truncates at the step cap. The paddle occupies
// the bottom row; bricks fill the top rows.
type Breakout struct {
	size      int
	maxSteps  int
	brickRows int
	fullMask  uint64
	rng       *rand.Rand

	state env.BreakoutState
	steps int
}

// NewBreakout builds a breakout environment from cfg. rng draws the initial
// ball direction; nil seeds from the clock.
func NewBreakout(cfg env.Config, rng *rand.Rand) (*Breakout, error) {
	if cfg.GridSize < 4 {
		return nil, fmt.Errorf("%w: grid size %d must be at least 4", rl.ErrInvalidEnvironmentConfig, cfg.GridSize)
	}
	brickRows := cfg.BrickRows
	if brickRows == 0 {
		brickRows = defaultBreakoutBrickRows
	}
	if brickRows < 1 || brickRows > cfg.GridSize-3 {
		return nil, fmt.Errorf("%w: brick rows %d outside [1, %d]", rl.ErrInvalidEnvironmentConfig, cfg.BrickRows, cfg.GridSize-3)
	}
	if cfg.GridSize*brickRows > 64 {
		return nil, fmt.Errorf("%w: %d bricks exceed the 64-brick mask", rl.ErrInvalidEnvironmentConfig, cfg.GridSize*brickRows)
	}
	maxSteps := cfg.MaxSteps
	if maxSteps == 0 {
		maxSteps = defaultBreakoutMaxSteps
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("%w: max steps %d must be positive", rl.ErrInvalidEnvironmentConfig, cfg.MaxSteps)
	}
	if rng == nil {
		rng = rl.NewRand(0)
	}

	b := &Breakout{
		size:      cfg.GridSize,
		maxSteps:  maxSteps,
		brickRows: brickRows,
		fullMask:  (uint64(1) << (cfg.GridSize * brickRows)) - 1,
		rng:       rng,
	}
	b.Reset()
	return b, nil
}

// NumActions returns 3: stay, left, right.
func (b *Breakout) NumActions() int {
	return breakoutNumActions
}

// Reset centers the paddle, places the ball two rows above the paddle with a
// random upward direction, and restores every brick.
func (b *Breakout) Reset() env.State {
	b.state = env.BreakoutState{
		PaddleX:   b.size / 2,
		BallX:     b.size / 2,
		BallY:     b.size - 2,
		BallDir:   b.rng.Intn(2), // up-left or up-right
		BrickMask: b.fullMask,
	}
	b.steps = 0
	return b.state
}

// Restore places the environment at an arbitrary state with a fresh step
// budget.
func (b *Breakout) Restore(state env.State) error {
	s, ok := state.(env.BreakoutState)
	if !ok || s.PaddleX < 0 || s.PaddleX >= b.size ||
		s.BallX < 0 || s.BallX >= b.size || s.BallY < 0 || s.BallY >= b.size ||
		s.BallDir < 0 || s.BallDir >= numBallDirections || s.BrickMask > b.fullMask {
		return fmt.Errorf("%w: state %v is not a valid breakout state", rl.ErrInvalidEnvironmentConfig, state)
	}
	b.state = s
	b.steps = 0
	return nil
}

// Step moves the paddle, then advances the ball one cell.
func (b *Breakout) Step(action int) env.Transition {
	from := b.state
	next, reward, terminated := b.advance(from, action)
	b.state = next
	b.steps++

	t := env.Transition{
		State:      from,
		Action:     action,
		Reward:     reward,
		NextState:  next,
		Terminated: terminated,
	}
	if !terminated && b.steps >= b.maxSteps {
		t.Truncated = true
	}
	return t
}

// EnumerateStates returns the paddle/ball/direction states at the full brick
// mask. States reached after bricks break fall back to the value containers'
// default of 0.
func (b *Breakout) EnumerateStates() []env.State {
	states := make([]env.State, 0, b.size*b.size*b.size*numBallDirections)
	for paddle := 0; paddle < b.size; paddle++ {
		for ballX := 0; ballX < b.size; ballX++ {
			for ballY := 0; ballY < b.size; ballY++ {
				for dir := 0; dir < numBallDirections; dir++ {
					states = append(states, env.BreakoutState{
						PaddleX:   paddle,
						BallX:     ballX,
						BallY:     ballY,
						BallDir:   dir,
						BrickMask: b.fullMask,
					})
				}
			}
		}
	}
	return states
}

// Terminal reports whether state ends an episode: all bricks cleared, or the
// ball on the paddle row away from the paddle.
func (b *Breakout) Terminal(state env.State) bool {
	s, ok := state.(env.BreakoutState)
	if !ok {
		return false
	}
	if s.BrickMask == 0 {
		return true
	}
	return s.BallY >= b.size-1 && s.BallX != s.PaddleX
}

// Model returns the deterministic single-outcome distribution.
func (b *Breakout) Model(state env.State, action int) []env.Outcome {
	s := state.(env.BreakoutState)
	next, reward, terminated := b.advance(s, action)
	return []env.Outcome{{
		Probability: 1,
		NextState:   next,
		Reward:      reward,
		Terminated:  terminated,
	}}
}

// BricksRemaining returns the number of bricks left in the current state.
func (b *Breakout) BricksRemaining() int {
	count := 0
	for mask := b.state.BrickMask; mask != 0; mask &= mask - 1 {
		count++
	}
	return count
}

// Snapshot returns the renderable state of the environment.
func (b *Breakout) Snapshot() map[string]any {
	return map[string]any{
		"paddlePosition": b.state.PaddleX,
		"ballPosition":   []int{b.state.BallX, b.state.BallY},
		"ballDirection":  b.state.BallDir,
		"brickMask":      b.state.BrickMask,
		"bricks":         b.brickCells(b.state.BrickMask),
		"gridSize":       b.size,
		"currentStep":    b.steps,
		"maxSteps":       b.maxSteps,
		"numBrickRows":   b.brickRows,
	}
}

// advance applies the paddle action and one ball movement to s.
func (b *Breakout) advance(s env.BreakoutState, action int) (env.BreakoutState, float64, bool) {
	switch action {
	case BreakoutActionLeft:
		s.PaddleX = max(0, s.PaddleX-1)
	case BreakoutActionRight:
		s.PaddleX = min(b.size-1, s.PaddleX+1)
	}

	dx, dy := 1, 1
	if s.BallDir == BallUpLeft || s.BallDir == BallDownLeft {
		dx = -1
	}
	if s.BallDir == BallUpLeft || s.BallDir == BallUpRight {
		dy = -1
	}

	newX := s.BallX + dx
	newY := s.BallY + dy

	// Wall and ceiling bounces.
	if newX < 0 || newX >= b.size {
		dx = -dx
		newX = s.BallX + dx
	}
	if newY < 0 {
		dy = -dy
		newY = s.BallY + dy
	}
	newDir := directionFor(dx, dy)

	reward := 0.0
	done := false
	mask := s.BrickMask
	if bit, ok := b.brickBit(newX, newY); ok && mask&(1<<bit) != 0 {
		mask &^= 1 << bit
		newDir = (newDir + 2) % numBallDirections
		reward = 1
	}

	// Paddle row: reflect on the paddle, otherwise the ball is lost.
	if newY >= b.size-1 {
		if newX == s.PaddleX {
			if newDir == BallDownLeft {
				newDir = BallUpLeft
			} else {
				newDir = BallUpRight
			}
		} else {
			done = true
		}
	}

	if mask == 0 {
		done = true
	}

	s.BallX = newX
	s.BallY = newY
	s.BallDir = newDir
	s.BrickMask = mask
	return s, reward, done
}

func (b *Breakout) brickBit(x, y int) (int, bool) {
	if y < 0 || y >= b.brickRows || x < 0 || x >= b.size {
		return 0, false
	}
	return y*b.size + x, true
}

func (b *Breakout) brickCells(mask uint64) []env.GridState {
	var cells []env.GridState
	for y := 0; y < b.brickRows; y++ {
		for x := 0; x < b.size; x++ {
			if mask&(1<<(y*b.size+x)) != 0 {
				cells = append(cells, env.GridState{X: x, Y: y})
			}
		}
	}
	return cells
}

func directionFor(dx, dy int) int {
	switch {
	case dx < 0 && dy < 0:
		return BallUpLeft
	case dx > 0 && dy < 0:
		return BallUpRight
	case dx < 0:
		return BallDownLeft
	default:
		return BallDownRight
	}
}
