// Package rl provides the core domain types for tabular reinforcement
// learning: algorithm and environment identifiers, hyperparameters, and the
// value function, Q-table and policy containers shared by all engines.
package rl

import (
	"fmt"
	"math/rand"
	"time"
)

// ============================================================================
// Identifiers
// ============================================================================

// Algorithm identifies one of the supported training algorithms. The string
// values are the stable identifiers consumed from outside the core.
type Algorithm string

const (
	AlgorithmValueIteration       Algorithm = "value_iteration"
	AlgorithmPolicyIteration      Algorithm = "policy_iteration"
	AlgorithmMonteCarloFirstVisit Algorithm = "monte_carlo_first_visit"
	AlgorithmMonteCarloEveryVisit Algorithm = "monte_carlo_every_visit"
	AlgorithmMonteCarloControl    Algorithm = "monte_carlo_control"
	AlgorithmTDZero               Algorithm = "td_zero"
	AlgorithmSARSA                Algorithm = "sarsa"
	AlgorithmNStepTD              Algorithm = "n_step_td"
)

// Algorithms returns the closed set of supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmValueIteration,
		AlgorithmPolicyIteration,
		AlgorithmMonteCarloFirstVisit,
		AlgorithmMonteCarloEveryVisit,
		AlgorithmMonteCarloControl,
		AlgorithmTDZero,
		AlgorithmSARSA,
		AlgorithmNStepTD,
	}
}

// Valid reports whether a is a supported algorithm identifier.
func (a Algorithm) Valid() bool {
	for _, known := range Algorithms() {
		if a == known {
			return true
		}
	}
	return false
}

// Episodic reports whether the algorithm trains in episode increments rather
// than full dynamic programming sweeps.
func (a Algorithm) Episodic() bool {
	switch a {
	case AlgorithmValueIteration, AlgorithmPolicyIteration:
		return false
	}
	return true
}

// EnvironmentID identifies one of the supported environments.
type EnvironmentID string

const (
	EnvGridworld  EnvironmentID = "gridworld"
	EnvFrozenLake EnvironmentID = "frozen_lake"
	EnvBreakout   EnvironmentID = "breakout"
)

// Environments returns the closed set of supported environments.
func Environments() []EnvironmentID {
	return []EnvironmentID{EnvGridworld, EnvFrozenLake, EnvBreakout}
}

// Valid reports whether id is a supported environment identifier.
func (id EnvironmentID) Valid() bool {
	for _, known := range Environments() {
		if id == known {
			return true
		}
	}
	return false
}

// ============================================================================
// Hyperparameters
// ============================================================================

// DefaultMaxSweeps is the dynamic programming sweep safety bound applied when
// Hyperparams.MaxSweeps is zero. Exceeding the bound is a convergence
// failure, never a silently unconverged result.
const DefaultMaxSweeps = 10000

// Hyperparams holds the training hyperparameters shared by all engines.
// Engines read only the fields that apply to them.
type Hyperparams struct {
	// Gamma is the discount factor weighting future rewards.
	Gamma float64 `json:"gamma"`

	// Theta is the convergence threshold compared against the sweep delta.
	Theta float64 `json:"theta"`

	// Alpha is the learning-rate step size for TD/MC incremental updates.
	Alpha float64 `json:"alpha"`

	// Epsilon is the exploration probability in epsilon-greedy selection.
	Epsilon float64 `json:"epsilon"`

	// Episodes is the number of episodes for episodic engines.
	Episodes int `json:"episodes"`

	// NSteps is the lookahead window for n-step TD.
	NSteps int `json:"nSteps"`

	// MaxSweeps caps dynamic programming sweeps; 0 selects DefaultMaxSweeps.
	MaxSweeps int `json:"maxSweeps,omitempty"`

	// Seed seeds the exploration RNG; 0 seeds from the clock.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultHyperparams returns the default hyperparameters.
func DefaultHyperparams() Hyperparams {
	return Hyperparams{
		Gamma:    0.99,
		Theta:    1e-4,
		Alpha:    0.1,
		Epsilon:  0.1,
		Episodes: 100,
		NSteps:   3,
	}
}

// Validate checks every field against its admissible range. Errors wrap
// ErrInvalidHyperparams.
func (h Hyperparams) Validate() error {
	if h.Gamma <= 0 || h.Gamma > 1 {
		return fmt.Errorf("%w: gamma %v outside (0, 1]", ErrInvalidHyperparams, h.Gamma)
	}
	if h.Theta <= 0 {
		return fmt.Errorf("%w: theta %v must be positive", ErrInvalidHyperparams, h.Theta)
	}
	if h.Alpha <= 0 || h.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v outside (0, 1]", ErrInvalidHyperparams, h.Alpha)
	}
	if h.Epsilon < 0 || h.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon %v outside [0, 1]", ErrInvalidHyperparams, h.Epsilon)
	}
	if h.Episodes <= 0 {
		return fmt.Errorf("%w: episodes %d must be positive", ErrInvalidHyperparams, h.Episodes)
	}
	if h.NSteps < 1 {
		return fmt.Errorf("%w: nSteps %d must be at least 1", ErrInvalidHyperparams, h.NSteps)
	}
	if h.MaxSweeps < 0 {
		return fmt.Errorf("%w: maxSweeps %d must not be negative", ErrInvalidHyperparams, h.MaxSweeps)
	}
	return nil
}

// SweepBound returns the effective dynamic programming sweep cap.
func (h Hyperparams) SweepBound() int {
	if h.MaxSweeps > 0 {
		return h.MaxSweeps
	}
	return DefaultMaxSweeps
}

// NewRand returns a rand.Rand for the given seed, seeding from the clock
// when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
