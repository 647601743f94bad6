package envs

import (
	"fmt"
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
)

// New constructs the environment for the given identifier. rng drives the
// stochastic environments and may be nil for clock seeding.
func New(id rl.EnvironmentID, cfg env.Config, rng *rand.Rand) (env.Environment, error) {
	switch id {
	case rl.EnvGridworld:
		return NewGridworld(cfg)
	case rl.EnvFrozenLake:
		return NewFrozenLake(cfg, rng)
	case rl.EnvBreakout:
		return NewBreakout(cfg, rng)
	default:
		return nil, fmt.Errorf("%w: %q", rl.ErrUnknownEnvironment, id)
	}
}

// ActionNames returns the display names of the environment's actions in
// action-index order.
func ActionNames(id rl.EnvironmentID) []string {
	switch id {
	case rl.EnvBreakout:
		return []string{"Stay", "Left", "Right"}
	default:
		return []string{"Up", "Down", "Left", "Right"}
	}
}
