// Package rlproject provides the public API for rl-project.
//
// It re-exports the core domain types and wires the training session
// service, the event bus, the environments and the trajectory simulator
// behind one import path.
//
// Example:
//
//	bus := rlproject.NewEventBus()
//	service := rlproject.NewTrainingService(bus)
//	sub := bus.Subscribe(rlproject.EventTrainingProgress)
//
//	session, err := service.StartTraining(ctx, "cli", rlproject.TrainingConfig{
//	    Algorithm:   rlproject.AlgorithmValueIteration,
//	    Environment: rlproject.EnvGridworld,
//	    Hyperparams: rlproject.DefaultHyperparams(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session.Wait()
package rlproject

import (
	"math/rand"

	"github.com/Abdo-hisham/rl-project/internal/application/simulate"
	"github.com/Abdo-hisham/rl-project/internal/application/training"
	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/engines"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/envs"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/events"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/history"
	"github.com/Abdo-hisham/rl-project/internal/shared"
)

// Re-export types for the public API.
type (
	// Identifiers and hyperparameters.
	Algorithm     = rl.Algorithm
	EnvironmentID = rl.EnvironmentID
	Hyperparams   = rl.Hyperparams

	// Learned artifacts.
	ValueFunction = rl.ValueFunction
	QTable        = rl.QTable
	Policy        = rl.Policy
	History       = rl.History
	Result        = rl.Result

	// Environments.
	Environment = env.Environment
	EnvConfig   = env.Config
	GridState   = env.GridState
	State       = env.State
	Transition  = env.Transition

	// Sessions and events.
	TrainingConfig  = training.Config
	Session         = training.Session
	TrainingService = training.Service
	SessionState    = shared.SessionState
	Event           = shared.Event
	EventType       = shared.EventType
	EventBus        = events.Bus
	Subscription    = events.Subscription

	// Event payloads.
	StartedPayload   = training.StartedPayload
	ProgressPayload  = training.ProgressPayload
	CompletedPayload = training.CompletedPayload
	CancelledPayload = training.CancelledPayload
	FailedPayload    = training.FailedPayload

	// Simulation.
	Trajectory     = simulate.Trajectory
	TrajectoryStep = simulate.Step

	// Run history.
	HistoryStore = history.Store
	Run          = history.Run
)

// Algorithm identifiers.
const (
	AlgorithmValueIteration       = rl.AlgorithmValueIteration
	AlgorithmPolicyIteration      = rl.AlgorithmPolicyIteration
	AlgorithmMonteCarloFirstVisit = rl.AlgorithmMonteCarloFirstVisit
	AlgorithmMonteCarloEveryVisit = rl.AlgorithmMonteCarloEveryVisit
	AlgorithmMonteCarloControl    = rl.AlgorithmMonteCarloControl
	AlgorithmTDZero               = rl.AlgorithmTDZero
	AlgorithmSARSA                = rl.AlgorithmSARSA
	AlgorithmNStepTD              = rl.AlgorithmNStepTD
)

// Environment identifiers.
const (
	EnvGridworld  = rl.EnvGridworld
	EnvFrozenLake = rl.EnvFrozenLake
	EnvBreakout   = rl.EnvBreakout
)

// Session lifecycle states.
const (
	SessionStateIdle      = shared.SessionStateIdle
	SessionStateRunning   = shared.SessionStateRunning
	SessionStateCompleted = shared.SessionStateCompleted
	SessionStateCancelled = shared.SessionStateCancelled
	SessionStateFailed    = shared.SessionStateFailed
)

// Event types.
const (
	EventTrainingStarted   = shared.EventTrainingStarted
	EventTrainingProgress  = shared.EventTrainingProgress
	EventTrainingCompleted = shared.EventTrainingCompleted
	EventTrainingCancelled = shared.EventTrainingCancelled
	EventTrainingFailed    = shared.EventTrainingFailed
)

// Sentinel errors.
var (
	ErrUnknownAlgorithm         = rl.ErrUnknownAlgorithm
	ErrUnknownEnvironment       = rl.ErrUnknownEnvironment
	ErrInvalidHyperparams       = rl.ErrInvalidHyperparams
	ErrInvalidEnvironmentConfig = rl.ErrInvalidEnvironmentConfig
	ErrConvergenceFailure       = rl.ErrConvergenceFailure
	ErrSessionNotFound          = rl.ErrSessionNotFound
)

// Algorithms returns the closed set of supported algorithm identifiers.
func Algorithms() []Algorithm {
	return rl.Algorithms()
}

// Environments returns the closed set of supported environment identifiers.
func Environments() []EnvironmentID {
	return rl.Environments()
}

// DefaultHyperparams returns the default training hyperparameters.
func DefaultHyperparams() Hyperparams {
	return rl.DefaultHyperparams()
}

// NewEventBus creates an event bus for training events.
func NewEventBus(opts ...events.Option) *EventBus {
	return events.NewBus(opts...)
}

// WithBufferSize sets the subscription channel buffer size on an event bus.
func WithBufferSize(size int) events.Option {
	return events.WithBufferSize(size)
}

// NewTrainingService creates the session service publishing on bus.
func NewTrainingService(bus *EventBus, opts ...training.ServiceOption) *TrainingService {
	return training.NewService(bus, opts...)
}

// WithHistoryStore enables run recording on a training service.
func WithHistoryStore(store *HistoryStore) training.ServiceOption {
	return training.WithHistoryStore(store)
}

// OpenHistoryStore opens (and if needed creates) a run-history store.
func OpenHistoryStore(path string) (*HistoryStore, error) {
	return history.Open(path)
}

// NewRand returns a seeded rand.Rand, seeding from the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	return rl.NewRand(seed)
}

// NewEnvironment constructs the environment for the given identifier.
func NewEnvironment(id EnvironmentID, cfg EnvConfig, rng *rand.Rand) (Environment, error) {
	return envs.New(id, cfg, rng)
}

// ActionNames returns the display names of the environment's actions.
func ActionNames(id EnvironmentID) []string {
	return envs.ActionNames(id)
}

// Simulate replays a learned policy through an environment; start may be nil
// to use the environment's own start state.
func Simulate(environment Environment, policy Policy, start State, maxSteps int) (Trajectory, error) {
	return simulate.Run(environment, policy, start, maxSteps)
}

// NewEngine constructs the raw algorithm engine for callers that drive
// increments themselves instead of going through a session.
func NewEngine(algorithm Algorithm, environment Environment, hp Hyperparams) (engines.Engine, error) {
	return engines.New(algorithm, environment, hp)
}
