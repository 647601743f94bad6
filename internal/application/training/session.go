package training

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/engines"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/envs"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/events"
	"github.com/Abdo-hisham/rl-project/internal/shared"
)

// recentRewardWindow is the episode window for the running mean reward
// reported on progress events.
const recentRewardWindow = 100

// Config describes one training run.
type Config struct {
	Algorithm   rl.Algorithm     `json:"algorithm"`
	Environment rl.EnvironmentID `json:"environment"`
	EnvConfig   env.Config       `json:"envConfig"`
	Hyperparams rl.Hyperparams   `json:"hyperparams"`
}

// IncrementFunc observes each completed increment of a running session.
type IncrementFunc func(sessionID string, inc engines.Increment)

// Session is one cancellable training run. It is built in the idle state
// with its environment and engine already constructed, so every validation
// error surfaces before any event is emitted. Start moves it to running and
// drives the engine on a goroutine; it then settles in exactly one terminal
// state: completed, cancelled or failed.
type Session struct {
	ID     string
	Config Config

	environment env.Environment
	engine      engines.Engine
	bus         *events.Bus

	mu          sync.RWMutex
	state       shared.SessionState
	units       int
	result      rl.Result
	failure     error
	onIncrement IncrementFunc

	cancel atomic.Bool
	done   chan struct{}
}

// NewSession validates the configuration and constructs the environment and
// engine. Validation errors wrap the rl sentinel errors.
func NewSession(cfg Config, bus *events.Bus) (*Session, error) {
	if !cfg.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %q", rl.ErrUnknownAlgorithm, cfg.Algorithm)
	}
	if !cfg.Environment.Valid() {
		return nil, fmt.Errorf("%w: %q", rl.ErrUnknownEnvironment, cfg.Environment)
	}
	if err := cfg.Hyperparams.Validate(); err != nil {
		return nil, err
	}

	// The environment draws from its own stream so engine exploration and
	// environment stochasticity stay independently reproducible.
	var envRng = rl.NewRand(0)
	if cfg.Hyperparams.Seed != 0 {
		envRng = rl.NewRand(cfg.Hyperparams.Seed + 1)
	}
	environment, err := envs.New(cfg.Environment, cfg.EnvConfig, envRng)
	if err != nil {
		return nil, err
	}
	engine, err := engines.New(cfg.Algorithm, environment, cfg.Hyperparams)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:          uuid.New().String(),
		Config:      cfg,
		environment: environment,
		engine:      engine,
		bus:         bus,
		state:       shared.SessionStateIdle,
		result:      engine.Snapshot(),
		done:        make(chan struct{}),
	}, nil
}

// OnIncrement registers an observer invoked after every completed increment,
// before the cancellation check. Must be called before Start.
func (s *Session) OnIncrement(fn IncrementFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIncrement = fn
}

// State returns the current lifecycle state.
func (s *Session) State() shared.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Units returns the number of completed increments.
func (s *Session) Units() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units
}

// Err returns the failure that moved the session to failed, nil otherwise.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// Result returns an independent snapshot of what the engine has learned so
// far. Valid in any state; partial before a terminal state. The snapshot is
// the one cached at the last increment boundary, so the running engine is
// never read concurrently.
func (s *Session) Result() rl.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Start moves the session from idle to running and launches the training
// loop. A session runs at most once.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != shared.SessionStateIdle {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %s is %s", rl.ErrSessionNotIdle, s.ID, s.state)
	}
	s.state = shared.SessionStateRunning
	s.mu.Unlock()

	go s.run()
	return nil
}

// Stop requests cancellation. A running session finishes its current
// increment, emits its progress, and then settles in the cancelled state. A
// still-idle session moves straight to cancelled without emitting anything.
// Stopping an already-terminal session is a no-op.
func (s *Session) Stop() {
	s.cancel.Store(true)
	s.mu.Lock()
	if s.state == shared.SessionStateIdle {
		s.state = shared.SessionStateCancelled
		close(s.done)
	}
	s.mu.Unlock()
}

// Wait blocks until the session reaches a terminal state. Returns
// immediately for sessions that already finished.
func (s *Session) Wait() {
	<-s.done
}

// Done exposes the terminal-state signal for select loops.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	defer close(s.done)

	s.emit(shared.EventTrainingStarted, StartedPayload{
		Algorithm:   s.Config.Algorithm,
		Environment: s.Config.Environment,
		TotalUnits:  s.engine.TotalUnits(),
	})

	for {
		inc, err := s.engine.RunIncrement()
		if err != nil {
			s.finish(shared.SessionStateFailed, err)
			s.emit(shared.EventTrainingFailed, FailedPayload{Reason: err.Error()})
			return
		}

		// The snapshot is cached under the lock so Result callers never
		// touch the engine's live maps.
		snapshot := s.engine.Snapshot()
		s.mu.Lock()
		s.units = inc.Unit
		s.result = snapshot
		observer := s.onIncrement
		s.mu.Unlock()

		// Progress for the finished increment is always emitted before the
		// cancellation check, so a stopped session still reports the work it
		// actually did.
		s.emit(shared.EventTrainingProgress, s.progressPayload(inc, snapshot))
		if observer != nil {
			observer(s.ID, inc)
		}

		if s.cancel.Load() && !inc.Done {
			s.finish(shared.SessionStateCancelled, nil)
			s.emit(shared.EventTrainingCancelled, CancelledPayload{
				Units:         inc.Unit,
				ValueFunction: snapshot.Values.Snapshot(),
				History:       snapshot.History,
			})
			return
		}

		if inc.Done {
			s.finish(shared.SessionStateCompleted, nil)
			s.emit(shared.EventTrainingCompleted, CompletedPayload{
				Units:         inc.Unit,
				ValueFunction: snapshot.Values.Snapshot(),
				Policy:        snapshot.Policy.Snapshot(),
				History:       snapshot.History,
			})
			return
		}
	}
}

func (s *Session) progressPayload(inc engines.Increment, snapshot rl.Result) ProgressPayload {
	payload := ProgressPayload{
		Unit:         inc.Unit,
		TotalUnits:   s.engine.TotalUnits(),
		SampleValues: snapshot.Values.Sample(sampleValueLimit),
		AvgValue:     snapshot.Values.Mean(),
	}
	if s.Config.Algorithm.Episodic() {
		payload.Reward = inc.Reward
		payload.AvgReward = snapshot.History.RecentMeanReward(recentRewardWindow)
	} else {
		payload.Delta = inc.Delta
	}
	return payload
}

func (s *Session) finish(state shared.SessionState, err error) {
	s.mu.Lock()
	s.state = state
	s.failure = err
	s.mu.Unlock()
}

func (s *Session) emit(eventType shared.EventType, payload any) {
	s.bus.Emit(shared.Event{
		Type:      eventType,
		SessionID: s.ID,
		Payload:   payload,
	})
}
