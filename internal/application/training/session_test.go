package training

import (
	"errors"
	"testing"
	"time"

	"github.com/Abdo-hisham/rl-project/internal/domain/env"
	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/engines"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/events"
	"github.com/Abdo-hisham/rl-project/internal/shared"
)

func testConfig(algorithm rl.Algorithm, episodes int) Config {
	hp := rl.DefaultHyperparams()
	hp.Episodes = episodes
	hp.Seed = 1
	return Config{
		Algorithm:   algorithm,
		Environment: rl.EnvGridworld,
		EnvConfig:   env.Config{GridSize: 4},
		Hyperparams: hp,
	}
}

// drain collects every event published before the bus was closed.
func drain(sub *events.Subscription) []shared.Event {
	var collected []shared.Event
	for event := range sub.C {
		collected = append(collected, event)
	}
	return collected
}

func waitOrFail(t *testing.T, session *Session) {
	t.Helper()
	select {
	case <-session.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestNewSessionValidation(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "q_learning" }, rl.ErrUnknownAlgorithm},
		{"unknown environment", func(c *Config) { c.Environment = "cartpole" }, rl.ErrUnknownEnvironment},
		{"invalid hyperparams", func(c *Config) { c.Hyperparams.Gamma = 2 }, rl.ErrInvalidHyperparams},
		{"invalid env config", func(c *Config) { c.EnvConfig.GridSize = 1 }, rl.ErrInvalidEnvironmentConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(rl.AlgorithmTDZero, 5)
			tt.mutate(&cfg)
			if _, err := NewSession(cfg, bus); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSessionCompletesWithEventSequence(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(4096))
	sub := bus.Subscribe()

	session, err := NewSession(testConfig(rl.AlgorithmTDZero, 20), bus)
	if err != nil {
		t.Fatal(err)
	}
	if session.State() != shared.SessionStateIdle {
		t.Fatalf("new session state %q, want idle", session.State())
	}

	if err := session.Start(); err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)
	bus.Close()

	if session.State() != shared.SessionStateCompleted {
		t.Fatalf("state %q, want completed", session.State())
	}
	if session.Units() != 20 {
		t.Fatalf("units %d, want 20", session.Units())
	}

	collected := drain(sub)
	if len(collected) != 22 {
		t.Fatalf("expected started + 20 progress + completed = 22 events, got %d", len(collected))
	}
	if collected[0].Type != shared.EventTrainingStarted {
		t.Fatalf("first event %q, want started", collected[0].Type)
	}
	for i, event := range collected[1:21] {
		if event.Type != shared.EventTrainingProgress {
			t.Fatalf("event %d is %q, want progress", i+1, event.Type)
		}
		payload := event.Payload.(ProgressPayload)
		if payload.Unit != i+1 {
			t.Fatalf("progress unit %d, want %d", payload.Unit, i+1)
		}
	}

	last := collected[21]
	if last.Type != shared.EventTrainingCompleted {
		t.Fatalf("last event %q, want completed", last.Type)
	}
	payload := last.Payload.(CompletedPayload)
	if payload.Units != 20 || len(payload.ValueFunction) == 0 {
		t.Fatalf("completed payload %+v", payload)
	}

	for _, event := range collected {
		if event.SessionID != session.ID {
			t.Fatalf("event carries session %q, want %q", event.SessionID, session.ID)
		}
		if event.Timestamp == 0 {
			t.Fatal("event missing timestamp")
		}
	}
}

func TestSessionCancelAfterFirstIncrement(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(64))
	sub := bus.Subscribe()

	session, err := NewSession(testConfig(rl.AlgorithmSARSA, 1000), bus)
	if err != nil {
		t.Fatal(err)
	}
	session.OnIncrement(func(sessionID string, inc engines.Increment) {
		if inc.Unit == 1 {
			session.Stop()
		}
	})

	if err := session.Start(); err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)
	bus.Close()

	if session.State() != shared.SessionStateCancelled {
		t.Fatalf("state %q, want cancelled", session.State())
	}
	if session.Units() != 1 {
		t.Fatalf("units %d, want 1", session.Units())
	}

	collected := drain(sub)
	if len(collected) != 3 {
		t.Fatalf("expected started + progress + cancelled, got %d events", len(collected))
	}
	if collected[1].Type != shared.EventTrainingProgress {
		t.Fatalf("progress must be emitted before the cancellation check, got %q", collected[1].Type)
	}
	last := collected[2]
	if last.Type != shared.EventTrainingCancelled {
		t.Fatalf("last event %q, want cancelled", last.Type)
	}
	payload := last.Payload.(CancelledPayload)
	if payload.Units != 1 {
		t.Fatalf("cancelled payload reports %d units, want 1", payload.Units)
	}
}

func TestSessionFailsWhenConvergenceBoundExceeded(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(64))
	sub := bus.Subscribe()

	cfg := testConfig(rl.AlgorithmValueIteration, 1)
	cfg.Hyperparams.Theta = 1e-300
	cfg.Hyperparams.MaxSweeps = 3

	session, err := NewSession(cfg, bus)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Start(); err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)
	bus.Close()

	if session.State() != shared.SessionStateFailed {
		t.Fatalf("state %q, want failed", session.State())
	}
	if !errors.Is(session.Err(), rl.ErrConvergenceFailure) {
		t.Fatalf("Err = %v, want ErrConvergenceFailure", session.Err())
	}

	collected := drain(sub)
	last := collected[len(collected)-1]
	if last.Type != shared.EventTrainingFailed {
		t.Fatalf("last event %q, want failed", last.Type)
	}
	if payload := last.Payload.(FailedPayload); payload.Reason == "" {
		t.Fatal("failed payload missing a reason")
	}
}

func TestSessionStartTwice(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(64))
	defer bus.Close()

	session, err := NewSession(testConfig(rl.AlgorithmTDZero, 5), bus)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Start(); err != nil {
		t.Fatal(err)
	}
	if err := session.Start(); !errors.Is(err, rl.ErrSessionNotIdle) {
		t.Fatalf("second Start = %v, want ErrSessionNotIdle", err)
	}
	waitOrFail(t, session)

	// Terminal sessions stay terminal.
	if err := session.Start(); !errors.Is(err, rl.ErrSessionNotIdle) {
		t.Fatalf("Start after completion = %v, want ErrSessionNotIdle", err)
	}
}

func TestSessionResultPartialBeforeTerminal(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(64))
	defer bus.Close()

	session, err := NewSession(testConfig(rl.AlgorithmMonteCarloFirstVisit, 10), bus)
	if err != nil {
		t.Fatal(err)
	}

	// Idle sessions report an empty result.
	if result := session.Result(); result.Values.Len() != 0 {
		t.Fatalf("idle result has %d values", result.Values.Len())
	}

	if err := session.Start(); err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)

	result := session.Result()
	if result.Values.Len() == 0 {
		t.Fatal("completed result has no values")
	}
	if len(result.History.EpisodeRewards) != 10 {
		t.Fatalf("history has %d episodes, want 10", len(result.History.EpisodeRewards))
	}
}

// Result serves the snapshot cached at the last increment boundary, so it
// must be safe to call from another goroutine while the run loop is mutating
// the engine's tables.
func TestSessionResultConcurrentWithRun(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	session, err := NewSession(testConfig(rl.AlgorithmMonteCarloEveryVisit, 200), bus)
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Start(); err != nil {
		t.Fatal(err)
	}

	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-session.Done():
				return
			default:
			}
			if result := session.Result(); result.Values == nil {
				t.Error("concurrent Result returned nil values")
				return
			}
			_ = session.State()
			_ = session.Units()
		}
	}()

	waitOrFail(t, session)
	<-polled

	if session.Units() != 200 {
		t.Fatalf("units = %d, want 200", session.Units())
	}
	if session.Result().Values.Len() == 0 {
		t.Fatal("completed result has no values")
	}
}

func TestSessionStopBeforeStart(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	session, err := NewSession(testConfig(rl.AlgorithmTDZero, 10), bus)
	if err != nil {
		t.Fatal(err)
	}

	session.Stop()

	if got := session.State(); got != shared.SessionStateCancelled {
		t.Fatalf("state after idle Stop = %q, want cancelled", got)
	}
	waitOrFail(t, session)
	if err := session.Start(); !errors.Is(err, rl.ErrSessionNotIdle) {
		t.Fatalf("Start after idle Stop = %v, want ErrSessionNotIdle", err)
	}
	if session.Units() != 0 {
		t.Fatalf("units = %d, want 0", session.Units())
	}

	// Stopping again stays a no-op.
	session.Stop()
	if got := session.State(); got != shared.SessionStateCancelled {
		t.Fatalf("state after second Stop = %q, want cancelled", got)
	}
}
