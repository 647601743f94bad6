package training

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/events"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/history"
	"github.com/Abdo-hisham/rl-project/internal/shared"
)

func TestServiceStartAndLookup(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(256))
	defer bus.Close()
	service := NewService(bus)

	session, err := service.StartTraining(context.Background(), "owner-1", testConfig(rl.AlgorithmTDZero, 5))
	if err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)

	byID, err := service.Session(session.ID)
	if err != nil || byID != session {
		t.Fatalf("Session(%q) = %v, %v", session.ID, byID, err)
	}
	byOwner, err := service.SessionFor("owner-1")
	if err != nil || byOwner != session {
		t.Fatalf("SessionFor = %v, %v", byOwner, err)
	}
	if len(service.Sessions()) != 1 {
		t.Fatalf("expected 1 known session, got %d", len(service.Sessions()))
	}
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	service := NewService(bus)

	cfg := testConfig(rl.AlgorithmTDZero, 5)
	cfg.Algorithm = "q_learning"
	if _, err := service.StartTraining(context.Background(), "owner-1", cfg); !errors.Is(err, rl.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
	if len(service.Sessions()) != 0 {
		t.Fatal("rejected config must not register a session")
	}
}

func TestServiceUnknownSessionErrors(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	service := NewService(bus)

	if _, err := service.Session("missing"); !errors.Is(err, rl.ErrSessionNotFound) {
		t.Fatalf("Session = %v, want ErrSessionNotFound", err)
	}
	if _, err := service.SessionFor("nobody"); !errors.Is(err, rl.ErrSessionNotFound) {
		t.Fatalf("SessionFor = %v, want ErrSessionNotFound", err)
	}
	if err := service.StopTraining("missing"); !errors.Is(err, rl.ErrSessionNotFound) {
		t.Fatalf("StopTraining = %v, want ErrSessionNotFound", err)
	}
}

func TestServiceStopTraining(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(8192))
	defer bus.Close()
	service := NewService(bus)

	session, err := service.StartTraining(context.Background(), "owner-1", testConfig(rl.AlgorithmSARSA, 100000))
	if err != nil {
		t.Fatal(err)
	}
	if err := service.StopTraining(session.ID); err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)

	if state := session.State(); state != shared.SessionStateCancelled && state != shared.SessionStateCompleted {
		t.Fatalf("state %q after stop", state)
	}
}

func TestServiceReplacesOwnerSession(t *testing.T) {
	bus := events.NewBus(events.WithBufferSize(8192))
	defer bus.Close()
	service := NewService(bus)

	first, err := service.StartTraining(context.Background(), "owner-1", testConfig(rl.AlgorithmSARSA, 100000))
	if err != nil {
		t.Fatal(err)
	}
	second, err := service.StartTraining(context.Background(), "owner-1", testConfig(rl.AlgorithmTDZero, 5))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("replacement must create a new session")
	}

	current, err := service.SessionFor("owner-1")
	if err != nil || current != second {
		t.Fatalf("SessionFor = %v, %v, want the replacement", current, err)
	}

	// The replaced session was asked to stop and settles terminal.
	waitOrFail(t, first)
	waitOrFail(t, second)
	if !first.State().Terminal() {
		t.Fatalf("replaced session state %q", first.State())
	}
	if len(service.Sessions()) != 2 {
		t.Fatalf("both sessions stay queryable, got %d", len(service.Sessions()))
	}
}

func TestServiceRecordsRunHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	bus := events.NewBus(events.WithBufferSize(256))
	defer bus.Close()
	service := NewService(bus, WithHistoryStore(store))

	session, err := service.StartTraining(context.Background(), "owner-1", testConfig(rl.AlgorithmTDZero, 5))
	if err != nil {
		t.Fatal(err)
	}
	waitOrFail(t, session)

	// The terminal row is written after the session settles; poll briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		runs, err := store.Runs(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) == 1 && runs[0].State == string(shared.SessionStateCompleted) {
			if runs[0].ID != session.ID || runs[0].Units != 5 {
				t.Fatalf("unexpected run row: %+v", runs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never recorded as completed: %+v", runs)
		}
		time.Sleep(10 * time.Millisecond)
	}

	metrics, err := store.Metrics(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 5 {
		t.Fatalf("expected 5 recorded metrics, got %d", len(metrics))
	}
}
