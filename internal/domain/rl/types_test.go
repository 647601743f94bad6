package rl

import (
	"errors"
	"testing"
)

func TestAlgorithmValid(t *testing.T) {
	for _, algorithm := range Algorithms() {
		if !algorithm.Valid() {
			t.Errorf("expected %q to be valid", algorithm)
		}
	}
	if Algorithm("q_learning").Valid() {
		t.Error("expected unknown algorithm to be invalid")
	}
	if Algorithm("").Valid() {
		t.Error("expected empty algorithm to be invalid")
	}
}

func TestAlgorithmEpisodic(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		episodic  bool
	}{
		{AlgorithmValueIteration, false},
		{AlgorithmPolicyIteration, false},
		{AlgorithmMonteCarloFirstVisit, true},
		{AlgorithmMonteCarloEveryVisit, true},
		{AlgorithmMonteCarloControl, true},
		{AlgorithmTDZero, true},
		{AlgorithmSARSA, true},
		{AlgorithmNStepTD, true},
	}
	for _, tt := range tests {
		if got := tt.algorithm.Episodic(); got != tt.episodic {
			t.Errorf("%s: Episodic() = %v, want %v", tt.algorithm, got, tt.episodic)
		}
	}
}

func TestEnvironmentIDValid(t *testing.T) {
	for _, id := range Environments() {
		if !id.Valid() {
			t.Errorf("expected %q to be valid", id)
		}
	}
	if EnvironmentID("cartpole").Valid() {
		t.Error("expected unknown environment to be invalid")
	}
}

func TestHyperparamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Hyperparams)
		wantErr bool
	}{
		{"defaults", func(h *Hyperparams) {}, false},
		{"gamma one", func(h *Hyperparams) { h.Gamma = 1 }, false},
		{"gamma zero", func(h *Hyperparams) { h.Gamma = 0 }, true},
		{"gamma above one", func(h *Hyperparams) { h.Gamma = 1.01 }, true},
		{"theta zero", func(h *Hyperparams) { h.Theta = 0 }, true},
		{"theta negative", func(h *Hyperparams) { h.Theta = -1e-4 }, true},
		{"alpha zero", func(h *Hyperparams) { h.Alpha = 0 }, true},
		{"alpha above one", func(h *Hyperparams) { h.Alpha = 1.5 }, true},
		{"epsilon zero", func(h *Hyperparams) { h.Epsilon = 0 }, false},
		{"epsilon one", func(h *Hyperparams) { h.Epsilon = 1 }, false},
		{"epsilon negative", func(h *Hyperparams) { h.Epsilon = -0.1 }, true},
		{"episodes zero", func(h *Hyperparams) { h.Episodes = 0 }, true},
		{"nsteps zero", func(h *Hyperparams) { h.NSteps = 0 }, true},
		{"max sweeps negative", func(h *Hyperparams) { h.MaxSweeps = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := DefaultHyperparams()
			tt.mutate(&hp)
			err := hp.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHyperparams) {
					t.Fatalf("expected ErrInvalidHyperparams, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSweepBound(t *testing.T) {
	hp := DefaultHyperparams()
	if got := hp.SweepBound(); got != DefaultMaxSweeps {
		t.Errorf("SweepBound() = %d, want %d", got, DefaultMaxSweeps)
	}
	hp.MaxSweeps = 5
	if got := hp.SweepBound(); got != 5 {
		t.Errorf("SweepBound() = %d, want 5", got)
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a := NewRand(42)
	b := NewRand(42)
	for i := 0; i < 10; i++ {
		if a.Intn(1000) != b.Intn(1000) {
			t.Fatal("expected identical draws for identical seeds")
		}
	}
}
