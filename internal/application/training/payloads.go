// Package training implements the cancellable training session state
// machine and the session service that owns concurrent sessions.
package training

import "github.com/Abdo-hisham/rl-project/internal/domain/rl"

// sampleValueLimit bounds the value sample attached to progress events; the
// full value function travels only on the terminal completed event.
const sampleValueLimit = 25

// StartedPayload is attached to training_started events.
type StartedPayload struct {
	Algorithm   rl.Algorithm     `json:"algorithm"`
	Environment rl.EnvironmentID `json:"environment"`

	// TotalUnits is the planned increment count, 0 for convergence-bound
	// engines.
	TotalUnits int `json:"totalUnits"`
}

// ProgressPayload is attached to training_progress events after every
// completed increment.
type ProgressPayload struct {
	// Unit is the 1-based sweep or episode index.
	Unit       int `json:"unit"`
	TotalUnits int `json:"totalUnits,omitempty"`

	// Delta carries the sweep delta for dynamic programming runs.
	Delta float64 `json:"delta,omitempty"`

	// Reward and AvgReward carry episodic metrics; AvgReward is the mean of
	// the last 100 episodes.
	Reward    float64 `json:"reward,omitempty"`
	AvgReward float64 `json:"avgReward,omitempty"`

	// SampleValues is a bounded sample of the current value function.
	SampleValues map[string]float64 `json:"sampleValues,omitempty"`
	AvgValue     float64            `json:"avgValue,omitempty"`
}

// CompletedPayload is attached to training_completed events.
type CompletedPayload struct {
	Units         int                `json:"units"`
	ValueFunction map[string]float64 `json:"valueFunction"`
	Policy        map[string]int     `json:"policy,omitempty"`
	History       rl.History         `json:"history"`
}

// CancelledPayload is attached to training_cancelled events and carries the
// partial results of the last completed increment.
type CancelledPayload struct {
	Units         int                `json:"units"`
	ValueFunction map[string]float64 `json:"valueFunction"`
	History       rl.History         `json:"history"`
}

// FailedPayload is attached to training_failed events.
type FailedPayload struct {
	Reason string `json:"reason"`
}
