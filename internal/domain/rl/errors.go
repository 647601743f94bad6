package rl

import "errors"

var (
	// ErrUnknownAlgorithm indicates an algorithm identifier outside the
	// supported enumeration.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrUnknownEnvironment indicates an environment identifier outside the
	// supported enumeration.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInvalidHyperparams indicates an out-of-range hyperparameter.
	ErrInvalidHyperparams = errors.New("invalid hyperparameters")

	// ErrInvalidEnvironmentConfig indicates an environment configuration with
	// inconsistent bounds or an unusable start/goal layout.
	ErrInvalidEnvironmentConfig = errors.New("invalid environment configuration")

	// ErrConvergenceFailure indicates a dynamic programming engine exceeded
	// its sweep safety bound without reaching the convergence threshold.
	ErrConvergenceFailure = errors.New("did not converge within sweep bound")

	// ErrSessionNotIdle indicates Start was called on a session that already
	// ran.
	ErrSessionNotIdle = errors.New("session is not idle")

	// ErrSessionNotFound indicates an unknown session identifier.
	ErrSessionNotFound = errors.New("session not found")
)
