package domain

import "errors"

var (
	// ErrMissingSecrets is returned when the secrets blob is absent or has no auth token
	ErrMissingSecrets = errors.New("missing scheduled job secrets")

	// ErrEntityNotFound is returned when the platform has no entity with the requested id
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidDataset is returned when an override dataset is malformed
	ErrInvalidDataset = errors.New("invalid override dataset")

	// ErrNoTargets is returned when the snapshotter has nothing to snapshot
	ErrNoTargets = errors.New("no snapshot targets configured")
)
