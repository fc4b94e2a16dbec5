package models

import "errors"

var (
	// ErrFeedUnavailable covers network errors, timeouts and non-success responses
	// from a GameFeed or HistorySource. Callers skip the affected item.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrDuplicateProjection is returned by Save when (player, gameDate) already exists
	ErrDuplicateProjection = errors.New("duplicate projection")

	// ErrRecordNotFound is returned when an update or lookup targets a missing key
	ErrRecordNotFound = errors.New("projection not found")

	// ErrMalformedMatchup means the opponent descriptor has no parseable team code
	ErrMalformedMatchup = errors.New("malformed matchup")

	// ErrInsufficientHistory marks an empty stat history. The forecaster never
	// returns it; it falls back to 0.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrNotFound is returned when no game is scheduled inside the horizon
	ErrNotFound = errors.New("no game found")

	// ErrPlayerNotFound is returned by HistorySource lookups
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidTransition rejects a mutation that breaks the record invariants
	ErrInvalidTransition = errors.New("invalid projection transition")

	// ErrNoChange signals an idempotent no-op mutation
	ErrNoChange = errors.New("no change")

	// ErrVersionConflict means another writer updated the record first
	ErrVersionConflict = errors.New("version conflict")

	// ErrCorruptState means persisted projections could not be decoded
	ErrCorruptState = errors.New("corrupt projection state")
)
