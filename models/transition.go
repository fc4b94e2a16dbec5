package models

import (
	"fmt"
	"time"
)

// CheckMutation verifies that after is a legal successor of before.
// Only Status and Actual may change, plus StartTime and GameID when they were unset.
func CheckMutation(before, after Record) error {
	if before.Key() != after.Key() {
		return fmt.Errorf("%w: key changed from %s to %s", ErrInvalidTransition, before.Key(), after.Key())
	}
	if before.ID != after.ID || before.Matchup != after.Matchup || before.HomeAway != after.HomeAway ||
		!before.CreatedAt.Equal(after.CreatedAt) || before.TeamCode != after.TeamCode {
		return fmt.Errorf("%w: identity fields are immutable", ErrInvalidTransition)
	}
	if !before.Predicted.Equal(after.Predicted) {
		return fmt.Errorf("%w: predicted stats are immutable", ErrInvalidTransition)
	}
	if !after.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, after.Status)
	}
	if after.Status.Rank() < before.Status.Rank() {
		return fmt.Errorf("%w: %s -> %s goes backwards", ErrInvalidTransition, before.Status, after.Status)
	}
	if after.Status != StatusCompleted && len(after.Actual) > 0 {
		return fmt.Errorf("%w: actual stats require completed status", ErrInvalidTransition)
	}
	if before.Status == StatusCompleted && !before.Actual.Equal(after.Actual) {
		return fmt.Errorf("%w: actual stats are immutable once completed", ErrInvalidTransition)
	}
	if !before.StartTime.IsZero() && !before.StartTime.Equal(after.StartTime) {
		return fmt.Errorf("%w: start time already set", ErrInvalidTransition)
	}
	if before.GameID != "" && before.GameID != after.GameID {
		return fmt.Errorf("%w: game id already set", ErrInvalidTransition)
	}
	return nil
}

// Transition is emitted after a projection changes status
type Transition struct {
	Record Record    `json:"record"`
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
}
