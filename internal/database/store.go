package database

import (
	"context"
	"time"

	"github.com/Alias1177/Projector/models"
)

// Store persists projections keyed by (player, game date)
type Store interface {
	// Save inserts a new projection. It fills in ID, CreatedAt, Version and
	// UpdatedAt and returns models.ErrDuplicateProjection when the key exists.
	Save(ctx context.Context, record *models.Record) error

	// Find returns the projections matching filter ordered by game date
	Find(ctx context.Context, filter Filter) ([]models.Record, error)

	// Get returns the projection stored under key
	Get(ctx context.Context, key models.Key) (models.Record, error)

	// Update applies mutate to the projection stored under key and writes it
	// back. The mutated record is validated with models.CheckMutation. When
	// mutate returns models.ErrNoChange the current record is returned with
	// that error and nothing is written.
	Update(ctx context.Context, key models.Key, mutate Mutation) (models.Record, error)

	Close() error
}

// Mutation edits a projection in place
type Mutation func(record *models.Record) error

// Filter narrows Find; zero fields match everything
type Filter struct {
	Statuses []models.Status
	Player   string
	GameDate time.Time
	// Predicate runs after the SQL filters
	Predicate func(models.Record) bool
}

// Pending selects every projection that has not completed yet
func Pending() Filter {
	return Filter{Statuses: []models.Status{models.StatusUpcoming, models.StatusLive}}
}
