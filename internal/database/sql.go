// Package database stores projections in SQLite or PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/names"
	"github.com/Alias1177/Projector/models"
)

const timeLayout = time.RFC3339Nano

// dialect captures what differs between the SQL backends
type dialect struct {
	name            string
	positional      bool // $1, $2 instead of ?
	isUniqueViolate func(error) bool
}

// SQLStore is a Store on top of database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger

	// conflict retry budget for Update
	maxRetries     uint64
	retryInterval  time.Duration
	maxElapsedTime time.Duration

	now func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:             db,
		dialect:        d,
		logger:         log.With().Str("component", "projection_store").Str("driver", d.name).Logger(),
		maxRetries:     8,
		retryInterval:  10 * time.Millisecond,
		maxElapsedTime: 5 * time.Second,
		now:            time.Now,
	}
}

// createTables creates the projections table if it doesn't exist
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{`
		CREATE TABLE IF NOT EXISTS projections (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			player_key TEXT NOT NULL,
			game_date TEXT NOT NULL,
			opponent TEXT NOT NULL,
			home_away TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time TEXT,
			game_id TEXT,
			team_code TEXT,
			predicted TEXT NOT NULL,
			actual TEXT,
			version BIGINT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (player_key, game_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projections_status ON projections (status)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create projections table: %w", err)
		}
	}
	return nil
}

const selectColumns = `id, player, game_date, opponent, home_away, status, start_time,
	game_id, team_code, predicted, actual, version, created_at, updated_at`

// Close closes the database handle
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, record *models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateNew(record); err != nil {
		return err
	}

	now := s.now().UTC()
	record.Player = strings.TrimSpace(record.Player)
	record.GameDate = models.DateOf(record.GameDate)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.Version = 1
	record.UpdatedAt = now

	predicted, err := json.Marshal(record.Predicted)
	if err != nil {
		return fmt.Errorf("encode predicted: %w", err)
	}
	actual, err := encodeActual(record.Actual)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO projections (
			id, player, player_key, game_date, opponent, home_away, status, start_time,
			game_id, team_code, predicted, actual, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		record.ID, record.Player, names.Fold(record.Player), models.FormatDate(record.GameDate),
		record.Matchup, string(record.HomeAway), string(record.Status), encodeTime(record.StartTime),
		nullString(record.GameID), nullString(record.TeamCode), string(predicted), actual,
		record.Version, record.CreatedAt.Format(timeLayout), record.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if s.dialect.isUniqueViolate(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateProjection, record.Key())
		}
		return fmt.Errorf("insert projection: %w", err)
	}

	s.logger.Debug().
		Str("player", record.Player).
		Str("game_date", models.FormatDate(record.GameDate)).
		Msg("Projection saved")
	return nil
}

// Get implements Store
func (s *SQLStore) Get(ctx context.Context, key models.Key) (models.Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+selectColumns+`
		FROM projections
		WHERE player_key = ? AND game_date = ?`),
		names.Fold(key.Player), models.FormatDate(key.GameDate),
	)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("%w: %s", models.ErrRecordNotFound, key)
		}
		return models.Record{}, err
	}
	return record, nil
}

// Find implements Store
func (s *SQLStore) Find(ctx context.Context, filter Filter) ([]models.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if strings.TrimSpace(filter.Player) != "" {
		where = append(where, "player_key = ?")
		args = append(args, names.Fold(filter.Player))
	}
	if !filter.GameDate.IsZero() {
		where = append(where, "game_date = ?")
		args = append(args, models.FormatDate(filter.GameDate))
	}

	query := `SELECT ` + selectColumns + ` FROM projections`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY game_date, created_at, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query projections: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if filter.Predicate != nil && !filter.Predicate(record) {
			continue
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projections: %w", err)
	}
	return out, nil
}

// Update implements Store. A lost race against another writer is retried
// with backoff by re-reading the record and re-applying mutate.
func (s *SQLStore) Update(ctx context.Context, key models.Key, mutate Mutation) (models.Record, error) {
	var result models.Record
	var noChange bool

	operation := func() error {
		noChange = false
		current, err := s.Get(ctx, key)
		if err != nil {
			return backoff.Permanent(err)
		}

		next := current.Clone()
		if err := mutate(&next); err != nil {
			if errors.Is(err, models.ErrNoChange) {
				result, noChange = current, true
				return nil
			}
			return backoff.Permanent(err)
		}
		if err := models.CheckMutation(current, next); err != nil {
			return backoff.Permanent(err)
		}

		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()

		actual, err := encodeActual(next.Actual)
		if err != nil {
			return backoff.Permanent(err)
		}

		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE projections
			SET status = ?, actual = ?, start_time = ?, game_id = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`),
			string(next.Status), actual, encodeTime(next.StartTime), nullString(next.GameID),
			next.Version, next.UpdatedAt.Format(timeLayout),
			current.ID, current.Version,
		)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("update projection: %w", err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("update projection: %w", err))
		}
		if affected == 0 {
			s.logger.Debug().Str("player", key.Player).Int64("version", current.Version).Msg("Version conflict, retrying")
			return fmt.Errorf("%w: %s at version %d", models.ErrVersionConflict, key, current.Version)
		}

		result = next
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxElapsedTime = s.maxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx)); err != nil {
		return models.Record{}, err
	}
	if noChange {
		return result, models.ErrNoChange
	}
	return result, nil
}

func validateNew(record *models.Record) error {
	if record == nil {
		return fmt.Errorf("%w: nil record", models.ErrInvalidTransition)
	}
	if strings.TrimSpace(record.Player) == "" {
		return fmt.Errorf("%w: player is required", models.ErrInvalidTransition)
	}
	if record.GameDate.IsZero() {
		return fmt.Errorf("%w: game date is required", models.ErrInvalidTransition)
	}
	if record.Status == "" {
		record.Status = models.StatusUpcoming
	}
	if !record.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, record.Status)
	}
	if record.Status != models.StatusCompleted && len(record.Actual) > 0 {
		return fmt.Errorf("%w: actual stats require completed status", models.ErrInvalidTransition)
	}
	// rows are read back strictly, so anything scanRecord would reject stops here
	homeAway, err := models.ParseHomeAway(string(record.HomeAway))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidTransition, err)
	}
	record.HomeAway = homeAway
	if record.Predicted == nil {
		record.Predicted = models.StatLine{}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (models.Record, error) {
	var (
		r                          models.Record
		gameDate, homeAway, status string
		startTime, gameID, team    sql.NullString
		predicted                  string
		actual                     sql.NullString
		createdAt, updatedAt       string
	)
	err := row.Scan(&r.ID, &r.Player, &gameDate, &r.Matchup, &homeAway, &status, &startTime,
		&gameID, &team, &predicted, &actual, &r.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, err
		}
		return models.Record{}, fmt.Errorf("scan projection: %w", err)
	}

	corrupt := func(field string, err error) error {
		return fmt.Errorf("%w: projection %s field %s: %v", models.ErrCorruptState, r.ID, field, err)
	}

	if r.GameDate, err = models.ParseDate(gameDate); err != nil {
		return models.Record{}, corrupt("game_date", err)
	}
	if r.HomeAway, err = models.ParseHomeAway(homeAway); err != nil {
		return models.Record{}, corrupt("home_away", err)
	}
	if r.Status, err = models.ParseStatus(status); err != nil {
		return models.Record{}, corrupt("status", err)
	}
	if err := json.Unmarshal([]byte(predicted), &r.Predicted); err != nil {
		return models.Record{}, corrupt("predicted", err)
	}
	if actual.Valid && actual.String != "" {
		if err := json.Unmarshal([]byte(actual.String), &r.Actual); err != nil {
			return models.Record{}, corrupt("actual", err)
		}
	}
	if startTime.Valid && startTime.String != "" {
		if r.StartTime, err = time.Parse(timeLayout, startTime.String); err != nil {
			return models.Record{}, corrupt("start_time", err)
		}
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return models.Record{}, corrupt("created_at", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return models.Record{}, corrupt("updated_at", err)
	}
	r.GameID = gameID.String
	r.TeamCode = team.String

	return r, nil
}

func encodeActual(actual models.StatLine) (interface{}, error) {
	if len(actual) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(actual)
	if err != nil {
		return nil, fmt.Errorf("encode actual: %w", err)
	}
	return string(data), nil
}

func encodeTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLStore)(nil)
