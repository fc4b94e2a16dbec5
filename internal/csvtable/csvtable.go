// Package csvtable exports and imports projections in the flat CSV layout
// the dashboard used for saved projections.
package csvtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/Projector/models"
)

const (
	colTimestamp = "timestamp"
	colPlayer    = "player"
	colGameDate  = "gameDate"
	colOpponent  = "opponent"
	colHomeAway  = "homeAway"
	colStatus    = "status"

	actualPrefix = "actual_"
	legacySuffix = "_actual"
)

// legacy header spellings
var aliases = map[string]string{
	"game_date": colGameDate,
	"home_away": colHomeAway,
	"matchup":   colOpponent,
	"created":   colTimestamp,
}

// Header returns the column names written by Write
func Header() []string {
	header := []string{colTimestamp, colPlayer, colGameDate, colOpponent, colHomeAway, colStatus}
	for _, stat := range models.TrackedStats {
		header = append(header, string(stat))
	}
	for _, stat := range models.TrackedStats {
		header = append(header, actualPrefix+string(stat))
	}
	return header
}

// Write emits records as CSV. Actual columns stay empty until a record completes.
func Write(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Player,
			models.FormatDate(r.GameDate),
			r.Matchup,
			string(r.HomeAway),
			string(r.Status),
		}
		for _, stat := range models.TrackedStats {
			row = append(row, formatValue(r.Predicted, stat))
		}
		for _, stat := range models.TrackedStats {
			row = append(row, formatValue(r.Actual, stat))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// RowError reports a CSV row that could not be turned into a record
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read parses a projections CSV. Player, game date and home/away are required.
// Rows missing a status are read as upcoming, and a completed row without
// actual values keeps a nil actual line.
func Read(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}

		rec, err := cols.record(fields)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

type columns struct {
	index     map[string]int
	predicted map[models.Stat]int
	actual    map[models.Stat]int
}

func mapHeader(header []string) (columns, error) {
	cols := columns{
		index:     make(map[string]int),
		predicted: make(map[models.Stat]int),
		actual:    make(map[models.Stat]int),
	}

	tracked := make(map[string]models.Stat, len(models.TrackedStats))
	for _, stat := range models.TrackedStats {
		tracked[strings.ToUpper(string(stat))] = stat
	}

	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if alias, ok := aliases[name]; ok {
			name = alias
		}

		switch {
		case strings.HasPrefix(name, actualPrefix):
			if stat, ok := tracked[strings.ToUpper(strings.TrimPrefix(name, actualPrefix))]; ok {
				cols.actual[stat] = i
			}
		case strings.HasSuffix(name, legacySuffix):
			if stat, ok := tracked[strings.ToUpper(strings.TrimSuffix(name, legacySuffix))]; ok {
				cols.actual[stat] = i
			}
		default:
			if stat, ok := tracked[strings.ToUpper(name)]; ok {
				cols.predicted[stat] = i
			} else {
				cols.index[name] = i
			}
		}
	}

	for _, required := range []string{colPlayer, colGameDate, colHomeAway} {
		if _, ok := cols.index[required]; !ok {
			return cols, fmt.Errorf("missing %q column", required)
		}
	}
	return cols, nil
}

func (c columns) field(fields []string, name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (c columns) record(fields []string) (models.Record, error) {
	var rec models.Record

	rec.Player = c.field(fields, colPlayer)
	if rec.Player == "" {
		return rec, fmt.Errorf("empty player")
	}

	date, err := models.ParseDate(c.field(fields, colGameDate))
	if err != nil {
		return rec, err
	}
	rec.GameDate = date
	rec.Matchup = c.field(fields, colOpponent)

	// the matchup always ends with the player's team, so the side cannot be derived from it
	if rec.HomeAway, err = models.ParseHomeAway(c.field(fields, colHomeAway)); err != nil {
		return rec, err
	}

	rec.Status = models.StatusUpcoming
	if v := c.field(fields, colStatus); v != "" {
		if rec.Status, err = models.ParseStatus(v); err != nil {
			return rec, err
		}
	}

	if v := c.field(fields, colTimestamp); v != "" {
		if ts, err := parseTimestamp(v); err == nil {
			rec.CreatedAt = ts
		}
	}

	if rec.Predicted, err = readLine(fields, c.predicted); err != nil {
		return rec, err
	}
	if rec.Status == models.StatusCompleted {
		if rec.Actual, err = readLine(fields, c.actual); err != nil {
			return rec, err
		}
	}

	return rec, nil
}

func readLine(fields []string, cols map[models.Stat]int) (models.StatLine, error) {
	var line models.StatLine
	for stat, i := range cols {
		if i >= len(fields) {
			continue
		}
		raw := strings.TrimSpace(fields[i])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stat, err)
		}
		if line == nil {
			line = models.StatLine{}
		}
		line[stat] = v
	}
	return line, nil
}

func formatValue(line models.StatLine, stat models.Stat) string {
	v, ok := line[stat]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// the dashboard wrote naive local timestamps
func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
