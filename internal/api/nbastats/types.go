package nbastats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/Projector/models"
)

type response struct {
	ResultSets []resultSet `json:"resultSets"`
}

// resultSet is the tabular payload stats.nba.com returns: one header list
// and rows of mixed-type cells in the same order
type resultSet struct {
	Name    string              `json:"name"`
	Headers []string            `json:"headers"`
	RowSet  [][]json.RawMessage `json:"rowSet"`
}

type row struct {
	headers map[string]int
	cells   []json.RawMessage
}

func (s resultSet) rows() []row {
	index := make(map[string]int, len(s.Headers))
	for j, h := range s.Headers {
		index[strings.ToUpper(h)] = j
	}
	out := make([]row, len(s.RowSet))
	for i, cells := range s.RowSet {
		out[i] = row{headers: index, cells: cells}
	}
	return out
}

func (r row) cell(name string) (json.RawMessage, bool) {
	i, ok := r.headers[strings.ToUpper(name)]
	if !ok || i >= len(r.cells) {
		return nil, false
	}
	return r.cells[i], true
}

// str returns a string cell; numbers are rendered without a fraction
func (r row) str(name string) string {
	raw, ok := r.cell(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func (r row) num(name string) (float64, bool) {
	raw, ok := r.cell(name)
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// parseGameDate reads game log dates such as "OCT 22, 2025" or "2025-10-22T00:00:00"
func parseGameDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"Jan 2, 2006", "2006-01-02T15:04:05", models.DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised game date %q", value)
}
