package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Stat names a tracked box-score measurement
type Stat string

const (
	StatPoints    Stat = "PTS"
	StatRebounds  Stat = "REB"
	StatAssists   Stat = "AST"
	StatThrees    Stat = "FG3M"
	StatSteals    Stat = "STL"
	StatBlocks    Stat = "BLK"
	StatTurnovers Stat = "TOV"

	// Composites are derived from the base stats above
	StatPRA Stat = "PRA"
	StatPR  Stat = "P+R"
	StatPA  Stat = "P+A"
	StatRA  Stat = "R+A"
)

// BaseStats are the stats read directly from a game log or box score
var BaseStats = []Stat{
	StatPoints, StatRebounds, StatAssists, StatThrees,
	StatSteals, StatBlocks, StatTurnovers,
}

// TrackedStats is the fixed stat set of a player projection, in display order
var TrackedStats = []Stat{
	StatPoints, StatRebounds, StatAssists, StatThrees,
	StatSteals, StatBlocks, StatTurnovers,
	StatPRA, StatPR, StatPA, StatRA,
}

// StatLine maps stat names to values
type StatLine map[Stat]float64

// Clone returns a copy of the line; nil stays nil
func (l StatLine) Clone() StatLine {
	if l == nil {
		return nil
	}
	out := make(StatLine, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Equal reports whether both lines hold the same stats and values
func (l StatLine) Equal(other StatLine) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		ov, ok := other[k]
		if !ok {
			return false
		}
		if v != ov && !(math.IsNaN(v) && math.IsNaN(ov)) {
			return false
		}
	}
	return true
}

// WithComposites returns a copy of the line with PRA, P+R, P+A and R+A filled in.
// A composite is only derived when every component is present.
func (l StatLine) WithComposites() StatLine {
	out := l.Clone()
	if out == nil {
		out = StatLine{}
	}
	pts, hasP := out[StatPoints]
	reb, hasR := out[StatRebounds]
	ast, hasA := out[StatAssists]

	if hasP && hasR && hasA {
		out[StatPRA] = pts + reb + ast
	}
	if hasP && hasR {
		out[StatPR] = pts + reb
	}
	if hasP && hasA {
		out[StatPA] = pts + ast
	}
	if hasR && hasA {
		out[StatRA] = reb + ast
	}
	return out
}

// Status is the lifecycle state of a projection
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1
func (s Status) Rank() int {
	switch s {
	case StatusUpcoming:
		return 0
	case StatusLive:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the lifecycle statuses
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// ParseStatus parses a status case-insensitively
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return s, nil
}

// HomeAway tells whether the player's team hosts the game
type HomeAway string

const (
	Home HomeAway = "Home"
	Away HomeAway = "Away"
)

// HomeAwayFor converts an is-home flag
func HomeAwayFor(isHome bool) HomeAway {
	if isHome {
		return Home
	}
	return Away
}

// ParseHomeAway parses "Home"/"Away" case-insensitively
func ParseHomeAway(value string) (HomeAway, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "home":
		return Home, nil
	case "away":
		return Away, nil
	}
	return "", fmt.Errorf("unknown home/away value %q", value)
}

// Key identifies a projection
type Key struct {
	Player   string
	GameDate time.Time
}

// NewKey builds a key with a normalised player name and calendar date
func NewKey(player string, gameDate time.Time) Key {
	return Key{Player: strings.TrimSpace(player), GameDate: DateOf(gameDate)}
}

func (k Key) String() string {
	return k.Player + "|" + FormatDate(k.GameDate)
}

// Record is a stored projection for one player and one game
type Record struct {
	ID        string    `json:"id"`
	Player    string    `json:"player"`
	GameDate  time.Time `json:"game_date"`
	Matchup   string    `json:"opponent"`
	HomeAway  HomeAway  `json:"home_away"`
	CreatedAt time.Time `json:"created_at"` // informational only
	Predicted StatLine  `json:"predicted"`
	Actual    StatLine  `json:"actual,omitempty"` // only set once completed
	Status    Status    `json:"status"`

	// Scheduling details captured when the next game was resolved
	StartTime time.Time `json:"start_time,omitempty"`
	GameID    string    `json:"game_id,omitempty"`
	TeamCode  string    `json:"team_code,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the identity of the record
func (r Record) Key() Key {
	return NewKey(r.Player, r.GameDate)
}

// Clone returns a deep copy
func (r Record) Clone() Record {
	out := r
	out.Predicted = r.Predicted.Clone()
	out.Actual = r.Actual.Clone()
	return out
}

// Game is one scheduled, live or finished game as reported by a GameFeed
type Game struct {
	GameID       string    `json:"game_id"`
	HomeTeamCode string    `json:"home_team_code"`
	AwayTeamCode string    `json:"away_team_code"`
	StatusText   string    `json:"status_text"`
	State        string    `json:"state,omitempty"` // provider state when available: pre, in, post
	StartTimeUTC time.Time `json:"start_time_utc"`
	HomeScore    int       `json:"home_score"`
	AwayScore    int       `json:"away_score"`
}

// Involves reports whether team plays in the game
func (g Game) Involves(team string) bool {
	return g.HomeTeamCode == team || g.AwayTeamCode == team
}

// PlayerLine is one player's box-score entry
type PlayerLine struct {
	PlayerName string   `json:"player_name"`
	TeamCode   string   `json:"team_code"`
	Stats      StatLine `json:"stats"`
}

// GameLine is one past game in a player's history
type GameLine struct {
	Date     time.Time `json:"date"`
	GameID   string    `json:"game_id,omitempty"`
	Matchup  string    `json:"matchup"`
	TeamCode string    `json:"team_code"`
	Stats    StatLine  `json:"stats"`
}

// Player identifies a player in a HistorySource
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TeamCode string `json:"team_code"`
}
