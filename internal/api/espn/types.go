package espn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/Projector/models"
)

// Stat positions in the athletes' stats array when a response carries no labels.
// MIN, PTS, OREB, DREB, REB, AST, STL, BLK, TO, FG, FG%, 3PT, 3PT%, FT, FT%, PF, +/-
const (
	idxPoints = 1
	idxReb    = 4
	idxAst    = 5
	idxStl    = 6
	idxBlk    = 7
	idxTO     = 8
	idx3PT    = 11

	minIndexedStats = 17
)

type scoreboard struct {
	Events []event `json:"events"`
}

type event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Status       eventStatus   `json:"status"`
	Competitions []competition `json:"competitions"`
}

type eventStatus struct {
	Period int `json:"period"`
	Type   struct {
		State       string `json:"state"`
		Completed   bool   `json:"completed"`
		Description string `json:"description"`
		Detail      string `json:"detail"`
		ShortDetail string `json:"shortDetail"`
	} `json:"type"`
}

type competition struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	Status      *eventStatus `json:"status"`
	Competitors []competitor `json:"competitors"`
}

type competitor struct {
	HomeAway string  `json:"homeAway"`
	Score    flexInt `json:"score"`
	Team     team    `json:"team"`
}

type team struct {
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

type summary struct {
	Boxscore boxscore `json:"boxscore"`
}

type boxscore struct {
	Players []teamPlayers `json:"players"`
}

type teamPlayers struct {
	Team       team         `json:"team"`
	Statistics []statsGroup `json:"statistics"`
}

type statsGroup struct {
	Labels   []string      `json:"labels"`
	Athletes []athleteLine `json:"athletes"`
}

type athleteLine struct {
	Athlete struct {
		DisplayName string `json:"displayName"`
	} `json:"athlete"`
	DidNotPlay bool     `json:"didNotPlay"`
	Stats      []string `json:"stats"`
}

// flexInt accepts both 101 and "101"
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		var obj struct {
			Value float64 `json:"value"`
		}
		if jsonErr := json.Unmarshal(data, &obj); jsonErr == nil {
			*f = flexInt(obj.Value)
			return nil
		}
		return fmt.Errorf("parsing score %q: %w", data, err)
	}
	*f = flexInt(v)
	return nil
}

func (e event) toGame() (models.Game, error) {
	if len(e.Competitions) == 0 {
		return models.Game{}, fmt.Errorf("event %s has no competitions", e.ID)
	}
	comp := e.Competitions[0]

	status := e.Status
	if comp.Status != nil && status.Type.State == "" {
		status = *comp.Status
	}

	game := models.Game{
		GameID:     e.ID,
		StatusText: statusText(status),
		State:      status.Type.State,
	}
	if game.GameID == "" {
		game.GameID = comp.ID
	}

	date := e.Date
	if date == "" {
		date = comp.Date
	}
	start, err := parseStartTime(date)
	if err != nil {
		return models.Game{}, err
	}
	game.StartTimeUTC = start

	for _, c := range comp.Competitors {
		switch c.HomeAway {
		case "home":
			game.HomeTeamCode = c.Team.Abbreviation
			game.HomeScore = int(c.Score)
		case "away":
			game.AwayTeamCode = c.Team.Abbreviation
			game.AwayScore = int(c.Score)
		}
	}
	if game.HomeTeamCode == "" || game.AwayTeamCode == "" {
		return models.Game{}, fmt.Errorf("event %s is missing a competitor", e.ID)
	}

	return game, nil
}

func statusText(s eventStatus) string {
	switch {
	case s.Type.Detail != "":
		return s.Type.Detail
	case s.Type.ShortDetail != "":
		return s.Type.ShortDetail
	default:
		return s.Type.Description
	}
}

// parseStartTime handles ESPN's minute-precision "2025-11-11T23:30Z" as well as RFC3339
func parseStartTime(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04Z07:00", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised start time %q", value)
}

func (b boxscore) playerLines() []models.PlayerLine {
	var lines []models.PlayerLine
	for _, tp := range b.Players {
		if len(tp.Statistics) == 0 {
			continue
		}
		// First group has player stats
		group := tp.Statistics[0]
		columns := labelColumns(group.Labels)

		for _, a := range group.Athletes {
			if a.DidNotPlay || len(a.Stats) == 0 {
				continue
			}
			stats, ok := parseStats(a.Stats, columns)
			if !ok {
				continue
			}
			lines = append(lines, models.PlayerLine{
				PlayerName: a.Athlete.DisplayName,
				TeamCode:   tp.Team.Abbreviation,
				Stats:      stats.WithComposites(),
			})
		}
	}
	return lines
}

// labelColumns maps tracked stats to their column in the stats array
func labelColumns(labels []string) map[models.Stat]int {
	if len(labels) == 0 {
		return nil
	}
	columns := make(map[models.Stat]int)
	for i, label := range labels {
		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "PTS":
			columns[models.StatPoints] = i
		case "REB":
			columns[models.StatRebounds] = i
		case "AST":
			columns[models.StatAssists] = i
		case "3PT", "3PM", "FG3":
			columns[models.StatThrees] = i
		case "STL":
			columns[models.StatSteals] = i
		case "BLK":
			columns[models.StatBlocks] = i
		case "TO", "TOV":
			columns[models.StatTurnovers] = i
		}
	}
	return columns
}

func parseStats(raw []string, columns map[models.Stat]int) (models.StatLine, bool) {
	if columns == nil {
		if len(raw) < minIndexedStats {
			return nil, false
		}
		columns = map[models.Stat]int{
			models.StatPoints:    idxPoints,
			models.StatRebounds:  idxReb,
			models.StatAssists:   idxAst,
			models.StatThrees:    idx3PT,
			models.StatSteals:    idxStl,
			models.StatBlocks:    idxBlk,
			models.StatTurnovers: idxTO,
		}
	}

	line := make(models.StatLine, len(columns))
	for stat, i := range columns {
		if i >= len(raw) {
			continue
		}
		v, ok := parseValue(raw[i])
		if !ok {
			continue
		}
		line[stat] = v
	}
	return line, len(line) > 0
}

// parseValue reads "25", "+3" or the made half of "4-9"
func parseValue(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if made, _, found := strings.Cut(value, "-"); found && made != "" {
		value = made
	}
	value = strings.TrimPrefix(value, "+")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
