package schedule

import (
	"fmt"
	"strings"

	"github.com/Alias1177/Projector/models"
)

// FormatMatchup renders the opponent descriptor for team's game.
// The token after "@" is always team itself: "NYK @ BOS" for a Boston home
// game, "LAL @ BOS" for Boston visiting the Lakers.
func FormatMatchup(game models.Game, team string) (matchup string, isHome bool) {
	if game.HomeTeamCode == team {
		return game.AwayTeamCode + " @ " + game.HomeTeamCode, true
	}
	return game.HomeTeamCode + " @ " + game.AwayTeamCode, false
}

// Matchup is a parsed opponent descriptor
type Matchup struct {
	Opponent string
	Team     string
}

// ParseMatchup extracts both codes from a descriptor written by FormatMatchup
func ParseMatchup(matchup string) (Matchup, error) {
	left, right, found := strings.Cut(matchup, "@")
	if !found {
		return Matchup{}, fmt.Errorf("%w: %q has no @", models.ErrMalformedMatchup, matchup)
	}
	opponent := strings.ToUpper(strings.TrimSpace(left))
	team := strings.ToUpper(strings.TrimSpace(right))
	if team == "" || strings.ContainsAny(team, " @") || strings.Contains(opponent, " ") {
		return Matchup{}, fmt.Errorf("%w: %q", models.ErrMalformedMatchup, matchup)
	}
	return Matchup{Opponent: opponent, Team: team}, nil
}
