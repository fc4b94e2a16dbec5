// Package teams is the canonical NBA team table.
//
// Every feed spells teams a little differently (ESPN uses "GS" and "UTAH",
// nba.com uses "GSW" and "UTA"). Resolve maps any of those spellings to the
// three letter nba.com tricode used throughout the store.
package teams

import (
	"strings"

	"github.com/Alias1177/Projector/internal/names"
)

// Team is one franchise
type Team struct {
	Code     string
	City     string
	Nickname string
	Aliases  []string
}

// Name returns the full display name, e.g. "Boston Celtics"
func (t Team) Name() string {
	return t.City + " " + t.Nickname
}

var all = []Team{
	{Code: "ATL", City: "Atlanta", Nickname: "Hawks"},
	{Code: "BOS", City: "Boston", Nickname: "Celtics"},
	{Code: "BKN", City: "Brooklyn", Nickname: "Nets", Aliases: []string{"BK", "BRK", "NJN"}},
	{Code: "CHA", City: "Charlotte", Nickname: "Hornets", Aliases: []string{"CHO"}},
	{Code: "CHI", City: "Chicago", Nickname: "Bulls"},
	{Code: "CLE", City: "Cleveland", Nickname: "Cavaliers"},
	{Code: "DAL", City: "Dallas", Nickname: "Mavericks"},
	{Code: "DEN", City: "Denver", Nickname: "Nuggets"},
	{Code: "DET", City: "Detroit", Nickname: "Pistons"},
	{Code: "GSW", City: "Golden State", Nickname: "Warriors", Aliases: []string{"GS"}},
	{Code: "HOU", City: "Houston", Nickname: "Rockets"},
	{Code: "IND", City: "Indiana", Nickname: "Pacers"},
	{Code: "LAC", City: "LA", Nickname: "Clippers", Aliases: []string{"Los Angeles Clippers"}},
	{Code: "LAL", City: "Los Angeles", Nickname: "Lakers"},
	{Code: "MEM", City: "Memphis", Nickname: "Grizzlies"},
	{Code: "MIA", City: "Miami", Nickname: "Heat"},
	{Code: "MIL", City: "Milwaukee", Nickname: "Bucks"},
	{Code: "MIN", City: "Minnesota", Nickname: "Timberwolves"},
	{Code: "NOP", City: "New Orleans", Nickname: "Pelicans", Aliases: []string{"NO", "NOR"}},
	{Code: "NYK", City: "New York", Nickname: "Knicks", Aliases: []string{"NY"}},
	{Code: "OKC", City: "Oklahoma City", Nickname: "Thunder"},
	{Code: "ORL", City: "Orlando", Nickname: "Magic"},
	{Code: "PHI", City: "Philadelphia", Nickname: "76ers", Aliases: []string{"Sixers"}},
	{Code: "PHX", City: "Phoenix", Nickname: "Suns", Aliases: []string{"PHO"}},
	{Code: "POR", City: "Portland", Nickname: "Trail Blazers"},
	{Code: "SAC", City: "Sacramento", Nickname: "Kings"},
	{Code: "SAS", City: "San Antonio", Nickname: "Spurs", Aliases: []string{"SA"}},
	{Code: "TOR", City: "Toronto", Nickname: "Raptors"},
	{Code: "UTA", City: "Utah", Nickname: "Jazz", Aliases: []string{"UTAH"}},
	{Code: "WAS", City: "Washington", Nickname: "Wizards", Aliases: []string{"WSH"}},
}

var (
	byCode = map[string]Team{}
	byName = map[string]Team{}
)

func init() {
	for _, t := range all {
		byCode[t.Code] = t
		byName[names.Fold(t.Name())] = t
		byName[names.Fold(t.Nickname)] = t
		for _, alias := range t.Aliases {
			if len(alias) <= 4 {
				byCode[strings.ToUpper(alias)] = t
			} else {
				byName[names.Fold(alias)] = t
			}
		}
	}
}

// All returns every team ordered by code
func All() []Team {
	out := make([]Team, len(all))
	copy(out, all)
	return out
}

// Lookup returns the team for a canonical code
func Lookup(code string) (Team, bool) {
	t, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return t, ok
}

// Resolution is the outcome of Resolve
type Resolution struct {
	Code string
	// Fuzzy is set when the match came from a partial name rather than
	// an exact code, alias or full name. Callers should log it.
	Fuzzy bool
}

// Resolve maps a code, alias or team name to its canonical code
func Resolve(value string) (Resolution, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Resolution{}, false
	}
	if t, ok := byCode[strings.ToUpper(value)]; ok {
		return Resolution{Code: t.Code}, true
	}

	folded := names.Fold(value)
	if t, ok := byName[folded]; ok {
		return Resolution{Code: t.Code}, true
	}

	var match *Team
	for i := range all {
		if strings.Contains(folded, names.Fold(all[i].Nickname)) {
			if match != nil {
				return Resolution{}, false
			}
			match = &all[i]
		}
	}
	if match == nil {
		return Resolution{}, false
	}
	return Resolution{Code: match.Code, Fuzzy: true}, true
}

// Canonical returns the canonical code for value, or value upper-cased
// when it matches nothing
func Canonical(value string) string {
	if r, ok := Resolve(value); ok {
		return r.Code
	}
	return strings.ToUpper(strings.TrimSpace(value))
}
