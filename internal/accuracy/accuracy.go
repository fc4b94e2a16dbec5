// Package accuracy scores completed projections against what happened.
package accuracy

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/Projector/models"
)

// ScoredStats are the stats accuracy is reported for
var ScoredStats = []models.Stat{
	models.StatPoints, models.StatRebounds, models.StatAssists, models.StatThrees,
	models.StatSteals, models.StatBlocks, models.StatTurnovers, models.StatPRA,
}

// StatError is the mean absolute error of one stat
type StatError struct {
	Stat    models.Stat `json:"stat"`
	MAE     float64     `json:"mae"`
	Samples int         `json:"samples"`
}

// Comparison is the latest completed projection of a player
type Comparison struct {
	Player    string          `json:"player"`
	GameDate  string          `json:"game_date"`
	Matchup   string          `json:"opponent"`
	Predicted models.StatLine `json:"predicted"`
	Actual    models.StatLine `json:"actual"`
}

// Report summarises accuracy over a set of projections
type Report struct {
	Completed int          `json:"completed"`
	Stats     []StatError  `json:"stats"`
	Players   []Comparison `json:"players"`
}

// Headline returns the PRA error, the figure shown first
func (r Report) Headline() (StatError, bool) {
	for _, s := range r.Stats {
		if s.Stat == models.StatPRA {
			return s, s.Samples > 0
		}
	}
	return StatError{}, false
}

// Compute scores every completed projection in records. Stats missing on
// either side of a projection are left out of that stat's average.
func Compute(records []models.Record) Report {
	sums := make(map[models.Stat]decimal.Decimal, len(ScoredStats))
	counts := make(map[models.Stat]int, len(ScoredStats))
	latest := make(map[string]models.Record)

	var report Report
	for _, r := range records {
		if r.Status != models.StatusCompleted {
			continue
		}
		report.Completed++

		for _, stat := range ScoredStats {
			predicted, okP := r.Predicted[stat]
			actual, okA := r.Actual[stat]
			if !okP || !okA {
				continue
			}
			diff := decimal.NewFromFloat(actual).Sub(decimal.NewFromFloat(predicted)).Abs()
			sums[stat] = sums[stat].Add(diff)
			counts[stat]++
		}

		if prev, ok := latest[r.Player]; !ok || r.GameDate.After(prev.GameDate) {
			latest[r.Player] = r
		}
	}

	for _, stat := range ScoredStats {
		se := StatError{Stat: stat, Samples: counts[stat]}
		if se.Samples > 0 {
			se.MAE = sums[stat].Div(decimal.NewFromInt(int64(se.Samples))).Round(2).InexactFloat64()
		}
		report.Stats = append(report.Stats, se)
	}

	for _, r := range latest {
		report.Players = append(report.Players, Comparison{
			Player:    r.Player,
			GameDate:  models.FormatDate(r.GameDate),
			Matchup:   r.Matchup,
			Predicted: r.Predicted.Clone(),
			Actual:    r.Actual.Clone(),
		})
	}
	sort.Slice(report.Players, func(i, j int) bool { return report.Players[i].Player < report.Players[j].Player })

	return report
}
