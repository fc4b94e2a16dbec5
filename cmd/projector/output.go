package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/Projector/internal/accuracy"
	"github.com/Alias1177/Projector/internal/lifecycle"
	"github.com/Alias1177/Projector/internal/notify/telegram"
	"github.com/Alias1177/Projector/internal/research"
	"github.com/Alias1177/Projector/models"
)

func printOutcome(o research.Outcome) {
	fmt.Printf("\n===== %s =====\n", o.Player.Name)
	fmt.Printf("Season: %s | Games: %d\n", o.Season, o.Games)

	if o.LastGame != nil {
		fmt.Printf("Last game: %s %s | %s\n", models.FormatDate(o.LastGame.Date), o.LastGame.Matchup,
			formatLine(o.LastGame.Stats.WithComposites(), models.BaseStats))
	}
	if len(o.Trend) > 0 {
		pts := make([]string, len(o.Trend))
		for i, g := range o.Trend {
			pts[i] = fixed(g.Stats[models.StatPoints])
		}
		fmt.Printf("PTS trend (last %d): %s\n", len(o.Trend), strings.Join(pts, " "))
	}

	fmt.Printf("Projection: %s\n", formatLine(o.Predicted, models.TrackedStats))

	switch o.Kind {
	case research.KindNoGame:
		fmt.Println("No game in the schedule horizon, nothing saved.")
	case research.KindDuplicate:
		fmt.Printf("Already projected for %s (%s), status %s.\n",
			models.FormatDate(o.Record.GameDate), o.Record.Matchup, o.Record.Status)
	default:
		fmt.Printf("Saved for %s: %s (%s)\n", models.FormatDate(o.Record.GameDate), o.Record.Matchup, o.Record.HomeAway)
	}
}

func printReport(r lifecycle.Report) {
	fmt.Println("\n===== STATUS PASS =====")
	fmt.Printf("Pass: %s | Scanned: %d | Live: %d | Completed: %d | Unchanged: %d | Malformed: %d | Failed: %d\n",
		r.PassID, r.Scanned, r.ToLive, r.ToCompleted, r.Unchanged, r.Malformed, r.Failed())

	for _, t := range r.Transitions {
		fmt.Printf("  %s %s: %s -> %s\n", t.Record.Player, models.FormatDate(t.Record.GameDate), t.From, t.To)
		if t.To == models.StatusCompleted {
			for _, line := range strings.Split(telegram.FormatCompletion(t.Record), "\n")[1:] {
				fmt.Printf("    %s\n", line)
			}
		}
	}
	for _, f := range r.Failures {
		fmt.Printf("  failed %s: %v\n", f.Key, f.Err)
	}
}

func printRecords(w io.Writer, records []models.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tDATE\tMATCHUP\tSIDE\tSTATUS\tPTS\tPRA\tACTUAL PRA")
	for _, r := range records {
		actual := "-"
		if v, ok := r.Actual[models.StatPRA]; ok {
			actual = fixed(v)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Player, models.FormatDate(r.GameDate), r.Matchup, r.HomeAway, r.Status,
			fixed(r.Predicted[models.StatPoints]), fixed(r.Predicted[models.StatPRA]), actual)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d projections\n", len(records))
}

func printAccuracy(r accuracy.Report) {
	fmt.Println("\n===== ACCURACY =====")
	fmt.Printf("Completed projections: %d\n", r.Completed)
	if headline, ok := r.Headline(); ok {
		fmt.Printf("PRA mean absolute error: %s over %d games\n", fixed(headline.MAE), headline.Samples)
	}
	for _, s := range r.Stats {
		if s.Samples == 0 {
			continue
		}
		fmt.Printf("  %-5s MAE %s (%d)\n", s.Stat, fixed(s.MAE), s.Samples)
	}

	if len(r.Players) > 0 {
		fmt.Println("\nLatest per player:")
		for _, p := range r.Players {
			fmt.Printf("  %s %s %s | PRA %s -> %s\n", p.Player, p.GameDate, p.Matchup,
				fixed(p.Predicted[models.StatPRA]), fixed(p.Actual[models.StatPRA]))
		}
	}
}

func formatLine(line models.StatLine, stats []models.Stat) string {
	parts := make([]string, 0, len(stats))
	for _, stat := range stats {
		if v, ok := line[stat]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", stat, fixed(v)))
		}
	}
	return strings.Join(parts, " | ")
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}
