// Package forecast predicts the next value of a per-game stat sequence.
//
// Sequences shorter than three points fall back to their mean. Longer
// sequences are fitted with a repeated-median line over the game index: each
// game contributes the median of its slopes to every other game, the slope is
// the median of those, and the intercept the median residual. Up to half the
// games can be outliers, including the most recent one, without dragging the
// trend.
package forecast

import (
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/Projector/models"
)

// MinRegressionPoints is the smallest history that gets a trend fit
const MinRegressionPoints = 3

// PredictNext returns the expected next value of history
func PredictNext(history []float64) float64 {
	values := finite(history)

	switch {
	case len(values) == 0:
		return 0
	case len(values) < MinRegressionPoints:
		return mean(values)
	}

	slope, intercept := repeatedMedian(values)
	next := intercept + slope*float64(len(values))
	return round1(next)
}

// PredictLine predicts every stat in stats from a player's game history.
// Composite stats are derived per game before fitting, so PRA follows its own trend.
func PredictLine(history []models.GameLine, stats []models.Stat) models.StatLine {
	series := make(map[models.Stat][]float64, len(stats))
	for _, game := range history {
		line := game.Stats.WithComposites()
		for _, stat := range stats {
			if v, ok := line[stat]; ok {
				series[stat] = append(series[stat], v)
			}
		}
	}

	out := make(models.StatLine, len(stats))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, stat := range stats {
		wg.Add(1)
		go func(stat models.Stat, values []float64) {
			defer wg.Done()
			v := PredictNext(values)
			mu.Lock()
			out[stat] = v
			mu.Unlock()
		}(stat, series[stat])
	}
	wg.Wait()

	return out
}

func repeatedMedian(values []float64) (slope, intercept float64) {
	n := len(values)
	perPoint := make([]float64, n)
	slopes := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		slopes = slopes[:0]
		for j := 0; j < n; j++ {
			if j != i {
				slopes = append(slopes, (values[j]-values[i])/float64(j-i))
			}
		}
		perPoint[i] = median(slopes)
	}
	slope = median(perPoint)

	residuals := make([]float64, n)
	for i, v := range values {
		residuals[i] = v - slope*float64(i)
	}
	intercept = median(residuals)

	return slope, intercept
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// round1 rounds half away from zero to one decimal place
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
