package analyzer

import "AleoRisk/internal/domain/models"

// CurrentLabel names the single bucket used when the series is too short to window.
const CurrentLabel = "Current"

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Windowing controls how a series is cut into chart buckets.
//
// Bucket i starts at i*floor(n/Periods) and covers min(MaxWindow, floor(n/Periods))
// observations. Missing trailing buckets repeat the last computed one.
type Windowing struct {
	MaxWindow int
	Periods   int
}

// DefaultWindowing is 12 monthly buckets of at most 21 trading days.
func DefaultWindowing() Windowing {
	return Windowing{MaxWindow: 21, Periods: 12}
}

// BucketByPeriod buckets returns with DefaultWindowing.
func BucketByPeriod(dates []string, returns []float64) []models.VolatilityBucket {
	return DefaultWindowing().Buckets(dates, returns)
}

// Buckets computes the rolling volatility chart series. dates are not used for
// placement; labels come from the bucket index.
func (w Windowing) Buckets(_ []string, returns []float64) []models.VolatilityBucket {
	n := len(returns)
	periods := w.Periods
	if periods <= 0 || periods > len(monthLabels) {
		periods = len(monthLabels)
	}
	step := n / periods
	window := min(w.MaxWindow, step)

	if window < 2 || n < window {
		return []models.VolatilityBucket{{Label: CurrentLabel, Volatility: Volatility(returns)}}
	}

	out := make([]models.VolatilityBucket, 0, periods)
	for i := 0; i < periods; i++ {
		start := i * step
		if start >= n {
			break
		}
		end := min(start+window, n)
		out = append(out, models.VolatilityBucket{
			Label:      monthLabels[i],
			Volatility: Round(Volatility(returns[start:end]), 1),
		})
	}

	for len(out) < periods {
		last := out[len(out)-1]
		out = append(out, models.VolatilityBucket{Label: monthLabels[len(out)], Volatility: last.Volatility})
	}
	return out
}
