package analyzer

import (
	"math"

	"AleoRisk/internal/domain/models"

	"github.com/shopspring/decimal"
)

// TradingDays is the number of periods per year used to annualize volatility.
const TradingDays = 252

// Default volatility thresholds, in percent.
const (
	DefaultLowThreshold  = 5.0
	DefaultHighThreshold = 15.0
)

// Thresholds bound the default three-level classification.
// Volatility below Low is LOW, below High is MEDIUM, anything else HIGH.
type Thresholds struct {
	Low  float64
	High float64
}

// DefaultThresholds returns the 5/15 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLowThreshold, High: DefaultHighThreshold}
}

// ComputeStatistics summarizes returns with the default thresholds.
// A non-nil threshold switches to binary classification.
func ComputeStatistics(returns []float64, threshold *float64) models.SummaryStatistics {
	return DefaultThresholds().Compute(returns, threshold)
}

// Compute summarizes returns using t for the three-level classification.
func (t Thresholds) Compute(returns []float64, threshold *float64) models.SummaryStatistics {
	mean, variance := moments(returns)
	std := math.Sqrt(variance)
	vol := Volatility(returns)

	return models.SummaryStatistics{
		Mean:       Round(mean, 2),
		Variance:   variance,
		StdDev:     std,
		Volatility: vol,
		RiskLevel:  t.Classify(vol, threshold),
		Count:      len(returns),
	}
}

// Classify maps a volatility to a risk level.
func (t Thresholds) Classify(volatility float64, threshold *float64) models.RiskLevel {
	if threshold != nil {
		if volatility <= *threshold {
			return models.RiskLow
		}
		return models.RiskHigh
	}
	switch {
	case volatility < t.Low:
		return models.RiskLow
	case volatility < t.High:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// Volatility is the sample standard deviation scaled by sqrt(252), rounded to 2dp.
// It is 0 for fewer than two observations.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	_, variance := moments(returns)
	return Round(math.Sqrt(variance)*math.Sqrt(TradingDays), 2)
}

// moments returns the mean and the n-1 variance (0 when n < 2).
func moments(returns []float64) (mean, variance float64) {
	n := len(returns)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return mean, sq / float64(n-1)
}

// Round rounds v half away from zero to the given decimal places.
// The shortest decimal form of v is rounded, so 17.385 becomes 17.39.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
