package analyzer

import (
	"io"

	"AleoRisk/internal/domain/models"
)

// Analysis is everything derived from one parsed series.
type Analysis struct {
	Series     models.ParsedSeries
	Statistics models.SummaryStatistics
	Buckets    []models.VolatilityBucket
}

// Analyzer bundles thresholds and windowing. The zero value is not usable; use New.
// An Analyzer holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	thresholds Thresholds
	windowing  Windowing
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds overrides the LOW/MEDIUM/HIGH boundaries.
func WithThresholds(low, high float64) Option {
	return func(a *Analyzer) {
		if low > 0 && high > low {
			a.thresholds = Thresholds{Low: low, High: high}
		}
	}
}

// WithWindowing overrides the chart bucketing policy.
func WithWindowing(maxWindow, periods int) Option {
	return func(a *Analyzer) {
		if maxWindow >= 2 && periods > 0 {
			a.windowing = Windowing{MaxWindow: maxWindow, Periods: periods}
		}
	}
}

// New returns an Analyzer with the default 5/15 thresholds and 21/12 windowing.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{thresholds: DefaultThresholds(), windowing: DefaultWindowing()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze derives statistics and buckets from an already parsed series.
func (a *Analyzer) Analyze(series models.ParsedSeries, threshold *float64) Analysis {
	return Analysis{
		Series:     series,
		Statistics: a.thresholds.Compute(series.Returns, threshold),
		Buckets:    a.windowing.Buckets(series.Dates, series.Returns),
	}
}

// AnalyzeText parses CSV text then analyzes it.
func (a *Analyzer) AnalyzeText(content string, threshold *float64) (Analysis, error) {
	series, err := Parse(content)
	if err != nil {
		return Analysis{}, err
	}
	return a.Analyze(series, threshold), nil
}

// AnalyzeUpload reads an uploaded file, picking the workbook reader for .xlsx.
func (a *Analyzer) AnalyzeUpload(r io.Reader, filename, contentType string, threshold *float64) (Analysis, error) {
	var (
		series models.ParsedSeries
		err    error
	)
	if IsWorkbook(filename, contentType) {
		series, err = ParseWorkbook(r)
	} else {
		var b []byte
		if b, err = io.ReadAll(r); err == nil {
			series, err = Parse(string(b))
		}
	}
	if err != nil {
		return Analysis{}, err
	}
	return a.Analyze(series, threshold), nil
}

// Analyze uses the default thresholds and windowing.
func Analyze(series models.ParsedSeries, threshold *float64) Analysis {
	return New().Analyze(series, threshold)
}
