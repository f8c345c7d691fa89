package models

import "time"

// RiskLevel is the discrete classification derived from annualized volatility.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Code returns the u8 code used by the Leo program (0=LOW, 1=MEDIUM, 2=HIGH).
func (r RiskLevel) Code() uint8 {
	switch r {
	case RiskLow:
		return 0
	case RiskHigh:
		return 2
	default:
		return 1
	}
}

// RiskLevelFromCode maps a Leo u8 level back to a RiskLevel. Unknown codes map to MEDIUM.
func RiskLevelFromCode(code int) RiskLevel {
	switch code {
	case 0:
		return RiskLow
	case 2:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// ParsedSeries is the index-aligned output of parsing one uploaded file.
// Weights is nil unless every accepted row carried a numeric weight.
type ParsedSeries struct {
	Dates   []string  `json:"dates"`
	Returns []float64 `json:"returns"`
	Weights []float64 `json:"weights,omitempty"`
}

// Len returns the number of observations.
func (p ParsedSeries) Len() int { return len(p.Returns) }

// SummaryStatistics is recomputed on every analysis call.
type SummaryStatistics struct {
	Mean       float64   `json:"mean_return"`
	Variance   float64   `json:"variance"`
	StdDev     float64   `json:"std_dev"`
	Volatility float64   `json:"volatility"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Count      int       `json:"data_points"`
}

// VolatilityBucket is one point of the chart series.
type VolatilityBucket struct {
	Label      string  `json:"date"`
	Volatility float64 `json:"volatility"`
}

// AnalysisStatus tracks an analysis through proving.
type AnalysisStatus string

const (
	StatusProving  AnalysisStatus = "proving"
	StatusComplete AnalysisStatus = "complete"
	StatusFailed   AnalysisStatus = "failed"
)

// AnalysisResult is the stored outcome of one upload.
type AnalysisResult struct {
	ID                string              `json:"id"`
	Owner             string              `json:"owner"`
	Statistics        SummaryStatistics   `json:"statistics"`
	MonthlyVolatility []VolatilityBucket  `json:"monthly_volatility"`
	Threshold         *float64            `json:"threshold,omitempty"`
	Status            AnalysisStatus      `json:"status"`
	ProofID           string              `json:"proof_id,omitempty"`
	Verified          bool                `json:"is_verified"`
	VolCommitment     string              `json:"vol_commitment,omitempty"`
	RiskCommitment    string              `json:"risk_commitment,omitempty"`
	Error             string              `json:"error,omitempty"`
	Transactions      []TransactionStatus `json:"transactions,omitempty"`
	CreatedAt         time.Time           `json:"timestamp"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}

// RiskReport is the persisted, flattened form of a completed analysis.
type RiskReport struct {
	ReportID       string
	AnalysisID     string
	Owner          string
	ProofID        string
	Volatility     float64
	MeanReturn     float64
	RiskLevel      RiskLevel
	DataPoints     int
	Threshold      float64
	VolCommitment  string
	RiskCommitment string
	Buckets        []VolatilityBucket
	CreatedAt      time.Time
}

// ProgressEvent is streamed to websocket subscribers while an analysis is proven.
type ProgressEvent struct {
	AnalysisID  string             `json:"analysis_id"`
	Step        string             `json:"step"`
	Progress    int                `json:"progress"`
	Transaction *TransactionStatus `json:"transaction,omitempty"`
	Done        bool               `json:"done"`
	Error       string             `json:"error,omitempty"`
}
