package aleo

import (
	"math"

	"AleoRisk/internal/domain/models"
)

func newTx(address, fn string, fee int64, inputs ...string) models.Transaction {
	return models.Transaction{
		Address: address,
		ChainID: ChainID,
		Transitions: []models.Transition{{
			Program:      ProgramID,
			FunctionName: fn,
			Inputs:       inputs,
		}},
		Fee:        fee,
		FeePrivate: false,
	}
}

// RegisterPortfolio builds register_portfolio(commitment, data_points).
func RegisterPortfolio(address, commitment string, dataPoints int) models.Transaction {
	return newTx(address, FnRegisterPortfolio, FeeRegister, commitment, U32(uint32(dataPoints)))
}

// PortfolioRecord renders the plaintext record register_portfolio returns.
func PortfolioRecord(owner, commitment string, dataPoints int) string {
	return "{ owner: " + owner + ".private, commitment: " + commitment +
		".private, data_points: " + U32(uint32(dataPoints)) + ".private }"
}

// ComputeVolatility builds compute_volatility with the series mean and its
// sample variance in fixed point.
func ComputeVolatility(address, record string, returns []float64) models.Transaction {
	mean, variance := meanVariance(returns)
	return newTx(address, FnComputeVolatility, FeeVolatility,
		record,
		I64(ScaleValue(mean)),
		U64(ScaleSquared(variance)),
		U32(TradingDays),
	)
}

// ComputeRiskScore builds compute_risk_score. A non-nil threshold replaces both
// bounds so the program classifies in binary mode.
func ComputeRiskScore(address string, volatility float64, volCommitment string, low, high float64, threshold *float64) models.Transaction {
	p := EncodeRiskParamsWith(low, high, nil)
	if threshold != nil {
		c := EncodeRiskParamsWith(low, high, threshold).Custom
		p.Low, p.High = c, c
	}
	return newTx(address, FnComputeRiskScore, FeeRisk,
		U64(uint64(ScaleValue(volatility))),
		volCommitment,
		p.Low,
		p.High,
	)
}

// VerifyRiskReport builds verify_risk_report(risk_commitment).
func VerifyRiskReport(address, riskCommitment string) models.Transaction {
	return newTx(address, FnVerifyRiskReport, FeeVerify, riskCommitment)
}

// ExportReceipt builds export_risk_receipt.
func ExportReceipt(address, volCommitment, riskCommitment string, level models.RiskLevel) models.Transaction {
	return newTx(address, FnExportReceipt, FeeReceipt, volCommitment, riskCommitment, U8(level.Code()))
}

func meanVariance(returns []float64) (float64, float64) {
	n := len(returns)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, r := range returns {
		sq += math.Pow(r-mean, 2)
	}
	return mean, sq / float64(n-1)
}
