package aleo

import (
	"regexp"
	"strconv"

	"AleoRisk/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Scale is the fixed-point factor for i64/u64 program inputs (6 decimals).
const Scale = 1e6

const scaleExp = 6

// TradingDays is passed to compute_volatility when annualizing.
const TradingDays = 252

// ScaleValue converts v to a 6-decimal fixed-point integer, rounding half away from zero.
func ScaleValue(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(scaleExp).Round(0).IntPart()
}

// ScaleSquared converts a variance to 12-decimal fixed point.
func ScaleSquared(v float64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(decimal.NewFromFloat(v).Shift(2 * scaleExp).Round(0).IntPart())
}

// Unscale converts a fixed-point integer back to a float.
func Unscale(v int64) float64 {
	f, _ := decimal.New(v, -scaleExp).Float64()
	return f
}

// I64, U64, U32 and U8 render Leo integer literals.
func I64(v int64) string  { return strconv.FormatInt(v, 10) + "i64" }
func U64(v uint64) string { return formatUint(v) + "u64" }
func U32(v uint32) string { return formatUint(uint64(v)) + "u32" }
func U8(v uint8) string   { return formatUint(uint64(v)) + "u8" }

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

// VolatilityParams are the encoded inputs of a volatility computation.
type VolatilityParams struct {
	ScaledReturns []string `json:"scaled_returns"`
	TradingDays   string   `json:"trading_days"`
	Annualize     string   `json:"annualize_flag"`
}

// EncodeVolatilityParams scales every return to an i64 literal.
func EncodeVolatilityParams(returns []float64, annualize bool) VolatilityParams {
	p := VolatilityParams{
		ScaledReturns: make([]string, len(returns)),
		TradingDays:   U32(1),
		Annualize:     strconv.FormatBool(annualize),
	}
	for i, r := range returns {
		p.ScaledReturns[i] = I64(ScaleValue(r))
	}
	if annualize {
		p.TradingDays = U32(TradingDays)
	}
	return p
}

// RiskParams are the encoded classification thresholds.
type RiskParams struct {
	Low    string `json:"low_threshold"`
	High   string `json:"high_threshold"`
	Custom string `json:"custom_threshold"`
}

// EncodeRiskParams encodes the 5/15 thresholds and an optional custom one.
// A nil or zero custom threshold encodes as 0u64.
func EncodeRiskParams(threshold *float64) RiskParams {
	return EncodeRiskParamsWith(5, 15, threshold)
}

// EncodeRiskParamsWith encodes arbitrary low/high thresholds.
func EncodeRiskParamsWith(low, high float64, threshold *float64) RiskParams {
	p := RiskParams{
		Low:    U64(uint64(ScaleValue(low))),
		High:   U64(uint64(ScaleValue(high))),
		Custom: U64(0),
	}
	if threshold != nil && *threshold > 0 {
		p.Custom = U64(uint64(ScaleValue(*threshold)))
	}
	return p
}

var (
	volatilityOut = regexp.MustCompile(`volatility:\s*(\d+)u64`)
	commitmentOut = regexp.MustCompile(`commitment:\s*(\d+)field`)
	scoreOut      = regexp.MustCompile(`score:\s*(\d+)u8`)
	levelOut      = regexp.MustCompile(`level:\s*(\d+)u8`)
)

// VolatilityOutput is the decoded result of compute_volatility.
type VolatilityOutput struct {
	Volatility float64
	Commitment string
}

// DecodeVolatilityOutput reads "{ volatility: <n>u64, commitment: <n>field }".
// Missing parts decode as zero values.
func DecodeVolatilityOutput(out string) VolatilityOutput {
	var v VolatilityOutput
	if m := volatilityOut.FindStringSubmatch(out); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			v.Volatility = Unscale(n)
		}
	}
	if m := commitmentOut.FindStringSubmatch(out); m != nil {
		v.Commitment = m[1] + "field"
	}
	return v
}

// RiskOutput is the decoded result of compute_risk_score.
type RiskOutput struct {
	Score      int
	Level      models.RiskLevel
	Commitment string
}

// DecodeRiskOutput reads "{ score: <n>u8, level: <n>u8, commitment: <n>field }".
// A missing level reads as LOW, an unknown one as MEDIUM.
func DecodeRiskOutput(out string) RiskOutput {
	r := RiskOutput{Level: models.RiskLow}
	if m := scoreOut.FindStringSubmatch(out); m != nil {
		r.Score, _ = strconv.Atoi(m[1])
	}
	if m := levelOut.FindStringSubmatch(out); m != nil {
		code, err := strconv.Atoi(m[1])
		if err != nil {
			code = -1
		}
		r.Level = models.RiskLevelFromCode(code)
	}
	if m := commitmentOut.FindStringSubmatch(out); m != nil {
		r.Commitment = m[1] + "field"
	}
	return r
}

// RiskScore is the 0..100 score compute_risk_score assigns to a level.
func RiskScore(level models.RiskLevel) int {
	switch level {
	case models.RiskLow:
		return 25
	case models.RiskHigh:
		return 85
	default:
		return 50
	}
}
