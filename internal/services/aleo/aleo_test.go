package aleo

import (
	"strings"
	"testing"

	"AleoRisk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "aleo1qnr4dkkvkgfqph0vzc3y6z2eu975wnpz2925ntjccd5cfqxtyu8sta57j8"

func TestHashToField(t *testing.T) {
	assert.Equal(t, "0field", HashToField(""))
	assert.Equal(t, "96354field", HashToField("abc"))
	assert.Equal(t, HashToField("portfolio"), HashToField("portfolio"))
	assert.NotEqual(t, HashToField("a"), HashToField("b"))
	assert.True(t, IsField(HashToField(strings.Repeat("x", 500))))
}

func TestPortfolioCommitment(t *testing.T) {
	got := PortfolioCommitment([]float64{1, -2}, nil, "s")
	assert.Equal(t, "4589448329200908015609876433859434335518716720208679135149825607659347676262field", got)
	assert.NotEqual(t, got, PortfolioCommitment([]float64{1, -2}, nil, "t"))
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestReportID(t *testing.T) {
	id := ReportID(testAddr, 1700000000000, "12field")
	assert.True(t, strings.HasSuffix(id, "..."))
	assert.Len(t, id, 23)
	assert.Equal(t, id, ReportID(testAddr, 1700000000000, "12field"))
}

func TestEncodeVolatilityParams(t *testing.T) {
	p := EncodeVolatilityParams([]float64{1.5, -0.0000025, 0}, true)
	assert.Equal(t, []string{"1500000i64", "-3i64", "0i64"}, p.ScaledReturns)
	assert.Equal(t, "252u32", p.TradingDays)
	assert.Equal(t, "true", p.Annualize)

	p = EncodeVolatilityParams(nil, false)
	assert.Equal(t, "1u32", p.TradingDays)
	assert.Equal(t, "false", p.Annualize)
	assert.Empty(t, p.ScaledReturns)
}

func TestEncodeRiskParams(t *testing.T) {
	p := EncodeRiskParams(nil)
	assert.Equal(t, RiskParams{Low: "5000000u64", High: "15000000u64", Custom: "0u64"}, p)

	th := 12.5
	assert.Equal(t, "12500000u64", EncodeRiskParams(&th).Custom)

	zero := 0.0
	assert.Equal(t, "0u64", EncodeRiskParams(&zero).Custom)
}

func TestDecodeVolatilityOutput(t *testing.T) {
	v := DecodeVolatilityOutput("{ volatility: 17390000u64, commitment: 123field }")
	assert.Equal(t, 17.39, v.Volatility)
	assert.Equal(t, "123field", v.Commitment)

	assert.Equal(t, VolatilityOutput{}, DecodeVolatilityOutput("garbage"))
}

func TestDecodeRiskOutput(t *testing.T) {
	r := DecodeRiskOutput("{ score: 85u8, level: 2u8, commitment: 9field }")
	assert.Equal(t, RiskOutput{Score: 85, Level: models.RiskHigh, Commitment: "9field"}, r)

	assert.Equal(t, models.RiskMedium, DecodeRiskOutput("level: 7u8").Level)
	assert.Equal(t, models.RiskLow, DecodeRiskOutput("").Level)
}

func TestBuilders(t *testing.T) {
	returns := []float64{1, -1, 1, -1, 1, -1}
	commitment := PortfolioCommitment(returns, nil, "salt")

	reg := RegisterPortfolio(testAddr, commitment, len(returns))
	assert.Equal(t, FnRegisterPortfolio, reg.Function())
	assert.Equal(t, []string{commitment, "6u32"}, reg.Transitions[0].Inputs)
	assert.Equal(t, FeeRegister, reg.Fee)
	assert.Equal(t, ChainID, reg.ChainID)
	assert.Equal(t, ProgramID, reg.Transitions[0].Program)
	assert.False(t, reg.FeePrivate)

	record := PortfolioRecord(testAddr, commitment, len(returns))
	vol := ComputeVolatility(testAddr, record, returns)
	assert.Equal(t, []string{record, "0i64", "1200000000000u64", "252u32"}, vol.Transitions[0].Inputs)
	assert.Equal(t, FeeVolatility, vol.Fee)

	risk := ComputeRiskScore(testAddr, 17.39, "1field", 5, 15, nil)
	assert.Equal(t, []string{"17390000u64", "1field", "5000000u64", "15000000u64"}, risk.Transitions[0].Inputs)
	assert.Equal(t, FeeRisk, risk.Fee)

	th := 20.0
	custom := ComputeRiskScore(testAddr, 17.39, "1field", 5, 15, &th)
	assert.Equal(t, []string{"17390000u64", "1field", "20000000u64", "20000000u64"}, custom.Transitions[0].Inputs)

	ver := VerifyRiskReport(testAddr, "2field")
	assert.Equal(t, []string{"2field"}, ver.Transitions[0].Inputs)
	assert.Equal(t, FeeVerify, ver.Fee)

	rec := ExportReceipt(testAddr, "1field", "2field", models.RiskHigh)
	assert.Equal(t, []string{"1field", "2field", "2u8"}, rec.Transitions[0].Inputs)
	assert.Equal(t, FeeReceipt, rec.Fee)
	assert.Equal(t, FnExportReceipt, rec.Function())
}

func TestValidation(t *testing.T) {
	assert.True(t, IsValidAddress(testAddr))
	assert.False(t, IsValidAddress("aleo1short"))
	assert.False(t, IsValidAddress(strings.ToUpper(testAddr)))

	tx := "at1" + strings.Repeat("a", 58)
	assert.True(t, IsValidTransactionID(tx))
	assert.False(t, IsValidTransactionID("at1"+strings.Repeat("a", 57)))

	assert.Equal(t, "https://explorer.aleo.org/transaction/"+tx, ExplorerURL(tx))
	assert.Equal(t, "aleo1qnr4d...ta57j8", FormatAddress(testAddr))
	assert.Equal(t, "aleo1", FormatAddress("aleo1"))
	assert.Equal(t, "Aleo Testnet Beta", NetworkName(ChainID))
	assert.Equal(t, "Aleo Mainnet", NetworkName("mainnet"))
}

func TestProgramSourceDeclaresFunctions(t *testing.T) {
	assert.Contains(t, ProgramSource, "program "+ProgramID)
	for _, fn := range Functions {
		assert.Contains(t, ProgramSource, "transition "+fn)
	}
}
