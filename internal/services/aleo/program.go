// Package aleo builds the plain transaction objects and parameter encodings
// for the risk_proof_v1.aleo program. Nothing here talks to a network.
package aleo

const (
	ProgramID       = "risk_proof_v1.aleo"
	ChainID         = "testnetbeta"
	ExplorerBaseURL = "https://explorer.aleo.org/transaction"
)

// Program functions.
const (
	FnRegisterPortfolio = "register_portfolio"
	FnComputeVolatility = "compute_volatility"
	FnComputeRiskScore  = "compute_risk_score"
	FnVerifyRiskReport  = "verify_risk_report"
	FnExportReceipt     = "export_risk_receipt"
)

// Fees in microcredits.
const (
	FeeRegister   int64 = 100_000
	FeeVolatility int64 = 150_000
	FeeRisk       int64 = 100_000
	FeeVerify     int64 = 50_000
	FeeReceipt    int64 = 75_000
)

// Functions lists the program functions in proving order.
var Functions = []string{
	FnRegisterPortfolio,
	FnComputeVolatility,
	FnComputeRiskScore,
	FnVerifyRiskReport,
	FnExportReceipt,
}

// ProgramSource is the Leo source the builders target.
const ProgramSource = `program risk_proof_v1.aleo {
    record PortfolioRecord {
        owner: address,
        commitment: field,
        data_points: u32,
    }

    record RiskReceipt {
        owner: address,
        vol_commitment: field,
        risk_commitment: field,
        risk_level: u8,
    }

    mapping verified: field => u32;

    transition register_portfolio(private commitment: field, private data_points: u32) -> PortfolioRecord {
        return PortfolioRecord { owner: self.caller, commitment: commitment, data_points: data_points };
    }

    transition compute_volatility(
        private portfolio: PortfolioRecord,
        private mean_scaled: i64,
        private variance_scaled: u64,
        private trading_days: u32
    ) -> (u64, field) {
        assert_eq(portfolio.owner, self.caller);
        let vol: u64 = isqrt(variance_scaled * trading_days as u64);
        return (vol, BHP256::hash_to_field(vol));
    }

    transition compute_risk_score(
        private volatility: u64,
        private vol_commitment: field,
        private low_threshold: u64,
        private high_threshold: u64
    ) -> (u8, u8, field) {
        let level: u8 = volatility < low_threshold ? 0u8 : volatility < high_threshold ? 1u8 : 2u8;
        let score: u8 = level == 0u8 ? 25u8 : level == 1u8 ? 50u8 : 85u8;
        return (score, level, BHP256::hash_to_field(level as field + vol_commitment));
    }

    async transition verify_risk_report(public risk_commitment: field) -> Future {
        return finalize_verify(risk_commitment);
    }

    async function finalize_verify(risk_commitment: field) {
        Mapping::set(verified, risk_commitment, block.height);
    }

    transition export_risk_receipt(
        private vol_commitment: field,
        private risk_commitment: field,
        private risk_level: u8
    ) -> RiskReceipt {
        return RiskReceipt {
            owner: self.caller,
            vol_commitment: vol_commitment,
            risk_commitment: risk_commitment,
            risk_level: risk_level,
        };
    }

    function isqrt(n: u64) -> u64 {
        if n == 0u64 {
            return 0u64;
        }
        let x: u64 = n;
        let y: u64 = (x + 1u64) / 2u64;
        for i: u8 in 0u8..16u8 {
            if y < x {
                x = y;
                y = (x + n / x) / 2u64;
            }
        }
        return x;
    }
}
`
