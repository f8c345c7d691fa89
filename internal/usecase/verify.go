package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
	domsvc "AleoRisk/internal/domain/service"
	"AleoRisk/internal/services/aleo"
	applogger "AleoRisk/pkg/logger"
)

// Verification outcomes.
const (
	VerificationVerified = "verified"
	VerificationInvalid  = "invalid"
)

// VerifyUseCase checks proof IDs against stored results.
type VerifyUseCase struct {
	results   domrepo.ResultStore
	txlog     domrepo.TransactionLog
	submitter domsvc.Submitter
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

// NewVerifyUseCase creates the verifier. submitter may be nil, in which case
// no verify_risk_report transaction is handed off.
func NewVerifyUseCase(results domrepo.ResultStore, txlog domrepo.TransactionLog, submitter domsvc.Submitter, metrics domrepo.Metrics) *VerifyUseCase {
	return &VerifyUseCase{results: results, txlog: txlog, submitter: submitter, metrics: metrics, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (uc *VerifyUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// Verify reports whether proofID belongs to a completed analysis.
func (uc *VerifyUseCase) Verify(ctx context.Context, proofID string) (*models.VerificationResult, error) {
	proofID = strings.TrimSpace(proofID)
	if proofID == "" {
		return nil, fmt.Errorf("%w: proof_id required", ErrInvalidInput)
	}
	out := &models.VerificationResult{ProofID: proofID, Status: VerificationInvalid}
	if !aleo.IsValidTransactionID(proofID) {
		out.Reason = "malformed proof id"
		return out, nil
	}

	res, err := uc.results.FindByProof(ctx, proofID)
	if errors.Is(err, domrepo.ErrNotFound) {
		out.Reason = "unknown proof id"
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if res.Status != models.StatusComplete || !res.Verified {
		out.Reason = "analysis not complete"
		return out, nil
	}

	out.Status = VerificationVerified
	out.AnalysisID = res.ID
	out.RiskLevel = res.Statistics.RiskLevel
	uc.announce(ctx, res)
	return out, nil
}

// announce hands off verify_risk_report for a verified result. Failures are logged only.
func (uc *VerifyUseCase) announce(ctx context.Context, res *models.AnalysisResult) {
	if uc.submitter == nil || res.RiskCommitment == "" {
		return
	}
	tx := aleo.VerifyRiskReport(res.Owner, res.RiskCommitment)
	st, err := uc.submitter.Submit(ctx, tx)
	if err != nil {
		uc.metrics.RecordTransaction(tx.Function(), models.TxFailed)
		uc.l.Warn("verify_risk_report hand-off failed", applogger.String("analysis_id", res.ID), applogger.Error(err))
		return
	}
	uc.metrics.RecordTransaction(tx.Function(), st.Status)
	if err := uc.txlog.Append(ctx, res.Owner, st); err != nil {
		uc.l.Warn("append transaction log", applogger.String("tx_id", st.TxID), applogger.Error(err))
	}
}
