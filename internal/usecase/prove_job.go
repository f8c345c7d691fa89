package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
	domsvc "AleoRisk/internal/domain/service"
	"AleoRisk/internal/services/aleo"
	"AleoRisk/internal/services/analyzer"
	applogger "AleoRisk/pkg/logger"
	"AleoRisk/pkg/queue"
)

var _ queue.Job = (*ProveJob)(nil)

// Proving steps and their progress percentages.
const (
	StepParse      = "Parsing portfolio data"
	StepCommitment = "Generating portfolio commitment"
	StepRegister   = "Registering portfolio on Aleo"
	StepVolMetrics = "Computing volatility metrics"
	StepVolProof   = "Executing volatility proof on Aleo"
	StepRisk       = "Computing risk classification"
	StepReceipt    = "Generating verifiable receipt"
	StepComplete   = "Analysis complete"
)

// ProveJob walks a stored analysis through the program functions, handing each
// transaction to the submitter and streaming progress.
type ProveJob struct {
	results    domrepo.ResultStore
	txlog      domrepo.TransactionLog
	submitter  domsvc.Submitter
	reports    *ReportProcessor
	progress   domrepo.ProgressSink
	metrics    domrepo.Metrics
	thresholds analyzer.Thresholds
	l          *applogger.Logger
	now        func() time.Time
	salt       func() (string, error)
}

func NewProveJob(
	results domrepo.ResultStore,
	txlog domrepo.TransactionLog,
	submitter domsvc.Submitter,
	reports *ReportProcessor,
	progress domrepo.ProgressSink,
	metrics domrepo.Metrics,
	thresholds analyzer.Thresholds,
) *ProveJob {
	return &ProveJob{
		results:    results,
		txlog:      txlog,
		submitter:  submitter,
		reports:    reports,
		progress:   progress,
		metrics:    metrics,
		thresholds: thresholds,
		l:          applogger.Nop(),
		now:        time.Now,
		salt:       aleo.NewSalt,
	}
}

// SetLogger injects a structured logger.
func (j *ProveJob) SetLogger(l *applogger.Logger) {
	if l != nil {
		j.l = l
	}
}

func (j *ProveJob) Name() string { return "prove_analysis" }
func (j *ProveJob) Type() string { return ProveJobType }

// Handle returns an error only when the job never started handing off
// transactions; later failures are recorded on the result instead so the
// queue does not replay submitted transactions.
func (j *ProveJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.Decode[ProvePayload](raw)
	if err != nil {
		return err
	}
	res, err := j.results.Get(ctx, p.AnalysisID)
	if err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			j.l.Warn("prove: analysis expired", applogger.String("analysis_id", p.AnalysisID))
			return nil
		}
		return fmt.Errorf("load analysis %s: %w", p.AnalysisID, err)
	}
	if res.Status != models.StatusProving {
		return nil
	}

	start := j.now()
	if err := j.prove(ctx, p, res); err != nil {
		j.metrics.RecordError("prove")
		j.l.Error("prove failed", applogger.String("analysis_id", p.AnalysisID), applogger.Error(err))
		res.Status = models.StatusFailed
		res.Error = err.Error()
		if serr := j.results.Save(ctx, res); serr != nil {
			j.l.Error("save failed result", applogger.String("analysis_id", res.ID), applogger.Error(serr))
		}
		j.publish(models.ProgressEvent{AnalysisID: res.ID, Step: StepComplete, Progress: 100, Done: true, Error: res.Error})
		return nil
	}
	j.metrics.RecordLatency("prove", j.now().Sub(start).Seconds())
	return nil
}

func (j *ProveJob) prove(ctx context.Context, p ProvePayload, res *models.AnalysisResult) error {
	owner := p.Owner
	j.step(res.ID, StepParse, 10)
	if len(p.Returns) == 0 {
		return fmt.Errorf("no returns to prove")
	}

	j.step(res.ID, StepCommitment, 20)
	salt, err := j.salt()
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}
	commitment := aleo.PortfolioCommitment(p.Returns, p.Weights, salt)

	if _, err := j.submit(ctx, res, StepRegister, 30, aleo.RegisterPortfolio(owner, commitment, len(p.Returns))); err != nil {
		return err
	}

	j.step(res.ID, StepVolMetrics, 50)
	stats := j.thresholds.Compute(p.Returns, p.Threshold)
	record := aleo.PortfolioRecord(owner, commitment, len(p.Returns))

	if _, err := j.submit(ctx, res, StepVolProof, 60, aleo.ComputeVolatility(owner, record, p.Returns)); err != nil {
		return err
	}
	volCommitment := aleo.VolatilityCommitment(uint64(aleo.ScaleValue(stats.Volatility)), commitment)

	riskTx := aleo.ComputeRiskScore(owner, stats.Volatility, volCommitment, j.thresholds.Low, j.thresholds.High, p.Threshold)
	if _, err := j.submit(ctx, res, StepRisk, 75, riskTx); err != nil {
		return err
	}
	riskCommitment := aleo.RiskCommitment(stats.RiskLevel.Code(), volCommitment)

	receipt, err := j.submit(ctx, res, StepReceipt, 90, aleo.ExportReceipt(owner, volCommitment, riskCommitment, stats.RiskLevel))
	if err != nil {
		return err
	}

	completed := j.now().UTC()
	res.Statistics = stats
	res.ProofID = receipt.TxID
	res.Verified = true
	res.VolCommitment = volCommitment
	res.RiskCommitment = riskCommitment
	res.Status = models.StatusComplete
	res.CompletedAt = &completed
	if err := j.results.Save(ctx, res); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	if j.reports != nil {
		if err := j.reports.Process(ctx, ReportFromResult(res)); err != nil {
			j.l.Error("route report", applogger.String("analysis_id", res.ID), applogger.Error(err))
		}
	}

	j.publish(models.ProgressEvent{AnalysisID: res.ID, Step: StepComplete, Progress: 100, Done: true})
	j.l.Info("analysis proven",
		applogger.String("analysis_id", res.ID),
		applogger.String("proof_id", res.ProofID),
		applogger.String("risk_level", string(stats.RiskLevel)),
	)
	return nil
}

func (j *ProveJob) submit(ctx context.Context, res *models.AnalysisResult, step string, progress int, tx models.Transaction) (models.TransactionStatus, error) {
	j.step(res.ID, step, progress)

	st, err := j.submitter.Submit(ctx, tx)
	if err != nil {
		j.metrics.RecordTransaction(tx.Function(), models.TxFailed)
		return st, fmt.Errorf("%s: %w", tx.Function(), err)
	}
	if st.Function == "" {
		st.Function = tx.Function()
	}
	j.metrics.RecordTransaction(st.Function, st.Status)

	if err := j.txlog.Append(ctx, res.Owner, st); err != nil {
		j.l.Warn("append transaction log", applogger.String("tx_id", st.TxID), applogger.Error(err))
	}
	res.Transactions = append(res.Transactions, st)
	j.publish(models.ProgressEvent{AnalysisID: res.ID, Step: step, Progress: progress, Transaction: &st})
	return st, nil
}

func (j *ProveJob) step(id, step string, progress int) {
	j.publish(models.ProgressEvent{AnalysisID: id, Step: step, Progress: progress})
}

func (j *ProveJob) publish(ev models.ProgressEvent) {
	if j.progress != nil {
		j.progress.Publish(ev)
	}
}

// ReportFromResult flattens a completed analysis into a stored report.
func ReportFromResult(res *models.AnalysisResult) *models.RiskReport {
	created := res.CreatedAt
	if res.CompletedAt != nil {
		created = *res.CompletedAt
	}
	var threshold float64
	if res.Threshold != nil {
		threshold = *res.Threshold
	}
	return &models.RiskReport{
		ReportID:       aleo.ReportID(res.Owner, created.UnixMilli(), res.VolCommitment),
		AnalysisID:     res.ID,
		Owner:          res.Owner,
		ProofID:        res.ProofID,
		Volatility:     res.Statistics.Volatility,
		MeanReturn:     res.Statistics.Mean,
		RiskLevel:      res.Statistics.RiskLevel,
		DataPoints:     res.Statistics.Count,
		Threshold:      threshold,
		VolCommitment:  res.VolCommitment,
		RiskCommitment: res.RiskCommitment,
		Buckets:        res.MonthlyVolatility,
		CreatedAt:      created,
	}
}
