package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
	"AleoRisk/internal/services/aleo"
	"AleoRisk/internal/services/analyzer"
	applogger "AleoRisk/pkg/logger"
	"AleoRisk/pkg/queue"

	"github.com/google/uuid"
)

// ProveJobType is the queue message type that drives proving.
const ProveJobType = "analysis.prove"

// AnalyzeInput is one uploaded return series.
type AnalyzeInput struct {
	Owner       string
	Filename    string
	ContentType string
	Content     io.Reader
	Threshold   *float64
}

// ProvePayload is enqueued for the prove job.
type ProvePayload struct {
	AnalysisID string    `json:"analysis_id"`
	Owner      string    `json:"owner"`
	Returns    []float64 `json:"returns"`
	Weights    []float64 `json:"weights,omitempty"`
	Threshold  *float64  `json:"threshold,omitempty"`
}

// RiskAnalysisUseCase parses uploads, stores the derived result and
// schedules proving.
type RiskAnalysisUseCase struct {
	analyzer *analyzer.Analyzer
	results  domrepo.ResultStore
	queue    queue.Publisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
	newID    func() string
}

func NewRiskAnalysisUseCase(a *analyzer.Analyzer, results domrepo.ResultStore, q queue.Publisher, metrics domrepo.Metrics) *RiskAnalysisUseCase {
	return &RiskAnalysisUseCase{
		analyzer: a,
		results:  results,
		queue:    q,
		metrics:  metrics,
		l:        applogger.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetLogger injects a structured logger.
func (uc *RiskAnalysisUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// Preview analyzes without storing or proving.
func (uc *RiskAnalysisUseCase) Preview(ctx context.Context, in AnalyzeInput) (*models.AnalysisResult, error) {
	res, _, err := uc.analyze(ctx, in)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Submit analyzes the upload, stores the result as proving and enqueues the prove job.
func (uc *RiskAnalysisUseCase) Submit(ctx context.Context, in AnalyzeInput) (*models.AnalysisResult, error) {
	in.Owner = strings.TrimSpace(in.Owner)
	if !aleo.IsValidAddress(in.Owner) {
		return nil, fmt.Errorf("%w: owner must be an aleo1 address", ErrInvalidInput)
	}

	res, series, err := uc.analyze(ctx, in)
	if err != nil {
		return nil, err
	}
	res.ID = uc.newID()
	res.Owner = in.Owner
	res.Status = models.StatusProving

	if err := uc.results.Save(ctx, res); err != nil {
		uc.metrics.RecordError("save_result")
		return nil, fmt.Errorf("submit analysis: %w", err)
	}

	payload := ProvePayload{
		AnalysisID: res.ID,
		Owner:      res.Owner,
		Returns:    series.Returns,
		Weights:    series.Weights,
		Threshold:  in.Threshold,
	}
	if err := uc.queue.Enqueue(ctx, ProveJobType, payload); err != nil {
		uc.metrics.RecordError("enqueue")
		res.Status = models.StatusFailed
		res.Error = "could not schedule proving"
		_ = uc.results.Save(ctx, res)
		return nil, fmt.Errorf("enqueue proving: %w", err)
	}

	uc.l.Info("analysis submitted",
		applogger.String("analysis_id", res.ID),
		applogger.String("owner", aleo.FormatAddress(res.Owner)),
		applogger.Int("data_points", res.Statistics.Count),
		applogger.String("risk_level", string(res.Statistics.RiskLevel)),
	)
	return res, nil
}

// Get returns a stored result.
func (uc *RiskAnalysisUseCase) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return uc.results.Get(ctx, id)
}

func (uc *RiskAnalysisUseCase) analyze(_ context.Context, in AnalyzeInput) (*models.AnalysisResult, models.ParsedSeries, error) {
	if in.Content == nil {
		return nil, models.ParsedSeries{}, fmt.Errorf("%w: file required", ErrInvalidInput)
	}
	if in.Threshold != nil && *in.Threshold <= 0 {
		return nil, models.ParsedSeries{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidInput)
	}

	start := uc.now()
	a, err := uc.analyzer.AnalyzeUpload(in.Content, in.Filename, in.ContentType, in.Threshold)
	if err != nil {
		if analyzer.IsFormatError(err) {
			uc.metrics.RecordError("format")
		}
		return nil, models.ParsedSeries{}, err
	}
	uc.metrics.RecordLatency("analyze", uc.now().Sub(start).Seconds())
	uc.metrics.RecordAnalysis(a.Statistics.RiskLevel, a.Statistics.Volatility)

	return &models.AnalysisResult{
		Statistics:        a.Statistics,
		MonthlyVolatility: a.Buckets,
		Threshold:         in.Threshold,
		CreatedAt:         uc.now().UTC(),
	}, a.Series, nil
}
