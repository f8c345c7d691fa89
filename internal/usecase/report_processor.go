package usecase

import (
	"context"
	"fmt"
	"time"

	"AleoRisk/internal/domain/models"
	drepo "AleoRisk/internal/domain/repository"
)

// Backends a finished report can be routed to.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// ReportProcessor routes finished reports to the configured backend.
type ReportProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewReportProcessor creates a new ReportProcessor instance.
func NewReportProcessor(pub drepo.Publisher, store drepo.Storage, metrics drepo.Metrics, backend string) *ReportProcessor {
	return &ReportProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Backend returns the configured backend name.
func (p *ReportProcessor) Backend() string { return p.backend }

// Process routes a single report.
func (p *ReportProcessor) Process(ctx context.Context, r *models.RiskReport) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	return p.ProcessBatch(ctx, []*models.RiskReport{r})
}

// ProcessBatch routes reports in one write.
func (p *ReportProcessor) ProcessBatch(ctx context.Context, reports []*models.RiskReport) error {
	if len(reports) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			err = fmt.Errorf("kafka publisher not configured")
		} else {
			err = p.pub.PublishBatch(ctx, reports)
		}
	case BackendClickHouse:
		if p.store == nil {
			err = fmt.Errorf("clickhouse storage not configured")
		} else {
			err = p.store.StoreBatch(ctx, reports)
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_report")
		return fmt.Errorf("process reports: %w", err)
	}

	for range reports {
		p.metrics.RecordReportStored(p.backend)
	}
	p.metrics.RecordLatency("process_report", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *ReportProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
