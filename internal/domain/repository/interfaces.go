package repository

import (
	"context"
	"errors"
	"time"

	"AleoRisk/internal/domain/models"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ResultStore keeps analysis results for later lookup and verification.
type ResultStore interface {
	Save(ctx context.Context, r *models.AnalysisResult) error
	Get(ctx context.Context, id string) (*models.AnalysisResult, error)
	// FindByProof returns the result whose ProofID equals proofID.
	FindByProof(ctx context.Context, proofID string) (*models.AnalysisResult, error)
}

// TransactionLog is an append-only, newest-first history per owner.
type TransactionLog interface {
	Append(ctx context.Context, owner string, tx models.TransactionStatus) error
	List(ctx context.Context, owner string, limit int) ([]models.TransactionStatus, error)
}

// Publisher hands finished reports to a message bus.
type Publisher interface {
	Publish(ctx context.Context, r *models.RiskReport) error
	PublishBatch(ctx context.Context, reports []*models.RiskReport) error
	Close() error
}

// Storage persists finished reports.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.RiskReport) error
	StoreBatch(ctx context.Context, reports []*models.RiskReport) error
	Query(ctx context.Context, owner string, from, to time.Time, limit int) ([]*models.RiskReport, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ProgressSink receives proving progress for streaming to clients.
type ProgressSink interface {
	Publish(ev models.ProgressEvent)
}

type Metrics interface {
	RecordAnalysis(level models.RiskLevel, volatility float64)
	RecordTransaction(function string, status models.TxState)
	RecordReportStored(backend string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
