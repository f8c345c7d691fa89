package repository

import (
	"context"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"
	pkgkafka "AleoRisk/pkg/kafka"
)

var _ repository.Publisher = (*KafkaReportPublisher)(nil)

// ReportMessage is the wire form of a report on the reports topic.
type ReportMessage struct {
	ReportID       string                    `json:"report_id"`
	AnalysisID     string                    `json:"analysis_id"`
	Owner          string                    `json:"owner"`
	ProofID        string                    `json:"proof_id"`
	Volatility     float64                   `json:"volatility"`
	MeanReturn     float64                   `json:"mean_return"`
	RiskLevel      models.RiskLevel          `json:"risk_level"`
	DataPoints     int                       `json:"data_points"`
	Threshold      float64                   `json:"threshold"`
	VolCommitment  string                    `json:"vol_commitment"`
	RiskCommitment string                    `json:"risk_commitment"`
	Buckets        []models.VolatilityBucket `json:"buckets"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// ToReportMessage converts a report to its wire form.
func ToReportMessage(r *models.RiskReport) ReportMessage {
	return ReportMessage{
		ReportID:       r.ReportID,
		AnalysisID:     r.AnalysisID,
		Owner:          r.Owner,
		ProofID:        r.ProofID,
		Volatility:     r.Volatility,
		MeanReturn:     r.MeanReturn,
		RiskLevel:      r.RiskLevel,
		DataPoints:     r.DataPoints,
		Threshold:      r.Threshold,
		VolCommitment:  r.VolCommitment,
		RiskCommitment: r.RiskCommitment,
		Buckets:        r.Buckets,
		CreatedAt:      r.CreatedAt,
	}
}

// Report converts the wire form back to a report.
func (m ReportMessage) Report() *models.RiskReport {
	return &models.RiskReport{
		ReportID:       m.ReportID,
		AnalysisID:     m.AnalysisID,
		Owner:          m.Owner,
		ProofID:        m.ProofID,
		Volatility:     m.Volatility,
		MeanReturn:     m.MeanReturn,
		RiskLevel:      m.RiskLevel,
		DataPoints:     m.DataPoints,
		Threshold:      m.Threshold,
		VolCommitment:  m.VolCommitment,
		RiskCommitment: m.RiskCommitment,
		Buckets:        m.Buckets,
		CreatedAt:      m.CreatedAt,
	}
}

// BatchPublisher is the producer surface the report publisher needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaReportPublisher publishes reports keyed by owner address.
type KafkaReportPublisher struct {
	producer BatchPublisher
	topic    string
}

// NewKafkaReportPublisher creates Kafka publisher.
func NewKafkaReportPublisher(producer BatchPublisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.RiskReport) error {
	return p.PublishBatch(ctx, []*models.RiskReport{r})
}

func (p *KafkaReportPublisher) PublishBatch(ctx context.Context, reports []*models.RiskReport) error {
	msgs := make([]pkgkafka.Message, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(r.Owner),
			Value:   ToReportMessage(r),
			Headers: map[string]string{"risk_level": string(r.RiskLevel)},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close leaves the shared producer open; the app closes it on shutdown.
func (p *KafkaReportPublisher) Close() error {
	return nil
}
