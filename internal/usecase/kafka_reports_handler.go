package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domrepo "AleoRisk/internal/domain/repository"
	"AleoRisk/internal/repository"
	pkgkafka "AleoRisk/pkg/kafka"
)

var _ pkgkafka.MessageHandler = (*KafkaReportsHandler)(nil)

// KafkaReportsHandler consumes the reports topic and writes to storage.
type KafkaReportsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaReportsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaReportsHandler {
	return &KafkaReportsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaReportsHandler) Topic() string { return h.topic }

func (h *KafkaReportsHandler) Handle(ctx context.Context, b []byte) error {
	var m repository.ReportMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode report: %w", err)
	}
	if m.AnalysisID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("report without analysis id")
	}
	if !m.CreatedAt.IsZero() {
		h.metrics.RecordLatency("report_e2e", time.Since(m.CreatedAt).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, m.Report())
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordReportStored(BackendClickHouse)
	return nil
}
