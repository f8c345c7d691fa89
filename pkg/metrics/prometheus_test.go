package metrics

import (
	"testing"

	"AleoRisk/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordAnalysis(models.RiskHigh, 17.39)
	r.RecordAnalysis(models.RiskHigh, 20.1)
	r.RecordTransaction("register_portfolio", models.TxPending)
	r.RecordReportStored("clickhouse")
	r.RecordError("parse")
	r.RecordLatency("analyze", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("HIGH")))
	assert.Equal(t, 20.1, testutil.ToFloat64(r.lastVolatility))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transactions.WithLabelValues("register_portfolio", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reportsStored.WithLabelValues("clickhouse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("parse")))
}
