package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"
	"AleoRisk/pkg/cache"
	pkgch "AleoRisk/pkg/clickhouse"
	pkgkafka "AleoRisk/pkg/kafka"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "aleo1qnr4dkkvkgfqph0vzc3y6z2eu975wnpz2925ntjccd5cfqxtyu8sta57j8"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisTransactionLogNewestFirstAndCapped(t *testing.T) {
	mr, rdb := newRedis(t)
	log := NewRedisTransactionLog(rdb, "aleorisk", 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, owner, models.TransactionStatus{
			TxID:   fmt.Sprintf("tx-%d", i),
			Status: models.TxPending,
		}))
	}

	got, err := log.List(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "tx-4", got[0].TxID)
	assert.Equal(t, "tx-2", got[2].TxID)

	top, err := log.List(ctx, owner, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "tx-4", top[0].TxID)

	items, err := mr.List("aleorisk:txlog:" + owner)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	empty, err := log.List(ctx, "aleo1other", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisTransactionLogDefaultLimit(t *testing.T) {
	_, rdb := newRedis(t)
	log := NewRedisTransactionLog(rdb, "", 0)
	assert.Equal(t, DefaultHistoryLimit, log.limit)
	assert.Equal(t, "txlog:x", log.key("x"))
}

func sampleResult(id, proof string) *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:    id,
		Owner: owner,
		Statistics: models.SummaryStatistics{
			Mean: 0.1, Volatility: 17.39, RiskLevel: models.RiskHigh, Count: 6,
		},
		MonthlyVolatility: []models.VolatilityBucket{{Label: "Current", Volatility: 17.39}},
		Status:            models.StatusComplete,
		ProofID:           proof,
		Verified:          proof != "",
		CreatedAt:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCacheResultStore(t *testing.T) {
	stores := map[string]cache.Service{
		"memory": cache.NewMemoryCache(),
	}
	_, rdb := newRedis(t)
	stores["redis"] = cache.NewRedisCacheFromClient(rdb, "aleorisk")

	for name, svc := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewCacheResultStore(svc, time.Hour)

			require.NoError(t, s.Save(ctx, sampleResult("a1", "")))
			got, err := s.Get(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, models.RiskHigh, got.Statistics.RiskLevel)

			_, err = s.FindByProof(ctx, "at1missing")
			assert.ErrorIs(t, err, repository.ErrNotFound)

			require.NoError(t, s.Save(ctx, sampleResult("a1", "at1proof")))
			byProof, err := s.FindByProof(ctx, "at1proof")
			require.NoError(t, err)
			assert.Equal(t, "a1", byProof.ID)
			assert.True(t, byProof.Verified)

			_, err = s.Get(ctx, "nope")
			assert.ErrorIs(t, err, repository.ErrNotFound)

			assert.Error(t, s.Save(ctx, &models.AnalysisResult{}))
		})
	}
}

type fakeBatchProducer struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (f *fakeBatchProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	f.topic = topic
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeBatchProducer) Close() error { return nil }

func sampleReport(id string) *models.RiskReport {
	return &models.RiskReport{
		ReportID:   "123...",
		AnalysisID: id,
		Owner:      owner,
		ProofID:    "at1proof",
		Volatility: 12.5,
		RiskLevel:  models.RiskMedium,
		DataPoints: 30,
		Buckets:    []models.VolatilityBucket{{Label: "Jan", Volatility: 11.2}},
		CreatedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaReportPublisher(t *testing.T) {
	prod := &fakeBatchProducer{}
	p := NewKafkaReportPublisher(prod, "aleorisk.reports")

	require.NoError(t, p.PublishBatch(context.Background(), []*models.RiskReport{sampleReport("a1"), nil, sampleReport("a2")}))
	assert.Equal(t, "aleorisk.reports", prod.topic)
	require.Len(t, prod.msgs, 2)
	assert.Equal(t, []byte(owner), prod.msgs[0].Key)
	assert.Equal(t, "MEDIUM", prod.msgs[0].Headers["risk_level"])

	msg, ok := prod.msgs[1].Value.(ReportMessage)
	require.True(t, ok)
	assert.Equal(t, sampleReport("a2"), msg.Report())

	prod.err = errors.New("down")
	assert.Error(t, p.Publish(context.Background(), sampleReport("a3")))
	assert.NoError(t, p.Close())
}

func TestClickHouseInsertQuery(t *testing.T) {
	s := NewClickHouseReportStore(pkgch.NewClientFromDB(nil), "risk_reports")

	q, args, err := s.insertQuery([]*models.RiskReport{sampleReport("a1"), {AnalysisID: ""}, sampleReport("a2")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q, "INSERT INTO risk_reports (report_id,"))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 26)
	assert.Equal(t, "MEDIUM", args[6])
	assert.Equal(t, uint32(30), args[7])
	assert.Equal(t, `[{"date":"Jan","volatility":11.2}]`, args[11])

	q, args, err = s.insertQuery(nil)
	require.NoError(t, err)
	assert.Empty(t, q)
	assert.Nil(t, args)
	assert.NoError(t, s.StoreBatch(context.Background(), nil))
}

func TestReportSchema(t *testing.T) {
	stmts := ReportSchema("risk_reports")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS risk_reports")
	assert.Contains(t, stmts[0], "ReplacingMergeTree")
}
