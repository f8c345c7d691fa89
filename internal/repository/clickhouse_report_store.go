package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"
	pkgch "AleoRisk/pkg/clickhouse"
	applogger "AleoRisk/pkg/logger"
)

var _ repository.Storage = (*ClickHouseReportStore)(nil)

const reportColumns = "report_id, analysis_id, owner, proof_id, volatility, mean_return, risk_level, data_points, threshold, vol_commitment, risk_commitment, buckets, created_at"

// ReportSchema returns the DDL for the reports table.
func ReportSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    report_id       String,
    analysis_id     String,
    owner           String,
    proof_id        String,
    volatility      Float64,
    mean_return     Float64,
    risk_level      LowCardinality(String),
    data_points     UInt32,
    threshold       Float64,
    vol_commitment  String,
    risk_commitment String,
    buckets         String,
    created_at      DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree(created_at)
ORDER BY (owner, created_at, analysis_id)`, table),
	}
}

// ClickHouseReportStore stores finished risk reports in ClickHouse.
type ClickHouseReportStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

// NewClickHouseReportStore creates the store over an open client.
func NewClickHouseReportStore(client *pkgch.Client, table string) *ClickHouseReportStore {
	return &ClickHouseReportStore{client: client, db: client.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseReportStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *ClickHouseReportStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ReportSchema(s.table))
}

func (s *ClickHouseReportStore) Store(ctx context.Context, r *models.RiskReport) error {
	return s.StoreBatch(ctx, []*models.RiskReport{r})
}

func (s *ClickHouseReportStore) StoreBatch(ctx context.Context, reports []*models.RiskReport) error {
	q, args, err := s.insertQuery(reports)
	if err != nil || q == "" {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse insert reports failed", applogger.String("table", s.table), applogger.Error(err))
		return fmt.Errorf("insert reports: %w", err)
	}
	return nil
}

// insertQuery builds one multi-row insert; rows without an analysis ID are skipped.
func (s *ClickHouseReportStore) insertQuery(reports []*models.RiskReport) (string, []interface{}, error) {
	values := make([]string, 0, len(reports))
	args := make([]interface{}, 0, len(reports)*13)
	for _, r := range reports {
		if r == nil || r.AnalysisID == "" {
			continue
		}
		buckets, err := json.Marshal(r.Buckets)
		if err != nil {
			return "", nil, fmt.Errorf("marshal buckets: %w", err)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.ReportID, r.AnalysisID, r.Owner, r.ProofID,
			r.Volatility, r.MeanReturn, string(r.RiskLevel), uint32(r.DataPoints), r.Threshold,
			r.VolCommitment, r.RiskCommitment, string(buckets), r.CreatedAt.UTC(),
		)
	}
	if len(values) == 0 {
		return "", nil, nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, reportColumns, strings.Join(values, ","))
	return q, args, nil
}

func (s *ClickHouseReportStore) Query(ctx context.Context, owner string, from, to time.Time, limit int) ([]*models.RiskReport, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE owner = ? AND created_at >= ? AND created_at <= ? ORDER BY created_at DESC LIMIT ?", reportColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, owner, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []*models.RiskReport
	for rows.Next() {
		var (
			r       models.RiskReport
			level   string
			points  uint32
			buckets string
		)
		if err := rows.Scan(&r.ReportID, &r.AnalysisID, &r.Owner, &r.ProofID,
			&r.Volatility, &r.MeanReturn, &level, &points, &r.Threshold,
			&r.VolCommitment, &r.RiskCommitment, &buckets, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.RiskLevel = models.RiskLevel(level)
		r.DataPoints = int(points)
		if buckets != "" {
			if err := json.Unmarshal([]byte(buckets), &r.Buckets); err != nil {
				s.l.Warn("bad buckets column", applogger.String("analysis_id", r.AnalysisID), applogger.Error(err))
			}
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseReportStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseReportStore) Close() error {
	return nil // pool owned by pkg/clickhouse.Client
}
