package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
)

const owner = "aleo1qnr4dkkvkgfqph0vzc3y6z2eu975wnpz2925ntjccd5cfqxtyu8sta57j8"

type memResults struct {
	mu      sync.Mutex
	byID    map[string]models.AnalysisResult
	byProof map[string]string
	saveErr error
}

func newMemResults() *memResults {
	return &memResults{byID: map[string]models.AnalysisResult{}, byProof: map[string]string{}}
}

func (m *memResults) Save(_ context.Context, r *models.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *r
	cp.Transactions = append([]models.TransactionStatus(nil), r.Transactions...)
	m.byID[r.ID] = cp
	if r.ProofID != "" {
		m.byProof[r.ProofID] = r.ID
	}
	return nil
}

func (m *memResults) Get(_ context.Context, id string) (*models.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &r, nil
}

func (m *memResults) FindByProof(ctx context.Context, proofID string) (*models.AnalysisResult, error) {
	m.mu.Lock()
	id, ok := m.byProof[proofID]
	m.mu.Unlock()
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return m.Get(ctx, id)
}

type memLog struct {
	mu  sync.Mutex
	txs map[string][]models.TransactionStatus
}

func newMemLog() *memLog { return &memLog{txs: map[string][]models.TransactionStatus{}} }

func (l *memLog) Append(_ context.Context, owner string, tx models.TransactionStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[owner] = append([]models.TransactionStatus{tx}, l.txs[owner]...)
	return nil
}

func (l *memLog) List(_ context.Context, owner string, limit int) ([]models.TransactionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	txs := l.txs[owner]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// seqSubmitter returns at1 IDs built from a counter and fails on a named function.
type seqSubmitter struct {
	mu     sync.Mutex
	n      int
	failOn string
	sent   []models.Transaction
}

func (s *seqSubmitter) Submit(_ context.Context, tx models.Transaction) (models.TransactionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.Function() == s.failOn {
		return models.TransactionStatus{}, fmt.Errorf("bridge unavailable")
	}
	s.n++
	s.sent = append(s.sent, tx)
	id := fmt.Sprintf("at1%058d", s.n)
	return models.TransactionStatus{TxID: id, Function: tx.Function(), Status: models.TxPending, ExplorerURL: "x/" + id}, nil
}

type capturedQueue struct {
	msgType string
	payload []byte
	err     error
}

func (q *capturedQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.msgType, q.payload = msgType, b
	return nil
}

type nopMetrics struct {
	mu     sync.Mutex
	errors []string
	stored int
	txs    map[string]models.TxState
}

func (m *nopMetrics) RecordAnalysis(models.RiskLevel, float64) {}
func (m *nopMetrics) RecordTransaction(fn string, st models.TxState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txs == nil {
		m.txs = map[string]models.TxState{}
	}
	m.txs[fn] = st
}
func (m *nopMetrics) RecordReportStored(string) { m.mu.Lock(); m.stored++; m.mu.Unlock() }
func (m *nopMetrics) RecordError(kind string)   { m.mu.Lock(); m.errors = append(m.errors, kind); m.mu.Unlock() }
func (m *nopMetrics) RecordLatency(string, float64) {}

type sinkEvents struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (s *sinkEvents) Publish(ev models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

type memStorage struct {
	mu      sync.Mutex
	reports []*models.RiskReport
	err     error
	query   struct {
		owner    string
		from, to time.Time
		limit    int
	}
}

func (s *memStorage) Init(context.Context) error { return nil }
func (s *memStorage) Store(ctx context.Context, r *models.RiskReport) error {
	return s.StoreBatch(ctx, []*models.RiskReport{r})
}
func (s *memStorage) StoreBatch(_ context.Context, rs []*models.RiskReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, rs...)
	return nil
}
func (s *memStorage) Query(_ context.Context, owner string, from, to time.Time, limit int) ([]*models.RiskReport, error) {
	s.query.owner, s.query.from, s.query.to, s.query.limit = owner, from, to, limit
	return s.reports, s.err
}
func (s *memStorage) Health(context.Context) error { return nil }
func (s *memStorage) Close() error                 { return nil }

type memPublisher struct {
	reports []*models.RiskReport
}

func (p *memPublisher) Publish(ctx context.Context, r *models.RiskReport) error {
	return p.PublishBatch(ctx, []*models.RiskReport{r})
}
func (p *memPublisher) PublishBatch(_ context.Context, rs []*models.RiskReport) error {
	p.reports = append(p.reports, rs...)
	return nil
}
func (p *memPublisher) Close() error { return nil }

const sixReturns = "date,return_pct\n2024-01-01,1\n2024-01-02,-1\n2024-01-03,1\n2024-01-04,-1\n2024-01-05,1\n2024-01-06,-1"

func csv() *strings.Reader { return strings.NewReader(sixReturns) }
