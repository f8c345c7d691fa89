package usecase

import (
	"context"
	"fmt"
	"time"

	"AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
	"AleoRisk/internal/services/aleo"
)

// ReportsUseCase reads report history and transaction logs.
type ReportsUseCase struct {
	store domrepo.Storage
	txlog domrepo.TransactionLog
	now   func() time.Time
}

func NewReportsUseCase(store domrepo.Storage, txlog domrepo.TransactionLog) *ReportsUseCase {
	return &ReportsUseCase{store: store, txlog: txlog, now: time.Now}
}

type ListReportsParams struct {
	Owner string
	From  time.Time
	To    time.Time
	Limit int
}

type ListReportsResult struct {
	Owner   string               `json:"owner"`
	From    time.Time            `json:"from"`
	To      time.Time            `json:"to"`
	Count   int                  `json:"count"`
	Reports []*models.RiskReport `json:"reports"`
}

// List returns an owner's reports, newest first. The window defaults to the
// last 30 days and the limit is clamped to [1, 1000].
func (uc *ReportsUseCase) List(ctx context.Context, p ListReportsParams) (*ListReportsResult, error) {
	if !aleo.IsValidAddress(p.Owner) {
		return nil, fmt.Errorf("%w: owner must be an aleo1 address", ErrInvalidInput)
	}
	if uc.store == nil {
		return nil, fmt.Errorf("report storage not configured")
	}
	if p.To.IsZero() {
		p.To = uc.now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-30 * 24 * time.Hour)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", ErrInvalidInput)
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}

	reports, err := uc.store.Query(ctx, p.Owner, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []*models.RiskReport{}
	}
	return &ListReportsResult{
		Owner:   p.Owner,
		From:    p.From,
		To:      p.To,
		Count:   len(reports),
		Reports: reports,
	}, nil
}

// Transactions returns the owner's transaction history, newest first.
func (uc *ReportsUseCase) Transactions(ctx context.Context, owner string, limit int) ([]models.TransactionStatus, error) {
	if !aleo.IsValidAddress(owner) {
		return nil, fmt.Errorf("%w: owner must be an aleo1 address", ErrInvalidInput)
	}
	txs, err := uc.txlog.List(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
