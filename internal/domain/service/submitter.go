package service

import (
	"context"

	"AleoRisk/internal/domain/models"
)

// Submitter hands a built transaction to the network side and reports
// what it was told about it.
type Submitter interface {
	Submit(ctx context.Context, tx models.Transaction) (models.TransactionStatus, error)
}
