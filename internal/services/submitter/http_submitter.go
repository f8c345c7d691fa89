package submitter

import (
	"context"
	"fmt"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/service"
	"AleoRisk/internal/services/aleo"
)

var _ service.Submitter = (*HTTPSubmitter)(nil)

type bridgeReply struct {
	TxID          string `json:"tx_id"`
	Status        string `json:"status"`
	BlockHeight   *int64 `json:"block_height"`
	Confirmations *int   `json:"confirmations"`
}

// HTTPSubmitter hands transactions to a prover bridge over HTTP.
type HTTPSubmitter struct {
	bridge *BridgeClient
}

// NewHTTPSubmitter wraps a bridge client.
func NewHTTPSubmitter(bridge *BridgeClient) *HTTPSubmitter {
	return &HTTPSubmitter{bridge: bridge}
}

// Submit posts tx to <bridge>/transactions.
func (s *HTTPSubmitter) Submit(ctx context.Context, tx models.Transaction) (models.TransactionStatus, error) {
	var reply bridgeReply
	if err := s.bridge.PostJSON(ctx, "/transactions", tx, &reply); err != nil {
		return models.TransactionStatus{}, fmt.Errorf("submit %s: %w", tx.Function(), err)
	}
	if !aleo.IsValidTransactionID(reply.TxID) {
		return models.TransactionStatus{}, fmt.Errorf("submit %s: bridge returned invalid transaction id %q", tx.Function(), reply.TxID)
	}

	st := models.TransactionStatus{
		TxID:          reply.TxID,
		Function:      tx.Function(),
		Status:        models.TxPending,
		BlockHeight:   reply.BlockHeight,
		Confirmations: reply.Confirmations,
		ExplorerURL:   aleo.ExplorerURL(reply.TxID),
	}
	switch models.TxState(reply.Status) {
	case models.TxConfirmed:
		st.Status = models.TxConfirmed
	case models.TxFailed:
		return st, fmt.Errorf("submit %s: transaction %s failed", tx.Function(), reply.TxID)
	}
	return st, nil
}
