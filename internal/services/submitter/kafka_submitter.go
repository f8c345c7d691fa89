package submitter

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/service"
	"AleoRisk/internal/services/aleo"

	"github.com/google/uuid"
)

var _ service.Submitter = (*KafkaSubmitter)(nil)

// Publisher is the producer surface KafkaSubmitter needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// Envelope is the message written to the transactions topic.
type Envelope struct {
	TxID        string             `json:"tx_id"`
	Owner       string             `json:"owner"`
	Transaction models.Transaction `json:"transaction"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// KafkaSubmitter hands transactions to a downstream prover through a topic.
// Statuses it returns are always pending.
type KafkaSubmitter struct {
	producer Publisher
	topic    string
	now      func() time.Time
}

// NewKafkaSubmitter publishes to topic through producer.
func NewKafkaSubmitter(producer Publisher, topic string) *KafkaSubmitter {
	return &KafkaSubmitter{producer: producer, topic: topic, now: time.Now}
}

// Submit publishes tx keyed by its owner address.
func (s *KafkaSubmitter) Submit(ctx context.Context, tx models.Transaction) (models.TransactionStatus, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return models.TransactionStatus{}, fmt.Errorf("marshal transaction: %w", err)
	}
	id := TransactionID(payload, uuid.NewString())

	env := Envelope{TxID: id, Owner: tx.Address, Transaction: tx, SubmittedAt: s.now().UTC()}
	if err := s.producer.Publish(ctx, s.topic, []byte(tx.Address), env); err != nil {
		return models.TransactionStatus{}, fmt.Errorf("submit %s: %w", tx.Function(), err)
	}

	return models.TransactionStatus{
		TxID:        id,
		Function:    tx.Function(),
		Status:      models.TxPending,
		ExplorerURL: aleo.ExplorerURL(id),
	}, nil
}

// TransactionID derives an at1-prefixed ID from the payload and a nonce.
func TransactionID(payload []byte, nonce string) string {
	first := sha256.Sum256(append(append([]byte{}, payload...), nonce...))
	second := sha256.Sum256(first[:])
	n := new(big.Int).SetBytes(append(first[:], second[:]...))

	digits := n.Text(36)
	if len(digits) < 58 {
		digits = strings.Repeat("0", 58-len(digits)) + digits
	}
	return "at1" + digits[:58]
}
