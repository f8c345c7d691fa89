package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

var _ repository.TransactionLog = (*RedisTransactionLog)(nil)

// DefaultHistoryLimit caps the per-owner transaction history.
const DefaultHistoryLimit = 50

// RedisTransactionLog keeps each owner's hand-offs in a capped list, newest first.
type RedisTransactionLog struct {
	rdb    *redis.Client
	prefix string
	limit  int
}

// NewRedisTransactionLog stores lists under "<prefix>:txlog:<owner>".
func NewRedisTransactionLog(rdb *redis.Client, prefix string, limit int) *RedisTransactionLog {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisTransactionLog{rdb: rdb, prefix: prefix, limit: limit}
}

func (l *RedisTransactionLog) key(owner string) string {
	if l.prefix == "" {
		return "txlog:" + owner
	}
	return l.prefix + ":txlog:" + owner
}

// Append pushes tx to the front of owner's history and trims it to the cap.
func (l *RedisTransactionLog) Append(ctx context.Context, owner string, tx models.TransactionStatus) error {
	b, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	key := l.key(owner)
	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, int64(l.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means the cap.
func (l *RedisTransactionLog) List(ctx context.Context, owner string, limit int) ([]models.TransactionStatus, error) {
	if limit <= 0 || limit > l.limit {
		limit = l.limit
	}
	raw, err := l.rdb.LRange(ctx, l.key(owner), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]models.TransactionStatus, 0, len(raw))
	for _, s := range raw {
		var tx models.TransactionStatus
		if err := json.Unmarshal([]byte(s), &tx); err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}
