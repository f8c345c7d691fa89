package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues typed messages.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig contains the configuration for the queue.
type QueueConfig struct {
	Prefix      string        `yaml:"prefix" default:"aleorisk:queue"`
	Workers     int           `yaml:"workers" default:"4"`
	RetryLimit  int           `yaml:"retry_limit" default:"3"`
	RetryDelay  time.Duration `yaml:"retry_delay" default:"10s"`
	PollTimeout time.Duration `yaml:"poll_timeout" default:"1s"`
	RetryTick   time.Duration `yaml:"retry_tick" default:"5s"`
}

// Message represents a message in the queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (T, error) {
	var result T
	if len(payload) == 0 {
		return result, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return result, fmt.Errorf("decode payload: %w", err)
	}
	return result, nil
}
