package kafka

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	applogger "AleoRisk/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a reader for one topic.
type ReaderFactory func(topic string) MessageReader

// Consumer fans messages from one reader per topic into a worker pool.
// Handling is serialized per (topic, partition); failed messages are retried
// with jittered backoff, then sent to the DLQ topic if one is configured.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *applogger.Logger
	handlers  map[string]MessageHandler
	readers   map[string]MessageReader
	newReader ReaderFactory
	dlq       MessageWriter
	hook      ConsumerHook
	partLocks sync.Map

	msgCh    chan kafka.Message
	cancel   context.CancelFunc
	runCtx   context.Context
	fetchWG  sync.WaitGroup
	workWG   sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(l *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "aleorisk-reports",
		Workers:    2,
		BufferSize: 64,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if l == nil {
		l = applogger.Nop()
	}

	c := &Consumer{
		cfg:      cfg,
		log:      l.With(applogger.String("component", "kafka_consumer")),
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]MessageReader),
		hook:     HookFuncs{},
	}
	c.newReader = func(topic string) MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	initConsumerMetrics()
	return c, nil
}

// SetReaderFactory replaces how per-topic readers are opened.
func (c *Consumer) SetReaderFactory(f ReaderFactory) { c.newReader = f }

// SetDLQWriter replaces the dead-letter writer.
func (c *Consumer) SetDLQWriter(w MessageWriter) { c.dlq = w }

// SetHook installs lifecycle hooks. Use NewHookChain to combine several.
func (c *Consumer) SetHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler registers a message handler for a specific topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens readers for every registered topic and starts the workers.
// It returns immediately; call Stop to drain.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.msgCh = make(chan kafka.Message, c.cfg.BufferSize)

	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
	}

	workers := max(c.cfg.Workers, 1)
	for i := 0; i < workers; i++ {
		c.workWG.Add(1)
		go c.worker()
	}
	for topic, r := range c.readers {
		c.fetchWG.Add(1)
		go c.fetch(topic, r)
	}

	c.log.Info("kafka consumer started",
		applogger.Int("workers", workers),
		applogger.String("group", c.cfg.GroupID),
	)
	return nil
}

// Stop stops fetching, lets workers finish in-flight messages and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.fetchWG.Wait()
		close(c.msgCh)

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.log.Warn("close reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) fetch(topic string, r MessageReader) {
	defer c.fetchWG.Done()
	attempt := 0
	for {
		m, err := r.FetchMessage(c.runCtx)
		if err != nil {
			if c.runCtx.Err() != nil {
				return
			}
			attempt++
			c.log.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !c.sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
				return
			}
			continue
		}
		attempt = 0
		if m.Topic == "" {
			m.Topic = topic
		}
		select {
		case c.msgCh <- m:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgCh)))
		case <-c.runCtx.Done():
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for m := range c.msgCh {
		c.process(m)
	}
}

func (c *Consumer) process(m kafka.Message) {
	handler, ok := c.handlers[m.Topic]
	if !ok {
		return
	}
	start := time.Now()
	lock := c.partitionLock(m.Topic, m.Partition)
	lock.Lock()
	defer lock.Unlock()

	base := context.WithoutCancel(c.runCtx)
	var err error
	attempts := 0
	for {
		attempts++
		err = c.handleOnce(base, handler, m)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}
		if !c.sleep(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			// stopping: leave uncommitted so the group redelivers it
			return
		}
	}

	committable := err == nil
	if err != nil {
		c.hook.OnError(base, m, err)
		c.log.Error("kafka message dropped",
			applogger.String("topic", m.Topic),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		committable = c.deadLetter(m, err)
	}
	if committable {
		c.commit(m)
	}
	consumerHandleLatency.WithLabelValues(m.Topic, strconv.FormatBool(err == nil)).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleOnce(ctx context.Context, h MessageHandler, m kafka.Message) (err error) {
	hctx, err := c.hook.BeforeHandle(ctx, m)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		c.hook.AfterHandle(hctx, m, err)
	}()
	return h.Handle(hctx, m.Value)
}

// deadLetter reports whether the message was parked and may be committed.
func (c *Consumer) deadLetter(m kafka.Message, cause error) bool {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("dlq write failed", applogger.String("dlq", c.cfg.DLQTopic), applogger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(m kafka.Message) {
	r := c.readers[m.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, m)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka commit failed", applogger.String("topic", m.Topic), applogger.Error(err))
}

// sleep waits for d unless the consumer is stopping.
func (c *Consumer) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.runCtx.Done():
		return false
	}
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	l, _ := c.partLocks.LoadOrStore(topic+"/"+strconv.Itoa(partition), &sync.Mutex{})
	return l.(*sync.Mutex)
}

func backoffWithJitter(lo, hi time.Duration, attempt int) time.Duration {
	if lo <= 0 {
		lo = 50 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	exp := lo << uint(min(max(attempt-1, 0), 30))
	if exp > hi || exp <= 0 {
		exp = hi
	}
	// up to 50% jitter
	return exp - time.Duration(rand.Int64N(int64(exp)/2+1))
}

var (
	consumerOnce          sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "aleorisk_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "aleorisk_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic", "ok"},
		)
	})
}
