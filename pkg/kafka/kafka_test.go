package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	applogger "AleoRisk/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) snapshot() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{ch: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.ch <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func (r *fakeReader) Close() error { return nil }

type funcHandler struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h funcHandler) Topic() string                                { return h.topic }
func (h funcHandler) Handle(ctx context.Context, data []byte) error { return h.fn(ctx, data) }

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "reports", []byte("k"), map[string]int{"n": 1}))
	require.NoError(t, p.PublishBatch(context.Background(), "reports", []Message{
		{Key: []byte("a"), Value: "raw", Headers: map[string]string{"trace_id": "t1"}},
		{Key: []byte("b"), Value: []byte("bytes")},
	}))

	msgs := w.snapshot()
	require.Len(t, msgs, 3)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, 1, decoded["n"])
	assert.Equal(t, "raw", string(msgs[1].Value))
	assert.Equal(t, "t1", ExtractTraceID(msgs[1]))
	assert.Equal(t, "reports", msgs[2].Topic)
}

func TestProducerWrapsWriteError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("down")}, "gzip")
	err := p.Publish(context.Background(), "t", nil, "x")
	assert.ErrorContains(t, err, "down")
}

func newTestConsumer(t *testing.T, r *fakeReader, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(applogger.Nop(), opts...)
	require.NoError(t, err)
	c.SetReaderFactory(func(string) MessageReader { return r })
	return c
}

func TestConsumerHandlesAndCommits(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Topic: "reports", Offset: 1, Value: []byte("a")},
		kafka.Message{Topic: "reports", Offset: 2, Value: []byte("b")},
	)
	c := newTestConsumer(t, r)

	var seen atomic.Int32
	c.RegisterHandler(funcHandler{topic: "reports", fn: func(context.Context, []byte) error {
		seen.Add(1)
		return nil
	}})
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.EqualValues(t, 2, seen.Load())
}

func TestConsumerRetriesThenDeadLetters(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "reports", Offset: 7, Value: []byte("bad")})
	dlq := &fakeWriter{}
	c := newTestConsumer(t, r, WithConsumerDLQ("reports.dlq"))
	c.SetDLQWriter(dlq)

	var calls atomic.Int32
	var failures atomic.Int32
	c.SetHook(NewHookChain(HookFuncs{Err: func(context.Context, kafka.Message, error) { failures.Add(1) }}))
	c.RegisterHandler(funcHandler{topic: "reports", fn: func(context.Context, []byte) error {
		calls.Add(1)
		return errors.New("nope")
	}})
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(dlq.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	assert.EqualValues(t, 3, calls.Load(), "first attempt plus two retries")
	assert.EqualValues(t, 1, failures.Load())
	parked := dlq.snapshot()[0]
	assert.Equal(t, "reports.dlq", parked.Topic)
	assert.Equal(t, "bad", string(parked.Value))
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "reports", Offset: 3})
	c := newTestConsumer(t, r, WithConsumerRetry(0, time.Millisecond, time.Millisecond))

	var after atomic.Value
	c.SetHook(HookFuncs{After: func(_ context.Context, _ kafka.Message, err error) { after.Store(err) }})
	c.RegisterHandler(funcHandler{topic: "reports", fn: func(context.Context, []byte) error { panic("boom") }})
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool { return after.Load() != nil }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.ErrorContains(t, after.Load().(error), "handler panic")
	assert.Empty(t, r.commits(), "no DLQ configured, so the message stays uncommitted")
}

func TestHookChainConvertsPanic(t *testing.T) {
	chain := NewHookChain(nil, HookFuncs{Before: func(context.Context, kafka.Message) (context.Context, error) {
		panic("hook")
	}})
	_, err := chain.BeforeHandle(context.Background(), kafka.Message{})
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(nil)
	assert.Error(t, err)
}
