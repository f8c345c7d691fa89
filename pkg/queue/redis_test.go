package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"AleoRisk/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proveArgs struct {
	AnalysisID string `json:"analysis_id"`
}

type recordingJob struct {
	mu   sync.Mutex
	seen []string
	fail bool
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "analysis.prove" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	args, err := Decode[proveArgs](payload)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seen = append(j.seen, args.AnalysisID)
	if j.fail {
		return errors.New("prover down")
	}
	return nil
}

func (j *recordingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.seen)
}

func newQueue(t *testing.T, cfg QueueConfig) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(logger.Nop(), cfg, client), mr
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q, _ := newQueue(t, QueueConfig{})
	err := q.Enqueue(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, "no job registered")
}

func TestWorkerRunsJob(t *testing.T) {
	q, _ := newQueue(t, QueueConfig{Workers: 2})
	job := &recordingJob{}
	q.RegisterJob(job)

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Enqueue(ctx, "analysis.prove", proveArgs{AnalysisID: "a1"}))

	assert.Eventually(t, func() bool { return job.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))
}

func TestFailedJobRetriesThenDeadLetters(t *testing.T) {
	q, mr := newQueue(t, QueueConfig{RetryLimit: 1, RetryDelay: time.Second})
	job := &recordingJob{fail: true}
	q.RegisterJob(job)

	ctx := context.Background()
	q.ctx = ctx
	raw, _ := json.Marshal(proveArgs{AnalysisID: "a2"})

	q.process(Message{ID: "m1", Type: job.Type(), Payload: raw})
	members, err := mr.ZMembers("aleorisk:queue:retry")
	require.NoError(t, err)
	require.Len(t, members, 1)

	moved, err := q.PromoteRetries(ctx, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	list, err := mr.List("aleorisk:queue:messages")
	require.NoError(t, err)
	require.Len(t, list, 1)
	var retried Message
	require.NoError(t, json.Unmarshal([]byte(list[0]), &retried))
	assert.Equal(t, 1, retried.Attempts)

	q.process(retried)
	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "m1", dead[0].ID)
	assert.Equal(t, 2, job.count())
}

func TestDecode(t *testing.T) {
	got, err := Decode[proveArgs](json.RawMessage(`{"analysis_id":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", got.AnalysisID)

	_, err = Decode[proveArgs](nil)
	assert.Error(t, err)
}
