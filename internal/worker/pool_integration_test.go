//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	c, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	addr, err := c.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestPoolDeliversAndDeadLetters(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := &stubMailer{enabled: true}
	failing := &stubPushSender{enabled: true, err: errors.New("gateway returned 401")}
	StartWorkerPool(ctx, rdb, &WorkerHandlers{
		Push:  NewPushWorker(failing, nil),
		Email: NewEmailWorker(mailer),
	}, 2)

	d := NewDispatcher(rdb)
	require.NoError(t, d.EnqueueEmail(ctx, EmailJobPayload{ToEmail: "o@qist.test", Subject: "s", Body: "b"}))
	require.NoError(t, rdb.LPush(ctx, QueuePush, "{not json").Err())

	assert.Eventually(t, func() bool {
		n, _ := DLQLength(ctx, rdb, QueuePush)
		return n == 1
	}, 15*time.Second, 100*time.Millisecond)

	entries, err := PeekDLQ(ctx, rdb, QueuePush, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "unknown", entries[0].JobType)
	assert.Contains(t, entries[0].Reason, "malformed job")

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessJobFailureLandsInDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	h := &WorkerHandlers{Email: NewEmailWorker(&stubMailer{})}
	payload, _ := json.Marshal(EmailJobPayload{ToEmail: "o@qist.test"})
	job, _ := json.Marshal(Job{Type: JobTypeEmail, Payload: payload})

	processJob(ctx, rdb, h, QueueEmail, string(job))
	processJob(ctx, rdb, h, QueuePush, `{"type":"push","payload":{}}`)

	entries, err := PeekDLQ(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, JobTypeEmail, entries[0].JobType)
	assert.Contains(t, entries[0].Reason, "SMTP not configured")

	entries, err = PeekDLQ(ctx, rdb, QueuePush, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "no handler for job type", entries[0].Reason)
}
