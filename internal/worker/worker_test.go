package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"qist/internal/infra"

	"github.com/redis/go-redis/v9"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPushSender struct {
	enabled bool
	err     error
	sent    []infra.PushMessage
}

func (s *stubPushSender) Enabled() bool { return s.enabled }

func (s *stubPushSender) Send(_ context.Context, msg infra.PushMessage) error {
	s.sent = append(s.sent, msg)
	return s.err
}

type stubMailer struct {
	enabled bool
	err     error
	to      []string
}

func (s *stubMailer) Enabled() bool { return s.enabled }

func (s *stubMailer) Send(to, _, _, _ string) error {
	s.to = append(s.to, to)
	return s.err
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ── Push ─────────────────────────────────────────────────────────────────────

func TestPushWorker_Delivers(t *testing.T) {
	client := &stubPushSender{enabled: true}
	w := NewPushWorker(client, infra.NewCircuitBreaker("push", infra.CircuitBreakerConfig{}))

	err := w.Process(context.Background(), raw(t, PushJobPayload{
		Token: "fcm-1",
		Title: "New Order Assigned",
		Body:  "Order R has been assigned to you for verification.",
		Data:  map[string]string{"order_id": "1", "order_ref": "R"},
	}))
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "fcm-1", client.sent[0].Token)
	assert.Equal(t, "R", client.sent[0].Data["order_ref"])
}

func TestPushWorker_SkipsAndFailures(t *testing.T) {
	ctx := context.Background()

	client := &stubPushSender{enabled: true}
	w := NewPushWorker(client, infra.NewCircuitBreaker("push", infra.CircuitBreakerConfig{}))
	assert.NoError(t, w.Process(ctx, raw(t, PushJobPayload{})), "empty token is dropped")
	assert.Empty(t, client.sent)
	assert.Error(t, w.Process(ctx, json.RawMessage(`{"token":`)))

	disabled := NewPushWorker(&stubPushSender{}, infra.NewCircuitBreaker("push", infra.CircuitBreakerConfig{}))
	assert.Error(t, disabled.Process(ctx, raw(t, PushJobPayload{Token: "x"})))
}

func TestPushWorker_BreakerOpensOnGatewayErrors(t *testing.T) {
	ctx := context.Background()
	client := &stubPushSender{enabled: true, err: errors.New("gateway returned 503")}
	w := NewPushWorker(client, infra.NewCircuitBreaker("push", infra.CircuitBreakerConfig{FailureThreshold: 2}))
	job := raw(t, PushJobPayload{Token: "x"})

	assert.Error(t, w.Process(ctx, job))
	assert.Error(t, w.Process(ctx, job))
	err := w.Process(ctx, job)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Len(t, client.sent, 2, "open breaker does not reach the gateway")
}

// ── Email ────────────────────────────────────────────────────────────────────

func TestEmailWorker(t *testing.T) {
	ctx := context.Background()
	mailer := &stubMailer{enabled: true}
	w := NewEmailWorker(mailer)

	require.NoError(t, w.Process(ctx, raw(t, EmailJobPayload{ToEmail: "o@qist.test", Subject: "s", Body: "b"})))
	assert.Equal(t, []string{"o@qist.test"}, mailer.to)

	assert.NoError(t, w.Process(ctx, raw(t, EmailJobPayload{})))
	assert.Len(t, mailer.to, 1)
	assert.Error(t, w.Process(ctx, json.RawMessage(`nope`)))

	mailer.err = errors.New("535 auth failed")
	assert.ErrorContains(t, w.Process(ctx, raw(t, EmailJobPayload{ToEmail: "o@qist.test"})), "535")

	assert.Error(t, NewEmailWorker(&stubMailer{}).Process(ctx, raw(t, EmailJobPayload{ToEmail: "o@qist.test"})))
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

func TestHandlersForType(t *testing.T) {
	push := NewPushWorker(&stubPushSender{}, nil)
	h := &WorkerHandlers{Push: push}

	assert.Equal(t, Processor(push), h.forType(JobTypePush))
	assert.Nil(t, h.forType(JobTypeEmail))
	assert.Nil(t, h.forType("invoice"))
}

func TestDispatcherWithoutRedis(t *testing.T) {
	var d *Dispatcher
	assert.Error(t, d.EnqueuePush(context.Background(), PushJobPayload{Token: "x"}))
	assert.Error(t, NewDispatcher(nil).EnqueueEmail(context.Background(), EmailJobPayload{ToEmail: "a"}))
}

func TestIsPopTimeout(t *testing.T) {
	assert.True(t, isPopTimeout(redis.Nil))
	assert.True(t, isPopTimeout(fmt.Errorf("brpop: %w", redis.Nil)))
	assert.False(t, isPopTimeout(errors.New("dial tcp 127.0.0.1:1: connection refused")))
}

func TestWorkerBacksOffAndStopsWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runWorker(ctx, rdb, &WorkerHandlers{}, 0)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop while backing off")
	}
}
