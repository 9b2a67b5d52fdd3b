package worker

// push_worker.go
// Delivers assignment notifications to officer devices through the push
// gateway. Calls go through a circuit breaker so an unavailable gateway
// fails fast instead of tying up workers.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"qist/internal/infra"
	"qist/internal/metrics"

	"github.com/rs/zerolog/log"
)

// PushJobPayload is the job envelope sent to QueuePush.
type PushJobPayload struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// PushSender is satisfied by *infra.PushClient.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, msg infra.PushMessage) error
}

type PushWorker struct {
	client  PushSender
	breaker *infra.CircuitBreaker
}

func NewPushWorker(client PushSender, breaker *infra.CircuitBreaker) *PushWorker {
	return &PushWorker{client: client, breaker: breaker}
}

// Process sends one device notification.
func (w *PushWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload PushJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("push_worker: invalid payload: %w", err)
	}
	if payload.Token == "" {
		log.Warn().Msg("push_worker: empty device token, skipping")
		return nil
	}
	if !w.client.Enabled() {
		metrics.Notifications.WithLabelValues("push", "disabled").Inc()
		return errors.New("push_worker: push gateway not configured")
	}

	err := w.breaker.Execute(func() error {
		return w.client.Send(ctx, infra.PushMessage{
			Token: payload.Token,
			Title: payload.Title,
			Body:  payload.Body,
			Data:  payload.Data,
		})
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("push", "failed").Inc()
		return fmt.Errorf("push_worker: %w", err)
	}
	metrics.Notifications.WithLabelValues("push", "delivered").Inc()
	log.Info().Str("order_ref", payload.Data["order_ref"]).Msg("push_worker: notification delivered")
	return nil
}
