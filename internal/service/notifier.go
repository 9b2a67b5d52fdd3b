package service

import (
	"context"
	"fmt"
	"strconv"

	"qist/internal/metrics"
	"qist/internal/model"
	"qist/internal/worker"

	"github.com/rs/zerolog/log"
)

// AssignmentNotifier tells an officer that an order was assigned to them.
// Delivery is best effort: implementations never return an error.
type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, officer *model.User, order *model.Order)
}

// JobEnqueuer is satisfied by *worker.Dispatcher.
type JobEnqueuer interface {
	EnqueuePush(ctx context.Context, payload worker.PushJobPayload) error
	EnqueueEmail(ctx context.Context, payload worker.EmailJobPayload) error
}

type queueNotifier struct {
	jobs JobEnqueuer
}

// NewAssignmentNotifier returns a notifier that hands deliveries to the
// worker queues. A push job is preferred; officers without a device token
// but with an email get an email job instead.
func NewAssignmentNotifier(jobs JobEnqueuer) AssignmentNotifier {
	return &queueNotifier{jobs: jobs}
}

func (n *queueNotifier) NotifyAssignment(ctx context.Context, officer *model.User, order *model.Order) {
	if officer == nil || order == nil {
		return
	}
	title := "New Order Assigned"
	body := fmt.Sprintf("Order %s has been assigned to you for verification.", order.OrderRef)

	var channel string
	var err error
	switch {
	case officer.FCMToken != nil && *officer.FCMToken != "":
		channel = "push"
		err = n.jobs.EnqueuePush(ctx, worker.PushJobPayload{
			Token: *officer.FCMToken,
			Title: title,
			Body:  body,
			Data: map[string]string{
				"order_id":  strconv.FormatUint(uint64(order.ID), 10),
				"order_ref": order.OrderRef,
			},
		})
	case officer.Email != nil && *officer.Email != "":
		channel = "email"
		err = n.jobs.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: *officer.Email,
			Subject: title,
			Body:    body,
		})
	default:
		metrics.Notifications.WithLabelValues("none", "skipped").Inc()
		return
	}

	if err != nil {
		metrics.Notifications.WithLabelValues(channel, "enqueue_failed").Inc()
		log.Error().Err(err).
			Uint("officer_id", officer.ID).
			Str("order_ref", order.OrderRef).
			Str("channel", channel).
			Msg("notifier: failed to enqueue assignment notification")
		return
	}
	metrics.Notifications.WithLabelValues(channel, "queued").Inc()
}
