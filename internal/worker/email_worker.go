package worker

// email_worker.go
// Delivers assignment notices by email for officers without a registered device.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"qist/internal/metrics"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailSender is satisfied by *infra.Mailer.
type EmailSender interface {
	Enabled() bool
	Send(to, subject, body, attachmentPath string) error
}

type EmailWorker struct {
	mailer EmailSender
}

func NewEmailWorker(mailer EmailSender) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

// Process sends one email.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Enabled() {
		metrics.Notifications.WithLabelValues("email", "disabled").Inc()
		return errors.New("email_worker: SMTP not configured")
	}

	if err := w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, ""); err != nil {
		metrics.Notifications.WithLabelValues("email", "failed").Inc()
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	metrics.Notifications.WithLabelValues("email", "delivered").Inc()
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: notice sent")
	return nil
}
