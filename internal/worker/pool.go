package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueuePush  = "jobs:push"
	QueueEmail = "jobs:email"

	JobTypePush  = "push"
	JobTypeEmail = "email"

	// popRetryDelay is the pause after a Redis error other than a BRPOP timeout.
	popRetryDelay = 2 * time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Processor handles one job payload. A returned error sends the job to the
// dead-letter list; jobs are never retried.
type Processor interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists consumed via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueuePush queues a device notification.
func (d *Dispatcher) EnqueuePush(ctx context.Context, payload PushJobPayload) error {
	return d.enqueue(ctx, QueuePush, JobTypePush, payload)
}

// EnqueueEmail queues an email.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobTypeEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return errors.New("dispatcher: redis not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers maps job types to their processors. Nil entries are
// logged and dead-lettered.
type WorkerHandlers struct {
	Push  Processor
	Email Processor
}

func (h *WorkerHandlers) forType(jobType string) Processor {
	switch jobType {
	case JobTypePush:
		return h.Push
	case JobTypeEmail:
		return h.Email
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines blocking on BRPOP over
// every queue until ctx is cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueuePush, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if isPopTimeout(err) || ctx.Err() != nil {
					continue
				}
				log.Warn().Err(err).Int("worker", id).Msg("worker: redis pop failed, backing off")
				select {
				case <-ctx.Done():
				case <-time.After(popRetryDelay):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// isPopTimeout is true when BRPOP returned because no job arrived in time.
func isPopTimeout(err error) bool { return errors.Is(err, redis.Nil) }

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, "unknown", json.RawMessage(raw), "malformed job: "+err.Error())
		return
	}

	p := handlers.forType(job.Type)
	if p == nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type")
		return
	}
	if err := p.Process(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("type", job.Type).Str("queue", queue).Msg("job failed")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error())
	}
}
