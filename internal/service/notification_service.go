package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	"github.com/campwerk/nightwatch-api/pkg/jobs"
)

// NotificationService pushes engine events to interested consumers. Dispatch
// runs on a background queue; a failed publish never fails the operation that
// produced the event.
type NotificationService struct {
	client  *redis.Client
	channel string
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService wires the dispatcher. A nil Redis client downgrades
// dispatch to log-only, which keeps development setups working.
func NewNotificationService(client *redis.Client, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		client:  client,
		channel: cfg.Channel,
		logger:  logger,
		enabled: cfg.Enabled,
	}
	s.queue = jobs.NewQueue("notifications", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Emit queues an event. Never returns an error: notification delivery is not
// on the critical path of the triggering operation.
func (s *NotificationService) Emit(kind models.EventKind, payload map[string]interface{}) {
	if !s.enabled {
		return
	}
	event := models.Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: event.ID, Type: string(kind), Payload: event}); err != nil {
		s.logger.Warn("drop notification", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *NotificationService) dispatch(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.Event)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if s.client == nil {
		s.logger.Info("event", zap.String("kind", string(event.Kind)), zap.ByteString("payload", body))
		return nil
	}
	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
