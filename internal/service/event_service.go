package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/pkg/config"
	"github.com/campushq/timetable-api/pkg/jobs"
)

type eventPublisher interface {
	Publish(ctx context.Context, channel string, value interface{}) error
}

// EventService dispatches scheduling events to downstream notification
// consumers through an in-memory queue and Redis pub/sub. Emission is
// fire-and-forget: the originating operation never blocks on, or fails
// because of, event delivery.
type EventService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewEventService builds the dispatcher. publisher may be nil, in which case
// events are only logged.
func NewEventService(publisher eventPublisher, cfg config.EventsConfig, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "scheduling.events"
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.SchedulingEvent)
		if !ok {
			logger.Warn("dropping malformed event job", zap.String("job_id", job.ID))
			return nil
		}
		logger.Info("scheduling event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("resource_id", event.ResourceID))
		if publisher == nil {
			return nil
		}
		return publisher.Publish(ctx, channel, event)
	}

	queue := jobs.NewQueue("scheduling-events", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	return &EventService{queue: queue, logger: logger}
}

// Start begins queue consumption.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Emit hands an event to the dispatcher without blocking the caller.
func (s *EventService) Emit(event models.SchedulingEvent) {
	if s == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	go func() {
		job := jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue scheduling event",
				zap.String("event_id", event.ID), zap.Error(err))
		}
	}()
}
