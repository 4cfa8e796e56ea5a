package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/notifier"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/workflow"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/messaging"
	"github.com/medigo/pharmacy-api/pkg/metrics"
)

// EventsChannel is the broker channel workflow events fan out on, for
// dashboards subscribed to live order activity.
const EventsChannel = "workflow.events"

type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Dispatcher drains the outbox: notifications go to the SMS gateway,
// cascades are applied through the workflow engine, and every event is
// fanned out on the broker. Transient failures are retried with linear
// backoff; permanent ones (stale cascade, decode error) are failed
// without retry.
type Dispatcher struct {
	repo     repository.OutboxRepository
	engine   *workflow.Engine
	notifier notifier.Notifier
	broker   messaging.Broker
	config   DispatcherConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(
	repo repository.OutboxRepository,
	engine *workflow.Engine,
	n notifier.Notifier,
	broker messaging.Broker,
	config DispatcherConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &Dispatcher{
		repo:     repo,
		engine:   engine,
		notifier: n,
		broker:   broker,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("starting outbox dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down outbox dispatcher")
			return
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error(err, "failed to process outbox batch")
			}
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := d.repo.GetPendingEvents(ctx, d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	for _, event := range events {
		d.processEvent(ctx, event)
	}

	if pending, err := d.repo.CountPending(ctx); err == nil {
		d.metrics.OutboxQueueSize.Set(float64(pending))
	}
	return nil
}

func (d *Dispatcher) processEvent(ctx context.Context, event *model.OutboxEvent) {
	var effect workflow.SideEffect
	if err := json.Unmarshal(event.Payload, &effect); err != nil {
		d.fail(ctx, event, fmt.Errorf("failed to decode side effect: %w", err), false)
		return
	}

	var err error
	switch effect.Type {
	case workflow.SideEffectNotify:
		err = d.dispatchNotify(ctx, effect.Notify)
	case workflow.SideEffectCascade:
		err = d.dispatchCascade(ctx, effect.Cascade)
	default:
		err = fmt.Errorf("unknown side effect type %q", effect.Type)
	}

	if err != nil {
		d.fail(ctx, event, err, retryable(err))
		return
	}

	// Fan the event out for live dashboards; purely best-effort.
	if pubErr := d.broker.Publish(ctx, EventsChannel, messaging.Message{
		Type:    event.EventType,
		Payload: json.RawMessage(event.Payload),
	}); pubErr != nil {
		d.logger.Error(pubErr, "failed to publish workflow event", "event_id", event.ID.String())
	}

	if err := d.repo.MarkProcessed(ctx, event.ID); err != nil {
		d.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
		return
	}
	d.metrics.SideEffectsDispatched.WithLabelValues(string(effect.Type)).Inc()
}

func (d *Dispatcher) dispatchNotify(ctx context.Context, req *workflow.NotifyRequest) error {
	if req == nil {
		return fmt.Errorf("notify effect without payload")
	}
	return d.notifier.Notify(ctx, req.Phone, req.Message)
}

func (d *Dispatcher) dispatchCascade(ctx context.Context, req *workflow.CascadeRequest) error {
	if req == nil {
		return fmt.Errorf("cascade effect without payload")
	}
	return d.engine.ApplyCascade(ctx, *req)
}

// retryable distinguishes transient failures from permanent ones. A
// cascade that lost its race (Conflict) or targets a vanished entity
// will never succeed, so retrying only burns the queue.
func retryable(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrConflict, apperrors.ErrNotFound, apperrors.ErrBadRequest, apperrors.ErrInvalidTransition:
		return false
	default:
		return true
	}
}

func (d *Dispatcher) fail(ctx context.Context, event *model.OutboxEvent, cause error, retry bool) {
	d.logger.Error(cause, "side effect dispatch failed",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount,
	)
	d.metrics.SideEffectsFailed.WithLabelValues(event.EventType).Inc()

	var retryAt *time.Time
	if retry && event.RetryCount < d.config.MaxRetries {
		at := time.Now().Add(d.config.RetryDelay * time.Duration(event.RetryCount+1))
		retryAt = &at
	}
	if err := d.repo.MarkFailed(ctx, event.ID, cause.Error(), retryAt); err != nil {
		d.logger.Error(err, "failed to mark event failed", "event_id", event.ID.String())
	}
}
