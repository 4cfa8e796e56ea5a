package outbox

import (
	"context"
	"encoding/json"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/internal/workflow"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/metrics"
)

// Enqueuer writes workflow side effects to the outbox for the worker to
// dispatch. Enqueueing is best-effort: the transition that produced the
// effects has already committed, so a failure here is logged and the
// effect is lost rather than the request failing.
type Enqueuer struct {
	repo    repository.OutboxRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEnqueuer(repo repository.OutboxRepository, log *logger.Logger, m *metrics.Metrics) *Enqueuer {
	return &Enqueuer{repo: repo, logger: log, metrics: m}
}

func (e *Enqueuer) Enqueue(ctx context.Context, effects []workflow.SideEffect) {
	for _, effect := range effects {
		payload, err := json.Marshal(effect)
		if err != nil {
			e.logger.Error(err, "failed to encode side effect", "type", string(effect.Type))
			continue
		}

		eventType := model.OutboxEventNotify
		if effect.Type == workflow.SideEffectCascade {
			eventType = model.OutboxEventCascade
		}

		event := &model.OutboxEvent{
			EventType: eventType,
			Payload:   payload,
		}
		if err := e.repo.Create(ctx, event); err != nil {
			e.logger.Error(err, "failed to enqueue side effect", "type", string(effect.Type))
			continue
		}
		if e.metrics != nil {
			e.metrics.SideEffectsQueued.WithLabelValues(string(effect.Type)).Inc()
		}
	}
}
