package services

import (
	"context"

	"graphstore/application/ports"
	"graphstore/domain/events"
	"graphstore/pkg/observability"

	"go.uber.org/zap"
)

// publishEvents hands events to the publisher. A publish failure never fails
// the mutation that raised the events; it is logged and counted.
func publishEvents(
	ctx context.Context,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	metrics *observability.Collector,
	evts []events.DomainEvent,
) {
	if publisher == nil || len(evts) == 0 {
		return
	}

	err := publisher.PublishBatch(ctx, evts)
	metrics.RecordPublish(len(evts), err)
	if err != nil {
		logger.Error("Failed to publish domain events",
			zap.Int("count", len(evts)),
			zap.String("firstEventType", evts[0].GetEventType()),
			zap.Error(err),
		)
	}
}
