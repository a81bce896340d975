package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipegraph/application/ports"
	"recipegraph/domain/core/valueobjects"
	"recipegraph/domain/events"
	pkgerrors "recipegraph/pkg/errors"
)

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) TraversalTruncated(string)                     {}
func (noopMetrics) IngestedRecord(string)                         {}

func metricsOrNoop(m ports.Metrics) ports.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func observe(m ports.Metrics, operation string, start time.Time, errp *error) {
	m.ObserveOperation(operation, time.Since(start), *errp)
}

// publishEvents hands committed events to the publisher. Delivery problems
// are logged; the write they describe has already succeeded.
func publishEvents(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, evts []events.DomainEvent) {
	if publisher == nil || len(evts) == 0 {
		return
	}
	if err := publisher.PublishBatch(ctx, evts); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Error(err),
			zap.Int("count", len(evts)),
			zap.String("first_type", evts[0].GetEventType()),
		)
	}
}

// lookupNodeID resolves a caller-supplied id. Ids are opaque to callers, so
// one this store could never have issued is reported as not found.
func lookupNodeID(raw string) (valueobjects.NodeID, error) {
	id, err := valueobjects.NewNodeIDFromString(raw)
	if err != nil {
		return valueobjects.NodeID{}, pkgerrors.NewNotFoundError("node", raw)
	}
	return id, nil
}

func parseOptionalNodeType(raw string) (valueobjects.NodeType, error) {
	if raw == "" {
		return "", nil
	}
	t, err := valueobjects.ParseNodeType(raw)
	if err != nil {
		return "", pkgerrors.NewValidationError(err.Error())
	}
	return t, nil
}

func notFoundNode(id valueobjects.NodeID) error {
	return pkgerrors.NewNotFoundError("node", id.String())
}
