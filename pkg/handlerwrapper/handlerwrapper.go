// Package handlerwrapper adapts typed event handlers to watermill handler funcs.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Result is one outgoing event produced by a handler.
type Result struct {
	Topic   string
	Payload any
}

// WrapTransformingTyped decodes the incoming JSON payload into T, runs
// handler and turns its results into outgoing messages that carry the
// incoming correlation id.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	m metrics.OperationMetrics,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(handlerName)
	}
	if m == nil {
		m = metrics.NewNoop()
	}

	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := msg.Context()
		if id := middleware.MessageCorrelationID(msg); id != "" {
			ctx = attr.WithCorrelationID(ctx, id)
		}

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
		))
		defer span.End()

		m.RecordOperationAttempt(ctx, handlerName, "EventHandler")
		start := time.Now()
		defer func() {
			m.RecordOperationDuration(ctx, handlerName, "EventHandler", time.Since(start))
		}()

		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			// Poison messages are acked and dropped.
			logger.ErrorContext(ctx, "Failed to decode event payload",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			m.RecordOperationFailure(ctx, handlerName, "EventHandler")
			span.SetStatus(codes.Error, "decode failed")
			return nil, nil
		}

		results, err := handler(ctx, &payload)
		if err != nil {
			logger.ErrorContext(ctx, "Event handler failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			m.RecordOperationFailure(ctx, handlerName, "EventHandler")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%s: %w", handlerName, err)
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			outMsg, err := eventbus.NewJSONMessage(ctx, r.Topic, r.Payload)
			if err != nil {
				m.RecordOperationFailure(ctx, handlerName, "EventHandler")
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			out = append(out, outMsg)
		}

		m.RecordOperationSuccess(ctx, handlerName, "EventHandler")
		return out, nil
	}
}
