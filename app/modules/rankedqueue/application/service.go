package rankedqueueservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/pollguard"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RankedQueueService"

// RankedQueueService implements Service.
type RankedQueueService struct {
	repo      rankedqueuedb.Repository
	profiles  profiledb.Repository
	loadouts  loadoutdb.Repository
	battles   battleservice.Initiator
	publisher message.Publisher
	guard     pollguard.Guard
	steps     rankedqueuedomain.ToleranceSteps
	now       func() time.Time

	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

var _ Service = (*RankedQueueService)(nil)

// Option customizes a RankedQueueService.
type Option func(*RankedQueueService)

// WithToleranceSteps replaces DefaultToleranceSteps.
func WithToleranceSteps(steps rankedqueuedomain.ToleranceSteps) Option {
	return func(s *RankedQueueService) { s.steps = steps }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RankedQueueService) { s.now = now }
}

func NewRankedQueueService(
	repo rankedqueuedb.Repository,
	profiles profiledb.Repository,
	loadouts loadoutdb.Repository,
	battles battleservice.Initiator,
	publisher message.Publisher,
	guard pollguard.Guard,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *RankedQueueService {
	if logger == nil {
		logger = slog.Default()
	}
	if guard == nil {
		guard = pollguard.NewLocalGuard(pollguard.DefaultTTL)
	}
	s := &RankedQueueService{
		repo:      repo,
		profiles:  profiles,
		loadouts:  loadouts,
		battles:   battles,
		publisher: publisher,
		guard:     guard,
		steps:     rankedqueuedomain.DefaultToleranceSteps,
		now:       time.Now,
		logger:    logger,
		metrics:   m,
		tracer:    tracer,
		db:        db,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unwrap turns a result into the public (value, error) shape.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	return *result.Success, nil
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

func withTelemetry[S any, F any](
	s *RankedQueueService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(start))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrapped),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrapped)
		return result, wrapped
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Queue operation rejected",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}

func runInTx[S any, F any](
	s *RankedQueueService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
