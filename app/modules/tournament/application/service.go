package tournamentservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const serviceName = "TournamentService"

// TournamentService implements Service.
type TournamentService struct {
	repo          tournamentdb.Repository
	profiles      profiledb.Repository
	battles       battleservice.Initiator
	publisher     message.Publisher
	scheduler     DeadlineScheduler
	roundDuration time.Duration
	flip          tournamentdomain.CoinFlip
	now           func() time.Time
	reads         singleflight.Group

	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

var _ Service = (*TournamentService)(nil)

// Option customizes a TournamentService.
type Option func(*TournamentService)

func WithRoundDuration(d time.Duration) Option {
	return func(s *TournamentService) {
		if d > 0 {
			s.roundDuration = d
		}
	}
}

// WithCoinFlip replaces the random source used for undecided matches.
func WithCoinFlip(flip tournamentdomain.CoinFlip) Option {
	return func(s *TournamentService) { s.flip = flip }
}

func WithClock(now func() time.Time) Option {
	return func(s *TournamentService) { s.now = now }
}

func NewTournamentService(
	repo tournamentdb.Repository,
	profiles profiledb.Repository,
	battles battleservice.Initiator,
	publisher message.Publisher,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TournamentService{
		repo:          repo,
		profiles:      profiles,
		battles:       battles,
		publisher:     publisher,
		roundDuration: tournamentdomain.DefaultRoundDuration,
		flip:          tournamentdomain.RandomCoin,
		now:           time.Now,
		logger:        logger,
		metrics:       m,
		tracer:        tracer,
		db:            db,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler attaches the deadline scheduler once the job queue exists.
func (s *TournamentService) SetScheduler(scheduler DeadlineScheduler) {
	s.scheduler = scheduler
}

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
	s *TournamentService,
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
		s.logger.WarnContext(ctx, "Tournament operation rejected",
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
	s *TournamentService,
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
