package loadoutservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	loadoutdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/domain"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LoadoutService implements Service.
type LoadoutService struct {
	repo    loadoutdb.Repository
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

var _ Service = (*LoadoutService)(nil)

func NewLoadoutService(
	repo loadoutdb.Repository,
	logger *slog.Logger,
	m metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LoadoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadoutService{
		repo:    repo,
		logger:  logger,
		metrics: m,
		tracer:  tracer,
		db:      db,
	}
}

func (s *LoadoutService) GetLoadout(ctx context.Context, userID string) (*loadoutdb.Loadout, error) {
	result, err := withTelemetry(s, ctx, "GetLoadout", userID, func(ctx context.Context) (results.OperationResult[*loadoutdb.Loadout, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*loadoutdb.Loadout, error], error) {
			l, err := s.repo.EnsureLoadout(ctx, db, userID)
			if err != nil {
				return results.OperationResult[*loadoutdb.Loadout, error]{}, err
			}
			return results.SuccessResult[*loadoutdb.Loadout, error](l), nil
		})
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *LoadoutService) UpdateLoadout(ctx context.Context, userID string, sel loadoutdomain.Selection) (*loadoutdb.Loadout, error) {
	result, err := withTelemetry(s, ctx, "UpdateLoadout", userID, func(ctx context.Context) (results.OperationResult[*loadoutdb.Loadout, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*loadoutdb.Loadout, error], error) {
			return s.updateLoadoutLogic(ctx, db, userID, sel)
		})
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

func (s *LoadoutService) updateLoadoutLogic(ctx context.Context, db bun.IDB, userID string, sel loadoutdomain.Selection) (results.OperationResult[*loadoutdb.Loadout, error], error) {
	sel = sel.Normalize()
	if err := sel.CheckBounds(); err != nil {
		return results.FailureResult[*loadoutdb.Loadout, error](invalid("%v", err)), nil
	}

	for _, group := range []struct {
		ids  []string
		kind loadoutdomain.ItemType
	}{
		{sel.WeaponIDs, loadoutdomain.ItemTypeWeapon},
		{sel.ConsumableIDs, loadoutdomain.ItemTypeConsumable},
	} {
		reason, err := s.checkItems(ctx, db, group.ids, group.kind)
		if err != nil {
			return results.OperationResult[*loadoutdb.Loadout, error]{}, err
		}
		if reason != "" {
			return results.FailureResult[*loadoutdb.Loadout, error](invalid("%s", reason)), nil
		}
	}

	jutsus, err := s.repo.GetJutsus(ctx, db, sel.JutsuIDs)
	if err != nil {
		return results.OperationResult[*loadoutdb.Loadout, error]{}, err
	}
	known := make(map[string]bool, len(jutsus))
	for _, j := range jutsus {
		known[j.ID] = true
	}
	for _, id := range sel.JutsuIDs {
		if !known[id] {
			return results.FailureResult[*loadoutdb.Loadout, error](invalid("jutsu %s does not exist", id)), nil
		}
	}

	l := &loadoutdb.Loadout{
		UserID:        userID,
		JutsuIDs:      sel.JutsuIDs,
		WeaponIDs:     sel.WeaponIDs,
		ConsumableIDs: sel.ConsumableIDs,
	}
	if err := s.repo.SaveLoadout(ctx, db, l); err != nil {
		return results.OperationResult[*loadoutdb.Loadout, error]{}, err
	}
	return results.SuccessResult[*loadoutdb.Loadout, error](l), nil
}

// checkItems returns a rejection reason unless every id is a shop item of
// the wanted type.
func (s *LoadoutService) checkItems(ctx context.Context, db bun.IDB, ids []string, want loadoutdomain.ItemType) (string, error) {
	items, err := s.repo.GetItems(ctx, db, ids)
	if err != nil {
		return "", err
	}
	byID := make(map[string]*loadoutdb.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, id := range ids {
		it, ok := byID[id]
		switch {
		case !ok:
			return fmt.Sprintf("item %s does not exist", id), nil
		case it.ItemType != want:
			return fmt.Sprintf("item %s is a %s, not a %s", id, it.ItemType, want), nil
		case !it.InShop:
			return fmt.Sprintf("item %s is not available in the shop", id), nil
		}
	}
	return "", nil
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

func withTelemetry[S any, F any](
	s *LoadoutService,
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
		s.metrics.RecordOperationAttempt(ctx, operationName, "LoadoutService")
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "LoadoutService", time.Since(start))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "LoadoutService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "LoadoutService")
		}
		span.RecordError(wrapped)
		return result, wrapped
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Loadout operation rejected",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "LoadoutService")
	}
	return result, nil
}

func runInTx[S any, F any](
	s *LoadoutService,
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
