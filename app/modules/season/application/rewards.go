package seasonservice

import (
	"context"
	"fmt"

	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/uptrace/bun"
)

func toUnclaimed(row *seasondb.UserReward) UnclaimedReward {
	out := UnclaimedReward{SeasonID: row.SeasonID, Division: row.Division}
	if row.Season != nil {
		out.SeasonName = row.Season.Name
		out.Rewards = row.Season.Rewards.For(row.Division)
	}
	return out
}

func (s *SeasonService) GetUnclaimedRewards(ctx context.Context, userID string) ([]UnclaimedReward, error) {
	return unwrap(withTelemetry(s, ctx, "GetUnclaimedRewards", userID, func(ctx context.Context) (results.OperationResult[[]UnclaimedReward, error], error) {
		rows, err := s.repo.ListUnclaimed(ctx, nil, userID)
		if err != nil {
			return results.OperationResult[[]UnclaimedReward, error]{}, err
		}
		out := make([]UnclaimedReward, 0, len(rows))
		for _, row := range rows {
			out = append(out, toUnclaimed(row))
		}
		return results.SuccessResult[[]UnclaimedReward, error](out), nil
	}))
}

func (s *SeasonService) ClaimRewards(ctx context.Context, userID string) (*ClaimResult, error) {
	return unwrap(withTelemetry(s, ctx, "ClaimRewards", userID, func(ctx context.Context) (results.OperationResult[*ClaimResult, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ClaimResult, error], error) {
			return s.claimLogic(ctx, db, userID)
		})
	}))
}

func (s *SeasonService) claimLogic(ctx context.Context, db bun.IDB, userID string) (results.OperationResult[*ClaimResult, error], error) {
	rows, err := s.repo.LockUnclaimed(ctx, db, userID)
	if err != nil {
		return results.OperationResult[*ClaimResult, error]{}, err
	}
	if len(rows) == 0 {
		return results.FailureResult[*ClaimResult, error](ErrNoUnclaimedRewards), nil
	}

	bundles := make([]rewards.Bundle, 0, len(rows))
	seasonIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		bundles = append(bundles, toUnclaimed(row).Rewards)
		seasonIDs = append(seasonIDs, row.SeasonID)
	}
	merged := rewards.Merge(bundles...)

	if !merged.IsEmpty() {
		if err := s.profiles.ApplyRewardBundle(ctx, db, userID, merged); err != nil {
			return results.OperationResult[*ClaimResult, error]{}, err
		}
	}

	n, err := s.repo.MarkClaimed(ctx, db, userID, seasonIDs, s.now().UTC())
	if err != nil {
		return results.OperationResult[*ClaimResult, error]{}, err
	}
	if n != int64(len(seasonIDs)) {
		return results.OperationResult[*ClaimResult, error]{}, fmt.Errorf("claimed %d of %d reward rows", n, len(seasonIDs))
	}

	s.logger.InfoContext(ctx, "Season rewards claimed",
		attr.ExtractCorrelationID(ctx),
		attr.UserID(userID),
		attr.Int("seasons", len(seasonIDs)),
	)
	return results.SuccessResult[*ClaimResult, error](&ClaimResult{SeasonIDs: seasonIDs, Rewards: merged}), nil
}
