package rankedqueueservice

import (
	"context"
	"errors"
	"fmt"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/uptrace/bun"
)

type matchResult = results.OperationResult[MatchResult, error]

// rankedBackground is the arena shown for ranked battles.
const rankedBackground = "ranked-arena"

func (s *RankedQueueService) TryMatch(ctx context.Context) (MatchResult, error) {
	m, err := unwrap(withTelemetry(s, ctx, "TryMatch", "ranked_queue", func(ctx context.Context) (matchResult, error) {
		return runInTx(s, ctx, s.tryMatchLogic)
	}))
	if err != nil || !m.Matched {
		return m, err
	}

	// Published after commit so consumers never see a rolled-back pair.
	event := rankedqueuedomain.MatchFound{
		BattleID:  m.BattleID,
		UserIDs:   [2]string{m.UserIDs[0], m.UserIDs[1]},
		MatchedAt: s.now().UTC(),
	}
	if s.publisher != nil {
		if err := eventbus.PublishJSON(ctx, s.publisher, rankedqueuedomain.MatchFoundTopic, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish match found",
				attr.ExtractCorrelationID(ctx),
				attr.String("battle_id", m.BattleID),
				attr.Error(err),
			)
		}
	}
	return m, nil
}

func (s *RankedQueueService) tryMatchLogic(ctx context.Context, db bun.IDB) (matchResult, error) {
	if err := s.repo.AcquireQueueLock(ctx, db); err != nil {
		return matchResult{}, err
	}

	rows, err := s.repo.ListCandidates(ctx, db)
	if err != nil {
		return matchResult{}, err
	}

	var orphans []string
	cands := make([]rankedqueuedomain.Candidate, 0, len(rows))
	for _, row := range rows {
		c := row.Candidate()
		if !c.Queued {
			orphans = append(orphans, c.UserID)
			continue
		}
		cands = append(cands, c)
	}
	if len(orphans) > 0 {
		if _, err := s.repo.DeleteEntries(ctx, db, orphans); err != nil {
			return matchResult{}, err
		}
		s.logger.InfoContext(ctx, "Dropped queue entries whose owners are not queued",
			attr.ExtractCorrelationID(ctx),
			attr.Any("user_ids", orphans),
		)
	}

	pair, ok := rankedqueuedomain.PickOpponent(cands, s.now(), s.steps)
	if !ok {
		return results.SuccessResult[MatchResult, error](MatchResult{}), nil
	}
	ids := []string{pair.Oldest.UserID, pair.Opponent.UserID}

	if !pair.Oldest.HasLoadout || !pair.Opponent.HasLoadout {
		return results.FailureResult[MatchResult, error](ErrNoLoadout), nil
	}
	stored, err := s.loadouts.GetLoadouts(ctx, db, ids)
	if err != nil {
		return matchResult{}, err
	}
	forced := make(map[string]battledomain.Loadout, len(stored))
	for _, l := range stored {
		forced[l.UserID] = battledomain.Loadout{
			JutsuIDs:      l.JutsuIDs,
			WeaponIDs:     l.WeaponIDs,
			ConsumableIDs: l.ConsumableIDs,
		}
	}
	if len(forced) != 2 {
		return results.FailureResult[MatchResult, error](ErrNoLoadout), nil
	}

	removed, err := s.repo.DeleteEntries(ctx, db, ids)
	if err != nil {
		return matchResult{}, err
	}
	if removed != 2 {
		return matchResult{}, fmt.Errorf("pair removal affected %d rows, want 2", removed)
	}

	stats := battledomain.RankedStats
	res, err := s.battles.CreateBattle(ctx, battledomain.Request{
		ParticipantIDs: ids,
		ForcedLoadouts: forced,
		StatOverride:   &stats,
		Background:     rankedBackground,
		Kind:           battledomain.KindRankedPvP,
	})
	if err != nil {
		return matchResult{}, fmt.Errorf("%w: %w", ErrBattleCreationFailed, err)
	}
	if !res.Success {
		return matchResult{}, fmt.Errorf("%w: %s", ErrBattleCreationFailed, res.Message)
	}

	n, err := s.profiles.SetStatus(ctx, db, ids, profiledomain.StatusQueued, profiledomain.StatusBattle)
	if err != nil {
		return matchResult{}, err
	}
	if n != 2 {
		s.logger.WarnContext(ctx, "Matched users were not both queued",
			attr.ExtractCorrelationID(ctx),
			attr.String("battle_id", res.BattleID),
			attr.Int64("updated", n),
		)
	}

	if err := s.repo.InsertMatch(ctx, db, &rankedqueuedb.Match{
		BattleID: res.BattleID,
		UserID1:  pair.Oldest.UserID,
		UserID2:  pair.Opponent.UserID,
		LP1:      pair.Oldest.RankedLP,
		LP2:      pair.Opponent.RankedLP,
	}); err != nil {
		return matchResult{}, err
	}

	s.logger.InfoContext(ctx, "Ranked match created",
		attr.ExtractCorrelationID(ctx),
		attr.String("battle_id", res.BattleID),
		attr.Any("user_ids", ids),
		attr.Int("radius", pair.Radius),
	)
	return results.SuccessResult[MatchResult, error](MatchResult{Matched: true, BattleID: res.BattleID, UserIDs: ids}), nil
}

func (s *RankedQueueService) PollMatch(ctx context.Context, userID string) (PollResult, error) {
	release, ok, err := s.guard.Acquire(ctx, userID)
	switch {
	case err != nil:
		// Matching stays correct without the guard; it only sheds duplicate polls.
		s.logger.WarnContext(ctx, "Poll guard unavailable",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(userID),
			attr.Error(err),
		)
	case !ok:
		return PollResult{InFlight: true, InQueue: true}, nil
	default:
		defer release()
	}

	m, err := s.TryMatch(ctx)
	if err != nil && !IsFailure(err) {
		return PollResult{}, err
	}
	if m.Matched && m.Includes(userID) {
		return PollResult{Matched: true, BattleID: m.BattleID}, nil
	}
	return s.pollView(ctx, userID)
}

// pollView reports the caller's state when the last TryMatch did not pair
// them, including a pair committed by another process.
func (s *RankedQueueService) pollView(ctx context.Context, userID string) (PollResult, error) {
	if _, err := s.repo.GetEntry(ctx, nil, userID); err == nil {
		return PollResult{InQueue: true}, nil
	} else if !errors.Is(err, rankedqueuedb.ErrNotFound) {
		return PollResult{}, err
	}

	user, err := s.profiles.GetUser(ctx, nil, userID)
	if errors.Is(err, profiledb.ErrNotFound) {
		return PollResult{}, ErrUserNotFound
	}
	if err != nil {
		return PollResult{}, err
	}
	if user.Status != profiledomain.StatusBattle {
		return PollResult{}, nil
	}
	match, err := s.repo.LatestMatchFor(ctx, nil, userID)
	if errors.Is(err, rankedqueuedb.ErrNotFound) {
		return PollResult{}, nil
	}
	if err != nil {
		return PollResult{}, err
	}
	return PollResult{Matched: true, BattleID: match.BattleID}, nil
}
