package seasonservice

import (
	"context"
	"errors"
	"time"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type seasonResult = results.OperationResult[*seasondb.Season, error]

func (s *SeasonService) GetCurrentSeason(ctx context.Context) (*seasondb.Season, error) {
	return unwrap(withTelemetry(s, ctx, "GetCurrentSeason", "current", func(ctx context.Context) (seasonResult, error) {
		open, err := s.repo.ListOpenSeasons(ctx, nil)
		if err != nil {
			return seasonResult{}, err
		}
		now := s.now()
		for _, season := range open {
			if season.IsActive(now) {
				return results.SuccessResult[*seasondb.Season, error](season), nil
			}
		}
		return results.SuccessResult[*seasondb.Season, error](nil), nil
	}))
}

func (s *SeasonService) ListSeasons(ctx context.Context) ([]*seasondb.Season, error) {
	return unwrap(withTelemetry(s, ctx, "ListSeasons", "all", func(ctx context.Context) (results.OperationResult[[]*seasondb.Season, error], error) {
		seasons, err := s.repo.ListSeasons(ctx, nil)
		if err != nil {
			return results.OperationResult[[]*seasondb.Season, error]{}, err
		}
		if seasons == nil {
			seasons = []*seasondb.Season{}
		}
		return results.SuccessResult[[]*seasondb.Season, error](seasons), nil
	}))
}

func (s *SeasonService) CreateSeason(ctx context.Context, actor identity.Actor, draft seasondomain.Draft) (*seasondb.Season, error) {
	season, err := unwrap(withTelemetry(s, ctx, "CreateSeason", draft.Name, func(ctx context.Context) (seasonResult, error) {
		if !actor.CanManageContent() {
			return results.FailureResult[*seasondb.Season, error](ErrPermissionDenied), nil
		}
		if err := draft.Validate(); err != nil {
			return results.FailureResult[*seasondb.Season, error](err), nil
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (seasonResult, error) {
			if err := s.repo.AcquireSeasonLock(ctx, db); err != nil {
				return seasonResult{}, err
			}
			open, err := s.repo.ListOpenSeasons(ctx, db)
			if err != nil {
				return seasonResult{}, err
			}
			now := s.now()
			for _, other := range open {
				if other.IsActive(now) {
					return results.FailureResult[*seasondb.Season, error](ErrSeasonActive), nil
				}
			}
			if failure := checkOverlap(draft, open, ""); failure != nil {
				return results.FailureResult[*seasondb.Season, error](failure), nil
			}

			season := &seasondb.Season{
				ID:        uuid.NewString(),
				Name:      draft.Name,
				StartDate: draft.StartDate.UTC(),
				EndDate:   draft.EndDate.UTC(),
				Rewards:   rewardTable(draft.Rewards),
				CreatedAt: now.UTC(),
				UpdatedAt: now.UTC(),
			}
			if err := s.repo.InsertSeason(ctx, db, season); err != nil {
				return seasonResult{}, err
			}
			return results.SuccessResult[*seasondb.Season, error](season), nil
		})
	}))
	if err != nil {
		return nil, err
	}
	s.scheduleEnd(ctx, season)
	return season, nil
}

func (s *SeasonService) UpdateSeason(ctx context.Context, actor identity.Actor, id string, draft seasondomain.Draft) (*seasondb.Season, error) {
	season, err := unwrap(withTelemetry(s, ctx, "UpdateSeason", id, func(ctx context.Context) (seasonResult, error) {
		if !actor.CanManageContent() {
			return results.FailureResult[*seasondb.Season, error](ErrPermissionDenied), nil
		}
		if err := draft.Validate(); err != nil {
			return results.FailureResult[*seasondb.Season, error](err), nil
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (seasonResult, error) {
			if err := s.repo.AcquireSeasonLock(ctx, db); err != nil {
				return seasonResult{}, err
			}
			season, err := s.repo.GetSeason(ctx, db, id)
			if errors.Is(err, seasondb.ErrNotFound) {
				return results.FailureResult[*seasondb.Season, error](ErrSeasonNotFound), nil
			}
			if err != nil {
				return seasonResult{}, err
			}
			if season.Ended {
				return results.FailureResult[*seasondb.Season, error](ErrSeasonEnded), nil
			}

			open, err := s.repo.ListOpenSeasons(ctx, db)
			if err != nil {
				return seasonResult{}, err
			}
			if failure := checkOverlap(draft, open, id); failure != nil {
				return results.FailureResult[*seasondb.Season, error](failure), nil
			}

			season.Name = draft.Name
			season.StartDate = draft.StartDate.UTC()
			season.EndDate = draft.EndDate.UTC()
			season.Rewards = rewardTable(draft.Rewards)
			season.UpdatedAt = s.now().UTC()
			if err := s.repo.UpdateSeason(ctx, db, season); err != nil {
				return seasonResult{}, err
			}
			return results.SuccessResult[*seasondb.Season, error](season), nil
		})
	}))
	if err != nil {
		return nil, err
	}
	s.scheduleEnd(ctx, season)
	return season, nil
}

func (s *SeasonService) DeleteSeason(ctx context.Context, actor identity.Actor, id string) error {
	_, err := unwrap(withTelemetry(s, ctx, "DeleteSeason", id, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		if !actor.CanManageContent() {
			return results.FailureResult[bool, error](ErrPermissionDenied), nil
		}
		err := s.repo.DeleteSeason(ctx, nil, id)
		if errors.Is(err, seasondb.ErrNoRowsAffected) {
			return results.FailureResult[bool, error](ErrSeasonNotFound), nil
		}
		if err != nil {
			return results.OperationResult[bool, error]{}, err
		}
		return results.SuccessResult[bool, error](true), nil
	}))
	return err
}

func (s *SeasonService) EndSeason(ctx context.Context, actor identity.Actor, id string) (*EndResult, error) {
	res, err := unwrap(withTelemetry(s, ctx, "EndSeason", id, func(ctx context.Context) (results.OperationResult[*EndResult, error], error) {
		if !actor.CanManageContent() {
			return results.FailureResult[*EndResult, error](ErrPermissionDenied), nil
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*EndResult, error], error) {
			return s.endSeasonLogic(ctx, db, id)
		})
	}))
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := seasondomain.SeasonEnded{SeasonID: res.SeasonID, RewardsWritten: res.RewardsWritten}
		if err := eventbus.PublishJSON(ctx, s.publisher, seasondomain.SeasonEndedTopic, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish season ended", attr.String("season_id", id), attr.Error(err))
		}
	}
	return res, nil
}

func (s *SeasonService) endSeasonLogic(ctx context.Context, db bun.IDB, id string) (results.OperationResult[*EndResult, error], error) {
	if err := s.repo.AcquireSeasonLock(ctx, db); err != nil {
		return results.OperationResult[*EndResult, error]{}, err
	}
	if _, err := s.repo.GetSeason(ctx, db, id); err != nil {
		if errors.Is(err, seasondb.ErrNotFound) {
			return results.FailureResult[*EndResult, error](ErrSeasonNotFound), nil
		}
		return results.OperationResult[*EndResult, error]{}, err
	}

	flipped, err := s.repo.MarkEnded(ctx, db, id)
	if err != nil {
		return results.OperationResult[*EndResult, error]{}, err
	}
	if !flipped {
		return results.FailureResult[*EndResult, error](ErrSeasonEnded), nil
	}

	ranked, err := s.profiles.ListRanked(ctx, db)
	if err != nil {
		return results.OperationResult[*EndResult, error]{}, err
	}
	rows := make([]*seasondb.UserReward, 0, len(ranked))
	now := s.now().UTC()
	for _, p := range ranked {
		if p.RankedLP <= 0 {
			continue
		}
		rows = append(rows, &seasondb.UserReward{
			UserID:    p.UserID,
			SeasonID:  id,
			Division:  seasondomain.DivisionFor(p.RankedLP),
			RankedLP:  p.RankedLP,
			CreatedAt: now,
		})
	}
	written, err := s.repo.InsertUserRewards(ctx, db, rows)
	if err != nil {
		return results.OperationResult[*EndResult, error]{}, err
	}

	s.logger.InfoContext(ctx, "Season ended",
		attr.ExtractCorrelationID(ctx),
		attr.String("season_id", id),
		attr.Int64("rewards_written", written),
	)
	return results.SuccessResult[*EndResult, error](&EndResult{SeasonID: id, RewardsWritten: int(written)}), nil
}

func (s *SeasonService) scheduleEnd(ctx context.Context, season *seasondb.Season) {
	if s.scheduler == nil || season == nil {
		return
	}
	if err := s.scheduler.ScheduleSeasonEnd(ctx, season.ID, season.EndDate); err != nil {
		// The hourly due-season sweep still ends it.
		s.logger.WarnContext(ctx, "Failed to schedule season end",
			attr.ExtractCorrelationID(ctx),
			attr.String("season_id", season.ID),
			attr.Time("end_date", season.EndDate),
			attr.Error(err),
		)
	}
}

// checkOverlap returns a failure when draft collides with any open season
// other than skipID.
func checkOverlap(draft seasondomain.Draft, open []*seasondb.Season, skipID string) error {
	w := draft.Window()
	for _, other := range open {
		if other.ID == skipID {
			continue
		}
		if w.Overlaps(other.Window()) {
			return ErrSeasonOverlap
		}
	}
	return nil
}

func rewardTable(t seasondomain.RewardTable) seasondomain.RewardTable {
	if t == nil {
		return seasondomain.RewardTable{}
	}
	return t
}

// EndDueSeasons ends every open season whose end date has passed.
func (s *SeasonService) EndDueSeasons(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueSeasons(ctx, nil, s.now())
	if err != nil {
		return 0, err
	}
	ended := 0
	for _, season := range due {
		_, err := s.EndSeason(ctx, identity.System, season.ID)
		if err != nil && !IsFailure(err) {
			return ended, err
		}
		if err == nil {
			ended++
		}
	}
	return ended, nil
}

// EndSeasonIfDue ends the season when its end date has passed. Otherwise it
// returns how long is left. Ended or deleted seasons report zero.
func (s *SeasonService) EndSeasonIfDue(ctx context.Context, id string) (time.Duration, error) {
	season, err := s.repo.GetSeason(ctx, nil, id)
	if errors.Is(err, seasondb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if season.Ended {
		return 0, nil
	}
	if left := season.EndDate.Sub(s.now()); left > 0 {
		return left, nil
	}
	if _, err := s.EndSeason(ctx, identity.System, id); err != nil && !IsFailure(err) {
		return 0, err
	}
	return 0, nil
}
