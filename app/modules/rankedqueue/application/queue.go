package rankedqueueservice

import (
	"context"
	"errors"
	"time"

	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type enqueueResult = results.OperationResult[*rankedqueuedb.QueueEntry, error]

func (s *RankedQueueService) Enqueue(ctx context.Context, userID string) (*EnqueueResult, error) {
	entry, err := unwrap(withTelemetry(s, ctx, "Enqueue", userID, func(ctx context.Context) (enqueueResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (enqueueResult, error) {
			return s.enqueueLogic(ctx, db, userID)
		})
	}))
	if err != nil {
		return nil, err
	}

	out := &EnqueueResult{Entry: entry}
	match, err := s.TryMatch(ctx)
	if err != nil {
		// The user stays queued; polling or the ticker will retry.
		s.logger.WarnContext(ctx, "Match attempt after enqueue failed",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(userID),
			attr.Error(err),
		)
		return out, nil
	}
	out.Match = match
	return out, nil
}

func (s *RankedQueueService) enqueueLogic(ctx context.Context, db bun.IDB, userID string) (enqueueResult, error) {
	if _, err := s.repo.GetEntry(ctx, db, userID); err == nil {
		return results.FailureResult[*rankedqueuedb.QueueEntry, error](ErrAlreadyInQueue), nil
	} else if !errors.Is(err, rankedqueuedb.ErrNotFound) {
		return enqueueResult{}, err
	}

	user, err := s.profiles.GetUser(ctx, db, userID)
	if err != nil {
		if errors.Is(err, profiledb.ErrNotFound) {
			return results.FailureResult[*rankedqueuedb.QueueEntry, error](ErrUserNotFound), nil
		}
		return enqueueResult{}, err
	}

	// An entry without a loadout would fail every pairing it is picked for.
	if _, err := s.loadouts.GetLoadout(ctx, db, userID); err != nil {
		if errors.Is(err, loadoutdb.ErrNotFound) {
			return results.FailureResult[*rankedqueuedb.QueueEntry, error](ErrNoLoadout), nil
		}
		return enqueueResult{}, err
	}

	entry := &rankedqueuedb.QueueEntry{
		ID:             uuid.New(),
		UserID:         userID,
		RankedLP:       user.RankedLP,
		QueueStartTime: s.now().UTC(),
	}
	inserted, err := s.repo.InsertEntry(ctx, db, entry)
	if err != nil {
		return enqueueResult{}, err
	}
	if !inserted {
		return results.FailureResult[*rankedqueuedb.QueueEntry, error](ErrAlreadyInQueue), nil
	}

	n, err := s.profiles.SetStatus(ctx, db, []string{userID}, profiledomain.StatusAwake, profiledomain.StatusQueued)
	if err != nil {
		return enqueueResult{}, err
	}
	if n == 0 {
		if _, err := s.repo.DeleteEntry(ctx, db, userID); err != nil {
			return enqueueResult{}, err
		}
		return results.FailureResult[*rankedqueuedb.QueueEntry, error](ErrNotAwake), nil
	}
	return results.SuccessResult[*rankedqueuedb.QueueEntry, error](entry), nil
}

func (s *RankedQueueService) LeaveQueue(ctx context.Context, userID string) error {
	_, err := unwrap(withTelemetry(s, ctx, "LeaveQueue", userID, func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			if err := s.repo.AcquireQueueLock(ctx, db); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			removed, err := s.repo.DeleteEntry(ctx, db, userID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			// Runs even without an entry so a stuck QUEUED status heals.
			if _, err := s.profiles.SetStatus(ctx, db, []string{userID}, profiledomain.StatusQueued, profiledomain.StatusAwake); err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			if removed == 0 {
				return results.FailureResult[bool, error](ErrNotInQueue), nil
			}
			return results.SuccessResult[bool, error](true), nil
		})
	}))
	return err
}

func (s *RankedQueueService) Status(ctx context.Context, userID string) (QueueStatus, error) {
	return unwrap(withTelemetry(s, ctx, "Status", userID, func(ctx context.Context) (results.OperationResult[QueueStatus, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[QueueStatus, error], error) {
			var status QueueStatus
			count, err := s.repo.Count(ctx, db)
			if err != nil {
				return results.OperationResult[QueueStatus, error]{}, err
			}
			status.QueueCount = count

			entry, err := s.repo.GetEntry(ctx, db, userID)
			switch {
			case err == nil:
				status.InQueue = true
				start := entry.QueueStartTime
				status.QueueStartTime = &start
			case errors.Is(err, rankedqueuedb.ErrNotFound):
				n, err := s.profiles.SetStatus(ctx, db, []string{userID}, profiledomain.StatusQueued, profiledomain.StatusAwake)
				if err != nil {
					return results.OperationResult[QueueStatus, error]{}, err
				}
				if n > 0 {
					s.logger.InfoContext(ctx, "Healed queued status without queue entry",
						attr.ExtractCorrelationID(ctx),
						attr.UserID(userID),
					)
				}
			default:
				return results.OperationResult[QueueStatus, error]{}, err
			}
			return results.SuccessResult[QueueStatus, error](status), nil
		})
	}))
}

func (s *RankedQueueService) CleanupStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return unwrap(withTelemetry(s, ctx, "CleanupStale", olderThan.String(), func(ctx context.Context) (results.OperationResult[int, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			if err := s.repo.AcquireQueueLock(ctx, db); err != nil {
				return results.OperationResult[int, error]{}, err
			}
			userIDs, err := s.repo.DeleteStale(ctx, db, s.now().Add(-olderThan))
			if err != nil {
				return results.OperationResult[int, error]{}, err
			}
			if len(userIDs) > 0 {
				if _, err := s.profiles.SetStatus(ctx, db, userIDs, profiledomain.StatusQueued, profiledomain.StatusAwake); err != nil {
					return results.OperationResult[int, error]{}, err
				}
				s.logger.InfoContext(ctx, "Removed stale queue entries", attr.Int("count", len(userIDs)))
			}
			return results.SuccessResult[int, error](len(userIDs)), nil
		})
	}))
}
