package seasonservice

import (
	"context"
	"sort"
	"time"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Season Repo
// ------------------------

type FakeSeasonRepo struct {
	trace []string

	seasons map[string]*seasondb.Season
	rewards map[string]*seasondb.UserReward

	MarkClaimedFunc func(ctx context.Context, db bun.IDB, userID string, seasonIDs []string, at time.Time) (int64, error)
}

func NewFakeSeasonRepo() *FakeSeasonRepo {
	return &FakeSeasonRepo{
		trace:   []string{},
		seasons: map[string]*seasondb.Season{},
		rewards: map[string]*seasondb.UserReward{},
	}
}

func (f *FakeSeasonRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeSeasonRepo) Trace() []string { return f.trace }

func (f *FakeSeasonRepo) addSeason(s *seasondb.Season) { f.seasons[s.ID] = s }

func (f *FakeSeasonRepo) addReward(r *seasondb.UserReward) { f.rewards[r.UserID+"/"+r.SeasonID] = r }

func (f *FakeSeasonRepo) AcquireSeasonLock(context.Context, bun.IDB) error {
	f.record("AcquireSeasonLock")
	return nil
}

func (f *FakeSeasonRepo) GetSeason(_ context.Context, _ bun.IDB, id string) (*seasondb.Season, error) {
	f.record("GetSeason")
	if s, ok := f.seasons[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, seasondb.ErrNotFound
}

func (f *FakeSeasonRepo) sorted(keep func(*seasondb.Season) bool) []*seasondb.Season {
	out := []*seasondb.Season{}
	for _, s := range f.seasons {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (f *FakeSeasonRepo) ListSeasons(context.Context, bun.IDB) ([]*seasondb.Season, error) {
	f.record("ListSeasons")
	return f.sorted(func(*seasondb.Season) bool { return true }), nil
}

func (f *FakeSeasonRepo) ListOpenSeasons(context.Context, bun.IDB) ([]*seasondb.Season, error) {
	f.record("ListOpenSeasons")
	return f.sorted(func(s *seasondb.Season) bool { return !s.Ended }), nil
}

func (f *FakeSeasonRepo) ListDueSeasons(_ context.Context, _ bun.IDB, now time.Time) ([]*seasondb.Season, error) {
	f.record("ListDueSeasons")
	return f.sorted(func(s *seasondb.Season) bool { return !s.Ended && s.EndDate.Before(now) }), nil
}

func (f *FakeSeasonRepo) InsertSeason(_ context.Context, _ bun.IDB, s *seasondb.Season) error {
	f.record("InsertSeason")
	cp := *s
	f.seasons[s.ID] = &cp
	return nil
}

func (f *FakeSeasonRepo) UpdateSeason(_ context.Context, _ bun.IDB, s *seasondb.Season) error {
	f.record("UpdateSeason")
	if _, ok := f.seasons[s.ID]; !ok {
		return seasondb.ErrNoRowsAffected
	}
	cp := *s
	f.seasons[s.ID] = &cp
	return nil
}

func (f *FakeSeasonRepo) DeleteSeason(_ context.Context, _ bun.IDB, id string) error {
	f.record("DeleteSeason")
	if _, ok := f.seasons[id]; !ok {
		return seasondb.ErrNoRowsAffected
	}
	delete(f.seasons, id)
	return nil
}

func (f *FakeSeasonRepo) MarkEnded(_ context.Context, _ bun.IDB, id string) (bool, error) {
	f.record("MarkEnded")
	s, ok := f.seasons[id]
	if !ok || s.Ended {
		return false, nil
	}
	s.Ended = true
	return true, nil
}

func (f *FakeSeasonRepo) InsertUserRewards(_ context.Context, _ bun.IDB, rows []*seasondb.UserReward) (int64, error) {
	f.record("InsertUserRewards")
	var n int64
	for _, r := range rows {
		key := r.UserID + "/" + r.SeasonID
		if _, ok := f.rewards[key]; ok {
			continue
		}
		cp := *r
		f.rewards[key] = &cp
		n++
	}
	return n, nil
}

func (f *FakeSeasonRepo) unclaimed(userID string) []*seasondb.UserReward {
	out := []*seasondb.UserReward{}
	for _, r := range f.rewards {
		if r.UserID == userID && !r.Claimed {
			cp := *r
			cp.Season = f.seasons[r.SeasonID]
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeasonID < out[j].SeasonID })
	return out
}

func (f *FakeSeasonRepo) ListUnclaimed(_ context.Context, _ bun.IDB, userID string) ([]*seasondb.UserReward, error) {
	f.record("ListUnclaimed")
	return f.unclaimed(userID), nil
}

func (f *FakeSeasonRepo) LockUnclaimed(_ context.Context, _ bun.IDB, userID string) ([]*seasondb.UserReward, error) {
	f.record("LockUnclaimed")
	return f.unclaimed(userID), nil
}

func (f *FakeSeasonRepo) MarkClaimed(ctx context.Context, db bun.IDB, userID string, seasonIDs []string, at time.Time) (int64, error) {
	f.record("MarkClaimed")
	if f.MarkClaimedFunc != nil {
		return f.MarkClaimedFunc(ctx, db, userID, seasonIDs, at)
	}
	var n int64
	for _, id := range seasonIDs {
		if r, ok := f.rewards[userID+"/"+id]; ok && !r.Claimed {
			r.Claimed = true
			claimedAt := at
			r.ClaimedAt = &claimedAt
			n++
		}
	}
	return n, nil
}

func (f *FakeSeasonRepo) DivisionCounts(_ context.Context, _ bun.IDB, seasonID string) ([]seasondb.DivisionCount, error) {
	f.record("DivisionCounts")
	counts := map[seasondomain.Division]int{}
	for _, r := range f.rewards {
		if r.SeasonID == seasonID {
			counts[r.Division]++
		}
	}
	out := []seasondb.DivisionCount{}
	for d, c := range counts {
		out = append(out, seasondb.DivisionCount{Division: d, Count: c})
	}
	return out, nil
}

// ------------------------
// Fake Scheduler
// ------------------------

type scheduledEnd struct {
	SeasonID string
	At       time.Time
}

type FakeScheduler struct {
	scheduled []scheduledEnd
	err       error
}

func (f *FakeScheduler) ScheduleSeasonEnd(_ context.Context, seasonID string, at time.Time) error {
	f.scheduled = append(f.scheduled, scheduledEnd{SeasonID: seasonID, At: at})
	return f.err
}

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	topics []string
}

func (f *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	for range messages {
		f.topics = append(f.topics, topic)
	}
	return nil
}

func (f *FakePublisher) Close() error { return nil }
