package rankedqueueservice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Queue Repo
// ------------------------

// FakeQueueRepo keeps the queue in memory. Every method is atomic, which
// mirrors the row-level guarantees of the real conditional deletes.
type FakeQueueRepo struct {
	mu      sync.Mutex
	trace   []string
	entries map[string]*rankedqueuedb.QueueEntry
	matches []*rankedqueuedb.Match

	profiles *profiledb.FakeRepository
	loadouts *FakeLoadouts

	ListCandidatesFunc func(ctx context.Context, db bun.IDB) ([]*rankedqueuedb.CandidateRow, error)
}

func NewFakeQueueRepo(profiles *profiledb.FakeRepository, loadouts *FakeLoadouts) *FakeQueueRepo {
	return &FakeQueueRepo{
		entries:  map[string]*rankedqueuedb.QueueEntry{},
		profiles: profiles,
		loadouts: loadouts,
	}
}

func (f *FakeQueueRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeQueueRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeQueueRepo) put(e *rankedqueuedb.QueueEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.UserID] = e
}

func (f *FakeQueueRepo) has(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[userID]
	return ok
}

func (f *FakeQueueRepo) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FakeQueueRepo) matchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matches)
}

func (f *FakeQueueRepo) AcquireQueueLock(context.Context, bun.IDB) error {
	f.record("AcquireQueueLock")
	return nil
}

func (f *FakeQueueRepo) GetEntry(_ context.Context, _ bun.IDB, userID string) (*rankedqueuedb.QueueEntry, error) {
	f.record("GetEntry")
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[userID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, rankedqueuedb.ErrNotFound
}

func (f *FakeQueueRepo) InsertEntry(_ context.Context, _ bun.IDB, entry *rankedqueuedb.QueueEntry) (bool, error) {
	f.record("InsertEntry")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entry.UserID]; ok {
		return false, nil
	}
	cp := *entry
	f.entries[entry.UserID] = &cp
	return true, nil
}

func (f *FakeQueueRepo) DeleteEntry(ctx context.Context, db bun.IDB, userID string) (int64, error) {
	return f.DeleteEntries(ctx, db, []string{userID})
}

func (f *FakeQueueRepo) DeleteEntries(_ context.Context, _ bun.IDB, userIDs []string) (int64, error) {
	f.record("DeleteEntries")
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range userIDs {
		if _, ok := f.entries[id]; ok {
			delete(f.entries, id)
			n++
		}
	}
	return n, nil
}

func (f *FakeQueueRepo) ListCandidates(ctx context.Context, db bun.IDB) ([]*rankedqueuedb.CandidateRow, error) {
	f.record("ListCandidates")
	if f.ListCandidatesFunc != nil {
		return f.ListCandidatesFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*rankedqueuedb.CandidateRow, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, &rankedqueuedb.CandidateRow{
			ID:             e.ID,
			UserID:         e.UserID,
			RankedLP:       e.RankedLP,
			QueueStartTime: e.QueueStartTime,
			Status:         f.profiles.Status(e.UserID),
			HasLoadout:     f.loadouts.has(e.UserID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueStartTime.Before(out[j].QueueStartTime) })
	return out, nil
}

func (f *FakeQueueRepo) Count(context.Context, bun.IDB) (int, error) {
	f.record("Count")
	return f.size(), nil
}

func (f *FakeQueueRepo) DeleteStale(_ context.Context, _ bun.IDB, cutoff time.Time) ([]string, error) {
	f.record("DeleteStale")
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, e := range f.entries {
		if e.QueueStartTime.Before(cutoff) {
			delete(f.entries, id)
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeQueueRepo) InsertMatch(_ context.Context, _ bun.IDB, m *rankedqueuedb.Match) error {
	f.record("InsertMatch")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, m)
	return nil
}

func (f *FakeQueueRepo) LatestMatchFor(_ context.Context, _ bun.IDB, userID string) (*rankedqueuedb.Match, error) {
	f.record("LatestMatchFor")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.matches) - 1; i >= 0; i-- {
		if f.matches[i].Includes(userID) {
			return f.matches[i], nil
		}
	}
	return nil, rankedqueuedb.ErrNotFound
}

// ------------------------
// Fake Loadouts
// ------------------------

type FakeLoadouts struct {
	mu     sync.Mutex
	stored map[string]*loadoutdb.Loadout
}

func NewFakeLoadouts(userIDs ...string) *FakeLoadouts {
	f := &FakeLoadouts{stored: map[string]*loadoutdb.Loadout{}}
	for _, id := range userIDs {
		f.stored[id] = &loadoutdb.Loadout{UserID: id, JutsuIDs: []string{"j-" + id}, WeaponIDs: []string{}, ConsumableIDs: []string{}}
	}
	return f
}

func (f *FakeLoadouts) has(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[userID]
	return ok
}

func (f *FakeLoadouts) GetLoadout(_ context.Context, _ bun.IDB, userID string) (*loadoutdb.Loadout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.stored[userID]; ok {
		return l, nil
	}
	return nil, loadoutdb.ErrNotFound
}

func (f *FakeLoadouts) GetLoadouts(_ context.Context, _ bun.IDB, userIDs []string) ([]*loadoutdb.Loadout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*loadoutdb.Loadout{}
	for _, id := range userIDs {
		if l, ok := f.stored[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeLoadouts) EnsureLoadout(ctx context.Context, db bun.IDB, userID string) (*loadoutdb.Loadout, error) {
	return f.GetLoadout(ctx, db, userID)
}

func (f *FakeLoadouts) SaveLoadout(_ context.Context, _ bun.IDB, l *loadoutdb.Loadout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[l.UserID] = l
	return nil
}

func (f *FakeLoadouts) GetItems(context.Context, bun.IDB, []string) ([]*loadoutdb.Item, error) {
	return []*loadoutdb.Item{}, nil
}

func (f *FakeLoadouts) GetJutsus(context.Context, bun.IDB, []string) ([]*loadoutdb.Jutsu, error) {
	return []*loadoutdb.Jutsu{}, nil
}

// ------------------------
// Fake Battle Initiator
// ------------------------

type FakeInitiator struct {
	mu       sync.Mutex
	requests []battledomain.Request

	CreateBattleFunc func(ctx context.Context, req battledomain.Request) (battledomain.Result, error)
}

func (f *FakeInitiator) CreateBattle(ctx context.Context, req battledomain.Request) (battledomain.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()
	if f.CreateBattleFunc != nil {
		return f.CreateBattleFunc(ctx, req)
	}
	return battledomain.Result{Success: true, BattleID: fmt.Sprintf("battle-%d", n)}, nil
}

func (f *FakeInitiator) Requests() []battledomain.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]battledomain.Request(nil), f.requests...)
}

// ------------------------
// Fake Guard and Publisher
// ------------------------

type FakeGuard struct {
	AcquireFunc func(ctx context.Context, key string) (func(), bool, error)
}

func (f *FakeGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	return f.AcquireFunc(ctx, key)
}

type FakePublisher struct {
	mu     sync.Mutex
	topics []string
	msgs   []*message.Message
}

func (f *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.topics = append(f.topics, topic)
		f.msgs = append(f.msgs, m)
	}
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}
