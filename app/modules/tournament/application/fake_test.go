package tournamentservice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Tournament Repo
// ------------------------

type FakeTournamentRepo struct {
	mu          sync.Mutex
	trace       []string
	tournaments map[string]*tournamentdb.Tournament
	matches     map[uuid.UUID]*tournamentdb.Match
	records     []*tournamentdb.Record

	GetTournamentFunc func(ctx context.Context, db bun.IDB, id string) (*tournamentdb.Tournament, error)
	InsertRecordFunc  func(ctx context.Context, db bun.IDB, r *tournamentdb.Record) error
}

func NewFakeTournamentRepo() *FakeTournamentRepo {
	return &FakeTournamentRepo{
		tournaments: map[string]*tournamentdb.Tournament{},
		matches:     map[uuid.UUID]*tournamentdb.Match{},
	}
}

func (f *FakeTournamentRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeTournamentRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeTournamentRepo) putTournament(t *tournamentdb.Tournament) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tournaments[t.ID] = &cp
}

func (f *FakeTournamentRepo) putMatch(m *tournamentdb.Match) *tournamentdb.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.matches[m.ID] = &cp
	return m
}

func (f *FakeTournamentRepo) tournament(id string) *tournamentdb.Tournament {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tournaments[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

func (f *FakeTournamentRepo) match(id uuid.UUID) *tournamentdb.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.matches[id]; ok {
		cp := *m
		return &cp
	}
	return nil
}

func (f *FakeTournamentRepo) Records() []*tournamentdb.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*tournamentdb.Record(nil), f.records...)
}

func (f *FakeTournamentRepo) AcquireTournamentLock(context.Context, bun.IDB, string) error {
	f.record("AcquireTournamentLock")
	return nil
}

func (f *FakeTournamentRepo) GetTournament(ctx context.Context, db bun.IDB, id string) (*tournamentdb.Tournament, error) {
	f.record("GetTournament")
	if f.GetTournamentFunc != nil {
		return f.GetTournamentFunc(ctx, db, id)
	}
	if t := f.tournament(id); t != nil {
		return t, nil
	}
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentRepo) InsertTournament(_ context.Context, _ bun.IDB, t *tournamentdb.Tournament) error {
	f.record("InsertTournament")
	f.putTournament(t)
	return nil
}

func (f *FakeTournamentRepo) UpdateProgress(_ context.Context, _ bun.IDB, t *tournamentdb.Tournament) error {
	f.record("UpdateProgress")
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tournaments[t.ID]
	if !ok {
		return tournamentdb.ErrNoRowsAffected
	}
	stored.Status = t.Status
	stored.Round = t.Round
	stored.RoundStartedAt = t.RoundStartedAt
	return nil
}

func (f *FakeTournamentRepo) DeleteTournament(_ context.Context, _ bun.IDB, id string) error {
	f.record("DeleteTournament")
	f.mu.Lock()
	defer f.mu.Unlock()
	for mid, m := range f.matches {
		if m.TournamentID == id {
			delete(f.matches, mid)
		}
	}
	delete(f.tournaments, id)
	return nil
}

func (f *FakeTournamentRepo) ListLiveIDs(context.Context, bun.IDB) ([]string, error) {
	f.record("ListLiveIDs")
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for id := range f.tournaments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *FakeTournamentRepo) ListMatches(_ context.Context, _ bun.IDB, tournamentID string) ([]*tournamentdb.Match, error) {
	f.record("ListMatches")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*tournamentdb.Match{}
	for _, m := range f.matches {
		if m.TournamentID == tournamentID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Match < out[j].Match
	})
	return out, nil
}

func (f *FakeTournamentRepo) GetMatch(_ context.Context, _ bun.IDB, tournamentID string, matchID uuid.UUID) (*tournamentdb.Match, error) {
	f.record("GetMatch")
	if m := f.match(matchID); m != nil && m.TournamentID == tournamentID {
		return m, nil
	}
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentRepo) GetMatchByBattle(_ context.Context, _ bun.IDB, battleID string) (*tournamentdb.Match, error) {
	f.record("GetMatchByBattle")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.BattleID != nil && *m.BattleID == battleID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, tournamentdb.ErrNotFound
}

func (f *FakeTournamentRepo) InsertMatches(_ context.Context, _ bun.IDB, matches []*tournamentdb.Match) error {
	f.record("InsertMatches")
	for _, m := range matches {
		f.putMatch(m)
	}
	return nil
}

func (f *FakeTournamentRepo) UpdateMatch(_ context.Context, _ bun.IDB, m *tournamentdb.Match, columns ...string) error {
	f.record("UpdateMatch")
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.matches[m.ID]
	if !ok {
		return tournamentdb.ErrNoRowsAffected
	}
	for _, c := range columns {
		switch c {
		case "user_id1":
			stored.UserID1 = m.UserID1
		case "user_id2":
			stored.UserID2 = m.UserID2
		case "winner_id":
			stored.WinnerID = m.WinnerID
		case "battle_id":
			stored.BattleID = m.BattleID
		case "state":
			stored.State = m.State
		case "started_at":
			stored.StartedAt = m.StartedAt
		case "check_in1_at":
			stored.CheckIn1At = m.CheckIn1At
		case "check_in2_at":
			stored.CheckIn2At = m.CheckIn2At
		default:
			return fmt.Errorf("unknown column %q", c)
		}
	}
	return nil
}

func (f *FakeTournamentRepo) InsertRecord(ctx context.Context, db bun.IDB, r *tournamentdb.Record) error {
	f.record("InsertRecord")
	if f.InsertRecordFunc != nil {
		return f.InsertRecordFunc(ctx, db, r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.records = append(f.records, &cp)
	return nil
}

func (f *FakeTournamentRepo) ListRecords(_ context.Context, _ bun.IDB, limit int) ([]*tournamentdb.Record, error) {
	f.record("ListRecords")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]*tournamentdb.Record(nil), f.records...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
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
// Fake Scheduler and Publisher
// ------------------------

type scheduledDeadline struct {
	TournamentID string
	At           time.Time
}

type FakeScheduler struct {
	mu        sync.Mutex
	scheduled []scheduledDeadline
	err       error
}

func (f *FakeScheduler) ScheduleDeadline(_ context.Context, tournamentID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduledDeadline{TournamentID: tournamentID, At: at})
	return f.err
}

func (f *FakeScheduler) Scheduled() []scheduledDeadline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledDeadline(nil), f.scheduled...)
}

type FakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for range msgs {
		f.topics = append(f.topics, topic)
	}
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}
