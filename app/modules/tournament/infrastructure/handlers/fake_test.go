package tournamenthandlers

import (
	"context"
	"net/http"
	"sync"

	tournamentservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentlive "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/realtime"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/google/uuid"
)

// ------------------------
// Fake Service
// ------------------------

type FakeService struct {
	trace []string

	GetFunc                func(ctx context.Context, id string) (*tournamentservice.View, error)
	CreateFunc             func(ctx context.Context, actor identity.Actor, draft tournamentdomain.Draft) (*tournamentdb.Tournament, error)
	JoinFunc               func(ctx context.Context, userID, tournamentID string) (*tournamentdb.Match, error)
	JoinMatchFunc          func(ctx context.Context, userID, tournamentID string, matchID uuid.UUID) (*tournamentservice.JoinMatchResult, error)
	RecordBattleResultFunc func(ctx context.Context, battleID, winnerID string) (bool, error)
	ListRecordsFunc        func(ctx context.Context, limit int) ([]*tournamentdb.Record, error)
	ExportRecordsFunc      func(ctx context.Context) ([]byte, error)
}

var _ tournamentservice.Service = (*FakeService)(nil)

func (f *FakeService) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) Get(ctx context.Context, id string) (*tournamentservice.View, error) {
	f.record("Get")
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}
	return nil, nil
}

func (f *FakeService) Create(ctx context.Context, actor identity.Actor, draft tournamentdomain.Draft) (*tournamentdb.Tournament, error) {
	f.record("Create")
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, actor, draft)
	}
	return &tournamentdb.Tournament{}, nil
}

func (f *FakeService) Join(ctx context.Context, userID, tournamentID string) (*tournamentdb.Match, error) {
	f.record("Join")
	if f.JoinFunc != nil {
		return f.JoinFunc(ctx, userID, tournamentID)
	}
	return &tournamentdb.Match{}, nil
}

func (f *FakeService) JoinMatch(ctx context.Context, userID, tournamentID string, matchID uuid.UUID) (*tournamentservice.JoinMatchResult, error) {
	f.record("JoinMatch")
	if f.JoinMatchFunc != nil {
		return f.JoinMatchFunc(ctx, userID, tournamentID, matchID)
	}
	return &tournamentservice.JoinMatchResult{}, nil
}

func (f *FakeService) RecordBattleResult(ctx context.Context, battleID, winnerID string) (bool, error) {
	f.record("RecordBattleResult")
	if f.RecordBattleResultFunc != nil {
		return f.RecordBattleResultFunc(ctx, battleID, winnerID)
	}
	return true, nil
}

func (f *FakeService) ListRecords(ctx context.Context, limit int) ([]*tournamentdb.Record, error) {
	f.record("ListRecords")
	if f.ListRecordsFunc != nil {
		return f.ListRecordsFunc(ctx, limit)
	}
	return []*tournamentdb.Record{}, nil
}

func (f *FakeService) ExportRecords(ctx context.Context) ([]byte, error) {
	f.record("ExportRecords")
	if f.ExportRecordsFunc != nil {
		return f.ExportRecordsFunc(ctx)
	}
	return []byte("PK"), nil
}

// ------------------------
// Fake Hub
// ------------------------

type FakeHub struct {
	mu   sync.Mutex
	sent []tournamentlive.Message

	ServeFunc func(w http.ResponseWriter, r *http.Request, room string) error
}

func (f *FakeHub) Serve(w http.ResponseWriter, r *http.Request, room string) error {
	if f.ServeFunc != nil {
		return f.ServeFunc(w, r, room)
	}
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (f *FakeHub) Broadcast(msg tournamentlive.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
}

func (f *FakeHub) Sent() []tournamentlive.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tournamentlive.Message(nil), f.sent...)
}
