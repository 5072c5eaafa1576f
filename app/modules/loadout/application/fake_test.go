package loadoutservice

import (
	"context"

	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Loadout Repo
// ------------------------

type FakeLoadoutRepo struct {
	trace []string

	stored map[string]*loadoutdb.Loadout
	items  map[string]*loadoutdb.Item
	jutsus map[string]*loadoutdb.Jutsu

	SaveLoadoutFunc func(ctx context.Context, db bun.IDB, l *loadoutdb.Loadout) error
	GetItemsFunc    func(ctx context.Context, db bun.IDB, ids []string) ([]*loadoutdb.Item, error)
}

func NewFakeLoadoutRepo() *FakeLoadoutRepo {
	return &FakeLoadoutRepo{
		trace:  []string{},
		stored: map[string]*loadoutdb.Loadout{},
		items:  map[string]*loadoutdb.Item{},
		jutsus: map[string]*loadoutdb.Jutsu{},
	}
}

func (f *FakeLoadoutRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeLoadoutRepo) addItem(it *loadoutdb.Item) { f.items[it.ID] = it }

func (f *FakeLoadoutRepo) addJutsu(id string) { f.jutsus[id] = &loadoutdb.Jutsu{ID: id, Name: id} }

func (f *FakeLoadoutRepo) GetLoadout(_ context.Context, _ bun.IDB, userID string) (*loadoutdb.Loadout, error) {
	f.record("GetLoadout")
	if l, ok := f.stored[userID]; ok {
		return l, nil
	}
	return nil, loadoutdb.ErrNotFound
}

func (f *FakeLoadoutRepo) GetLoadouts(_ context.Context, _ bun.IDB, userIDs []string) ([]*loadoutdb.Loadout, error) {
	f.record("GetLoadouts")
	out := []*loadoutdb.Loadout{}
	for _, id := range userIDs {
		if l, ok := f.stored[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeLoadoutRepo) EnsureLoadout(_ context.Context, _ bun.IDB, userID string) (*loadoutdb.Loadout, error) {
	f.record("EnsureLoadout")
	if l, ok := f.stored[userID]; ok {
		return l, nil
	}
	l := &loadoutdb.Loadout{UserID: userID, JutsuIDs: []string{}, WeaponIDs: []string{}, ConsumableIDs: []string{}}
	f.stored[userID] = l
	return l, nil
}

func (f *FakeLoadoutRepo) SaveLoadout(ctx context.Context, db bun.IDB, l *loadoutdb.Loadout) error {
	f.record("SaveLoadout")
	if f.SaveLoadoutFunc != nil {
		return f.SaveLoadoutFunc(ctx, db, l)
	}
	f.stored[l.UserID] = l
	return nil
}

func (f *FakeLoadoutRepo) GetItems(ctx context.Context, db bun.IDB, ids []string) ([]*loadoutdb.Item, error) {
	f.record("GetItems")
	if f.GetItemsFunc != nil {
		return f.GetItemsFunc(ctx, db, ids)
	}
	out := []*loadoutdb.Item{}
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeLoadoutRepo) GetJutsus(_ context.Context, _ bun.IDB, ids []string) ([]*loadoutdb.Jutsu, error) {
	f.record("GetJutsus")
	out := []*loadoutdb.Jutsu{}
	for _, id := range ids {
		if j, ok := f.jutsus[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *FakeLoadoutRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ loadoutdb.Repository = (*FakeLoadoutRepo)(nil)
