package profiledb

import (
	"context"
	"sort"
	"sync"

	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/uptrace/bun"
)

// FakeRepository is an in-memory Repository for tests in other modules. Set
// an Fn field to override a method.
type FakeRepository struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	items    map[string]map[string]int
	applied  []AppliedReward

	GetUserFn           func(ctx context.Context, db bun.IDB, userID string) (*Profile, error)
	SetStatusFn         func(ctx context.Context, db bun.IDB, userIDs []string, expected, next profiledomain.Status) (int64, error)
	ApplyRewardBundleFn func(ctx context.Context, db bun.IDB, userID string, bundle rewards.Bundle) error
	PrepareForBattleFn  func(ctx context.Context, db bun.IDB, userIDs []string) error
}

// AppliedReward records one ApplyRewardBundle call.
type AppliedReward struct {
	UserID string
	Bundle rewards.Bundle
}

var _ Repository = (*FakeRepository)(nil)

func NewFakeRepository(profiles ...*Profile) *FakeRepository {
	f := &FakeRepository{
		profiles: make(map[string]*Profile),
		items:    make(map[string]map[string]int),
	}
	for _, p := range profiles {
		f.Put(p)
	}
	return f
}

// Put stores a copy of p.
func (f *FakeRepository) Put(p *Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	if cp.Status == "" {
		cp.Status = profiledomain.StatusAwake
	}
	f.profiles[p.UserID] = &cp
}

// Status returns the stored status of userID.
func (f *FakeRepository) Status(userID string) profiledomain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[userID]; ok {
		return p.Status
	}
	return ""
}

// Applied returns every reward application in call order.
func (f *FakeRepository) Applied() []AppliedReward {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AppliedReward(nil), f.applied...)
}

// ItemQuantity returns the stack size of itemID held by userID.
func (f *FakeRepository) ItemQuantity(userID, itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[userID][itemID]
}

func (f *FakeRepository) GetUser(ctx context.Context, db bun.IDB, userID string) (*Profile, error) {
	if f.GetUserFn != nil {
		return f.GetUserFn(ctx, db, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *FakeRepository) GetUsers(_ context.Context, _ bun.IDB, userIDs []string) ([]*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Profile{}
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *FakeRepository) SetStatus(ctx context.Context, db bun.IDB, userIDs []string, expected, next profiledomain.Status) (int64, error) {
	if f.SetStatusFn != nil {
		return f.SetStatusFn(ctx, db, userIDs, expected, next)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok && p.Status == expected {
			p.Status = next
			n++
		}
	}
	return n, nil
}

func (f *FakeRepository) ApplyRewardBundle(ctx context.Context, db bun.IDB, userID string, bundle rewards.Bundle) error {
	if f.ApplyRewardBundleFn != nil {
		return f.ApplyRewardBundleFn(ctx, db, userID, bundle)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return ErrNoRowsAffected
	}
	p.Money += bundle.Money
	p.Reputation += bundle.Reputation
	if f.items[userID] == nil {
		f.items[userID] = make(map[string]int)
	}
	for _, it := range bundle.Items {
		f.items[userID][it.ItemID] += it.Quantity
	}
	f.applied = append(f.applied, AppliedReward{UserID: userID, Bundle: bundle})
	return nil
}

func (f *FakeRepository) PrepareForBattle(ctx context.Context, db bun.IDB, userIDs []string) error {
	if f.PrepareForBattleFn != nil {
		return f.PrepareForBattleFn(ctx, db, userIDs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			p.Status = profiledomain.StatusAwake
			p.CurHealth = p.MaxHealth
		}
	}
	return nil
}

func (f *FakeRepository) ListRanked(_ context.Context, _ bun.IDB) ([]*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*Profile{}
	for _, p := range f.profiles {
		if p.RankedLP > 0 {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
