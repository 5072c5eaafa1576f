package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
)

var (
	sharedEnv     *TestEnvironment
	sharedEnvOnce sync.Once
	sharedEnvErr  error
)

// GetTestEnv starts the containers once per test binary and resets the
// database before handing the environment to t.
func GetTestEnv(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests need docker")
	}

	sharedEnvOnce.Do(func() {
		sharedEnv, sharedEnvErr = NewTestEnvironment(t)
	})
	if sharedEnvErr != nil {
		t.Fatalf("test environment initialization failed: %v", sharedEnvErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sharedEnv.Reset(ctx); err != nil {
		t.Fatalf("failed to reset environment: %v", err)
	}
	return sharedEnv
}

// ShutdownTestEnv releases the shared environment. Call it from TestMain.
func ShutdownTestEnv() {
	if sharedEnv != nil {
		sharedEnv.Cleanup()
	}
}

// InsertProfile stores an AWAKE profile with generated display data.
func InsertProfile(t *testing.T, db bun.IDB, userID string, lp int, clanID *string) *profiledb.Profile {
	t.Helper()
	p := &profiledb.Profile{
		UserID:    userID,
		Username:  gofakeit.Username(),
		RankedLP:  lp,
		Status:    profiledomain.StatusAwake,
		ClanID:    clanID,
		CurHealth: 100,
		MaxHealth: 1000,
	}
	if _, err := db.NewInsert().Model(p).Exec(context.Background()); err != nil {
		t.Fatalf("insert profile %s: %v", userID, err)
	}
	return p
}

// GetProfile reloads a profile row.
func GetProfile(t *testing.T, db bun.IDB, userID string) *profiledb.Profile {
	t.Helper()
	p := new(profiledb.Profile)
	if err := db.NewSelect().Model(p).Where("user_id = ?", userID).Scan(context.Background()); err != nil {
		t.Fatalf("load profile %s: %v", userID, err)
	}
	return p
}

// BattleResponder answers battle creation requests on NATS the way the
// battle service does.
type BattleResponder struct {
	sub      *nats.Subscription
	reject   string
	count    atomic.Int64
	mu       sync.Mutex
	requests []battledomain.Request
}

// StartBattleResponder accepts every request.
func StartBattleResponder(t *testing.T, conn *nats.Conn) *BattleResponder {
	t.Helper()
	return startResponder(t, conn, "")
}

// StartRejectingBattleResponder records every request and answers it with an
// unsuccessful result carrying message.
func StartRejectingBattleResponder(t *testing.T, conn *nats.Conn, message string) *BattleResponder {
	t.Helper()
	return startResponder(t, conn, message)
}

func startResponder(t *testing.T, conn *nats.Conn, reject string) *BattleResponder {
	t.Helper()
	r := &BattleResponder{reject: reject}
	sub, err := conn.Subscribe(battledomain.CreateBattleSubject, r.handle)
	if err != nil {
		t.Fatalf("subscribe battle responder: %v", err)
	}
	if err := conn.Flush(); err != nil {
		t.Fatalf("flush battle responder: %v", err)
	}
	r.sub = sub
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	return r
}

func (r *BattleResponder) handle(msg *nats.Msg) {
	var req battledomain.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		reply, _ := json.Marshal(battledomain.Result{Success: false, Message: err.Error()})
		_ = msg.Respond(reply)
		return
	}
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	result := battledomain.Result{Success: false, Message: r.reject}
	if r.reject == "" {
		result = battledomain.Result{
			Success:  true,
			BattleID: fmt.Sprintf("it-battle-%d", r.count.Add(1)),
		}
	}
	reply, _ := json.Marshal(result)
	_ = msg.Respond(reply)
}

func (r *BattleResponder) Requests() []battledomain.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]battledomain.Request(nil), r.requests...)
}
